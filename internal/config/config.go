// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64

	ScanInterval      time.Duration
	MaxDaily          int
	NotificationDelay time.Duration
	ListingFeeds      []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/bot.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	scanInterval, err := secondsEnv("SCAN_INTERVAL_SECONDS", 3600)
	if err != nil {
		return nil, err
	}

	maxDaily := 5
	if raw := os.Getenv("MAX_DAILY_NOTIFICATIONS"); raw != "" {
		maxDaily, err = strconv.Atoi(raw)
		if err != nil || maxDaily < 1 {
			return nil, fmt.Errorf("MAX_DAILY_NOTIFICATIONS must be a positive integer, got %q", raw)
		}
	}

	notifyDelay, err := secondsEnv("NOTIFICATION_DELAY_SECONDS", 5)
	if err != nil {
		return nil, err
	}

	var feeds []string
	if raw := os.Getenv("LISTING_FEEDS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				feeds = append(feeds, s)
			}
		}
	}

	return &Config{
		TelegramBotToken:  token,
		DatabasePath:      dbPath,
		LogLevel:          logLevel,
		AllowedUsers:      allowedUsers,
		ScanInterval:      scanInterval,
		MaxDaily:          maxDaily,
		NotificationDelay: notifyDelay,
		ListingFeeds:      feeds,
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func secondsEnv(key string, def int) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(def) * time.Second, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return time.Duration(n) * time.Second, nil
}
