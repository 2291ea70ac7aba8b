package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"realty_bot/internal/bot"
	"realty_bot/internal/budget"
	"realty_bot/internal/config"
	"realty_bot/internal/scanner"
	"realty_bot/internal/source"
	"realty_bot/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	tracker := budget.New(store, cfg.MaxDaily)

	b, err := bot.New(cfg.TelegramBotToken, store, tracker, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	scan := scanner.New(store, buildSources(cfg, log), b.Dispatcher(), cfg.ScanInterval, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot", "scan_interval", cfg.ScanInterval, "max_daily", cfg.MaxDaily)

	go scan.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
}

func buildSources(cfg *config.Config, log *slog.Logger) []source.Lister {
	var sources []source.Lister
	for _, sc := range source.DefaultSites() {
		sources = append(sources, source.NewSite(sc, http.DefaultClient, log))
	}
	for _, url := range cfg.ListingFeeds {
		sources = append(sources, source.NewFeed("feed:"+url, url, http.DefaultClient))
	}
	return sources
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
