// Package model defines the domain types used across the application.
package model

import "time"

// Source identifies the listing site a listing was collected from.
type Source string

// Known listing sources.
const (
	SourceCian   Source = "cian"
	SourceYandex Source = "yandex"
	SourceAvito  Source = "avito"
	SourceFeed   Source = "feed"
	SourceTest   Source = "test"
)

// Listing is a normalized rental offer. URL is its identity; PriceValue and
// DistanceValue are derived from the free-text fields and hold
// parse.Unbounded when the text yields no number.
type Listing struct {
	Source        Source
	Title         string
	PriceText     string
	PriceValue    int64
	Address       string
	DistanceValue int64
	URL           string
	FetchedAt     time.Time
	Processed     bool
}

// Subscription is a user's standing listing filter. One per chat; creating a
// new one replaces the old.
type Subscription struct {
	ChatID      int64
	MaxPrice    int64
	MaxDistance int64
	CreatedAt   time.Time
}

// Budget tracks how many notifications a chat received today.
type Budget struct {
	ChatID        int64
	LastResetDate time.Time
	SentToday     int
}
