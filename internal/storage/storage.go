// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"strings"

	"realty_bot/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	MergeListings(ctx context.Context, listings []model.Listing) (int, error)
	ListUnprocessed(ctx context.Context) ([]model.Listing, error)
	MarkProcessed(ctx context.Context, url string) error

	UpsertSubscription(ctx context.Context, sub *model.Subscription) error
	GetSubscription(ctx context.Context, chatID int64) (*model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, chatID int64) (bool, error)

	GetBudget(ctx context.Context, chatID int64) (*model.Budget, error)
	SaveBudget(ctx context.Context, b *model.Budget) error

	Close() error
}

// NormalizeURL produces the canonical dedup key for a listing URL.
func NormalizeURL(url string) string {
	return strings.ToLower(strings.TrimSpace(url))
}
