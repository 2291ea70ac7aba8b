// Package budget enforces the per-chat daily notification cap.
package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"realty_bot/internal/model"
	"realty_bot/internal/storage"
)

// Tracker guards the per-chat notification counters. The mutex makes the
// load/reset/check/increment sequence of TryConsume indivisible, so two
// concurrent consumers cannot both take the last slot of the day.
type Tracker struct {
	mu       sync.Mutex
	store    storage.Storage
	maxDaily int
	now      func() time.Time
}

// New creates a Tracker with the given daily cap.
func New(store storage.Storage, maxDaily int) *Tracker {
	return &Tracker{
		store:    store,
		maxDaily: maxDaily,
		now:      time.Now,
	}
}

// SetClock overrides the wall clock (useful for testing date rollover).
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// MaxDaily returns the configured daily cap.
func (t *Tracker) MaxDaily() int {
	return t.maxDaily
}

// TryConsume takes one notification slot for the chat. It returns false with
// a nil error when the daily cap is already reached. A record whose reset
// date is not today is reset before the cap is evaluated.
func (t *Tracker) TryConsume(ctx context.Context, chatID int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := t.load(ctx, chatID)
	if err != nil {
		return false, err
	}

	if b.SentToday >= t.maxDaily {
		return false, nil
	}

	b.SentToday++
	if err := t.store.SaveBudget(ctx, b); err != nil {
		return false, fmt.Errorf("save budget: %w", err)
	}
	return true, nil
}

// SentToday returns the chat's current count, accounting for date rollover
// without persisting the reset.
func (t *Tracker) SentToday(ctx context.Context, chatID int64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := t.load(ctx, chatID)
	if err != nil {
		return 0, err
	}
	return b.SentToday, nil
}

// load fetches the chat's record, synthesizing a fresh one when absent and
// applying the date rollover reset. Callers must hold the mutex.
func (t *Tracker) load(ctx context.Context, chatID int64) (*model.Budget, error) {
	today := t.today()

	b, err := t.store.GetBudget(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	if b == nil {
		return &model.Budget{ChatID: chatID, LastResetDate: today}, nil
	}
	if !b.LastResetDate.Equal(today) {
		b.LastResetDate = today
		b.SentToday = 0
	}
	return b, nil
}

func (t *Tracker) today() time.Time {
	y, m, d := t.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
