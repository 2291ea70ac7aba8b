// Package dispatch sends listing notifications within the daily budget.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"realty_bot/internal/budget"
	"realty_bot/internal/model"
	"realty_bot/internal/storage"
)

// Status is the outcome of one delivery attempt.
type Status int

// Delivery outcomes.
const (
	// StatusSent means the notification went out and the listing was marked
	// processed.
	StatusSent Status = iota
	// StatusSkipped means the daily budget was exhausted; the transport was
	// not contacted and the listing stays unprocessed.
	StatusSkipped
	// StatusFailed means the transport rejected the send. The budget slot is
	// not refunded and the listing stays unprocessed for the next cycle.
	StatusFailed
)

// Sender is the transport used to deliver notifications.
type Sender interface {
	Notify(chatID int64, text string) error
}

// Formatter renders a listing into the outbound notification text.
type Formatter func(model.Listing) string

// Dispatcher sends one notification at a time per the configured pacing,
// consuming the chat's daily budget first.
type Dispatcher struct {
	store   storage.Storage
	tracker *budget.Tracker
	sender  Sender
	format  Formatter
	limiter *rate.Limiter
	log     *slog.Logger

	mu         sync.Mutex
	noticeSent map[int64]time.Time // last date a limit notice went to a chat
}

// New creates a Dispatcher. delay is the minimum spacing between consecutive
// sends across all chats, enforced with a rate limiter.
func New(store storage.Storage, tracker *budget.Tracker, sender Sender, format Formatter, delay time.Duration, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		tracker:    tracker,
		sender:     sender,
		format:     format,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		log:        log,
		noticeSent: make(map[int64]time.Time),
	}
}

// Deliver sends one listing notification to a chat. The budget is consumed
// before the transport is contacted; a slot spent on a failed send is not
// refunded (at-most-once spend is the documented policy).
func (d *Dispatcher) Deliver(ctx context.Context, chatID int64, listing model.Listing) (Status, error) {
	allowed, err := d.tracker.TryConsume(ctx, chatID)
	if err != nil {
		return StatusFailed, err
	}
	if !allowed {
		return StatusSkipped, nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return StatusFailed, err
	}

	if err := d.sender.Notify(chatID, d.format(listing)); err != nil {
		d.log.Error("send notification", "chat_id", chatID, "url", listing.URL, "error", err)
		return StatusFailed, nil
	}

	if err := d.store.MarkProcessed(ctx, listing.URL); err != nil {
		d.log.Error("mark processed", "url", listing.URL, "error", err)
	}
	return StatusSent, nil
}

// DeliverMatches walks matched listings in order, delivering each. Failed
// sends are skipped over; the walk stops once the budget denies. Returns the
// number of notifications sent.
func (d *Dispatcher) DeliverMatches(ctx context.Context, chatID int64, listings []model.Listing) int {
	sent := 0
	for _, l := range listings {
		if ctx.Err() != nil {
			return sent
		}

		status, err := d.Deliver(ctx, chatID, l)
		if err != nil {
			d.log.Error("deliver", "chat_id", chatID, "url", l.URL, "error", err)
			continue
		}

		switch status {
		case StatusSent:
			sent++
		case StatusSkipped:
			d.notifyLimit(chatID)
			return sent
		case StatusFailed:
			// Logged in Deliver; the listing stays eligible for the next cycle.
		}
	}
	return sent
}

// notifyLimit tells the chat its daily cap was hit, at most once per day.
func (d *Dispatcher) notifyLimit(chatID int64) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	d.mu.Lock()
	last, ok := d.noticeSent[chatID]
	if ok && last.Equal(today) {
		d.mu.Unlock()
		return
	}
	d.noticeSent[chatID] = today
	d.mu.Unlock()

	text := FormatLimitNotice(d.tracker.MaxDaily())
	if err := d.sender.Notify(chatID, text); err != nil {
		d.log.Error("send limit notice", "chat_id", chatID, "error", err)
	}
}
