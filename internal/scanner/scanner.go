// Package scanner runs the recurring ingest-merge-match-dispatch cycle.
package scanner

import (
	"context"
	"log/slog"
	"time"

	"realty_bot/internal/dispatch"
	"realty_bot/internal/match"
	"realty_bot/internal/source"
	"realty_bot/internal/storage"
)

// Scanner periodically pulls listings from the configured sources, merges
// them into the store, and dispatches matches to every subscriber.
type Scanner struct {
	store      storage.Storage
	sources    []source.Lister
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger
	interval   time.Duration
}

// New creates a Scanner.
func New(store storage.Storage, sources []source.Lister, d *dispatch.Dispatcher, interval time.Duration, log *slog.Logger) *Scanner {
	return &Scanner{
		store:      store,
		sources:    sources,
		dispatcher: d,
		log:        log,
		interval:   interval,
	}
}

// Run starts the scan loop, blocking until ctx is cancelled. The first cycle
// runs immediately. A failed cycle is logged and the loop continues.
func (s *Scanner) Run(ctx context.Context) {
	s.scanOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanOnce(ctx)
		}
	}
}

func (s *Scanner) scanOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.log.Debug("scan cycle start")

	added := s.ingest(ctx)
	if added > 0 {
		s.log.Info("new listings merged", "count", added)
	}

	subs, err := s.store.ListSubscriptions(ctx)
	if err != nil {
		s.log.Error("list subscriptions", "error", err)
		return
	}

	for _, sub := range subs {
		if ctx.Err() != nil {
			return
		}

		// Re-read per subscription so listings marked processed for an
		// earlier subscriber in this cycle are no longer candidates.
		unprocessed, err := s.store.ListUnprocessed(ctx)
		if err != nil {
			s.log.Error("list unprocessed", "error", err)
			return
		}

		matched := match.Select(unprocessed, sub)
		if len(matched) == 0 {
			continue
		}

		sent := s.dispatcher.DeliverMatches(ctx, sub.ChatID, matched)
		if sent > 0 {
			s.log.Info("sent notifications", "chat_id", sub.ChatID, "count", sent)
		}
	}
}

// ingest fetches every source and merges the results. A failing source is
// logged and skipped; the cycle proceeds with whatever was collected.
func (s *Scanner) ingest(ctx context.Context) int {
	added := 0
	for _, src := range s.sources {
		if ctx.Err() != nil {
			return added
		}

		listings, err := src.Fetch(ctx)
		if err != nil {
			s.log.Error("fetch source", "source", src.Name(), "error", err)
			continue
		}

		n, err := s.store.MergeListings(ctx, listings)
		if err != nil {
			s.log.Error("merge listings", "source", src.Name(), "error", err)
			continue
		}
		added += n
	}
	return added
}
