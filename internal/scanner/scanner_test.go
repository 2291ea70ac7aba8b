package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"realty_bot/internal/budget"
	"realty_bot/internal/dispatch"
	"realty_bot/internal/model"
	"realty_bot/internal/source"
	"realty_bot/internal/storage"
)

type sentMessage struct {
	ChatID int64
	Text   string
}

type mockSender struct {
	mu       sync.Mutex
	messages []sentMessage
}

func (m *mockSender) Notify(chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (m *mockSender) getMessages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]sentMessage, len(m.messages))
	copy(cp, m.messages)
	return cp
}

type stubSource struct {
	name     string
	listings []model.Listing
	err      error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(_ context.Context) ([]model.Listing, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.listings, nil
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeListing(i int, price, distance int64) model.Listing {
	return model.Listing{
		Source:        model.SourceCian,
		Title:         fmt.Sprintf("Listing %d", i),
		PriceText:     fmt.Sprintf("%d ₽", price),
		PriceValue:    price,
		Address:       fmt.Sprintf("%d мин от метро", distance),
		DistanceValue: distance,
		URL:           fmt.Sprintf("https://cian.ru/offer/%d", i),
		FetchedAt:     time.Now().UTC(),
	}
}

func seedSubscription(t *testing.T, store *storage.SQLite, chatID, maxPrice, maxDistance int64) {
	t.Helper()
	sub := &model.Subscription{ChatID: chatID, MaxPrice: maxPrice, MaxDistance: maxDistance}
	if err := store.UpsertSubscription(context.Background(), sub); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
}

func newTestScanner(t *testing.T, store *storage.SQLite, sources []source.Lister, sender *mockSender, maxDaily int) *Scanner {
	t.Helper()
	tracker := budget.New(store, maxDaily)
	d := dispatch.New(store, tracker, sender, func(l model.Listing) string { return l.URL }, time.Millisecond, testLog())
	return New(store, sources, d, time.Hour, testLog())
}

func TestScanCycleDispatchesMatches(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedSubscription(t, store, 100, 50000, 15)

	src := &stubSource{name: "cian", listings: []model.Listing{
		makeListing(1, 45000, 10),
		makeListing(2, 90000, 10),
	}}
	sender := &mockSender{}
	sc := newTestScanner(t, store, []source.Lister{src}, sender, 5)

	sc.scanOnce(ctx)

	msgs := sender.getMessages()
	if diff := cmp.Diff(1, len(msgs)); diff != "" {
		t.Fatalf("message count (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sentMessage{ChatID: 100, Text: "https://cian.ru/offer/1"}, msgs[0]); diff != "" {
		t.Errorf("message (-want +got):\n%s", diff)
	}

	// The matching listing is consumed; the non-matching one stays eligible.
	unprocessed, err := store.ListUnprocessed(ctx)
	if err != nil {
		t.Fatalf("list unprocessed: %v", err)
	}
	if len(unprocessed) != 1 || unprocessed[0].URL != "https://cian.ru/offer/2" {
		t.Errorf("unexpected unprocessed listings: %+v", unprocessed)
	}
}

func TestSecondCycleSendsNothing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedSubscription(t, store, 100, 50000, 15)

	src := &stubSource{name: "cian", listings: []model.Listing{
		makeListing(1, 45000, 10),
	}}
	sender := &mockSender{}
	sc := newTestScanner(t, store, []source.Lister{src}, sender, 5)

	sc.scanOnce(ctx)
	sc.scanOnce(ctx)

	// The source returns the same listing again, but the merge dedups it and
	// the first cycle already marked it processed.
	if diff := cmp.Diff(1, len(sender.getMessages())); diff != "" {
		t.Errorf("message count after two cycles (-want +got):\n%s", diff)
	}
}

func TestScanSourceFailureContinues(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedSubscription(t, store, 100, 50000, 15)

	bad := &stubSource{name: "cian", err: errors.New("blocked")}
	good := &stubSource{name: "yandex", listings: []model.Listing{
		makeListing(1, 45000, 10),
	}}
	sender := &mockSender{}
	sc := newTestScanner(t, store, []source.Lister{bad, good}, sender, 5)

	sc.scanOnce(ctx)

	if diff := cmp.Diff(1, len(sender.getMessages())); diff != "" {
		t.Errorf("expected the healthy source to still deliver (-want +got):\n%s", diff)
	}
}

func TestScanProcessedSharedAcrossSubscribers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedSubscription(t, store, 100, 50000, 15)
	seedSubscription(t, store, 200, 50000, 15)

	src := &stubSource{name: "cian", listings: []model.Listing{
		makeListing(1, 45000, 10),
	}}
	sender := &mockSender{}
	sc := newTestScanner(t, store, []source.Lister{src}, sender, 5)

	sc.scanOnce(ctx)

	// One listing, one notification: whoever is served first consumes it.
	msgs := sender.getMessages()
	if diff := cmp.Diff(1, len(msgs)); diff != "" {
		t.Errorf("message count (-want +got):\n%s", diff)
	}
}

func TestScanStopsAtDailyBudget(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedSubscription(t, store, 100, 50000, 15)

	src := &stubSource{name: "cian", listings: []model.Listing{
		makeListing(1, 45000, 10),
		makeListing(2, 46000, 10),
		makeListing(3, 47000, 10),
	}}
	sender := &mockSender{}
	sc := newTestScanner(t, store, []source.Lister{src}, sender, 1)

	sc.scanOnce(ctx)

	msgs := sender.getMessages()
	// One notification plus the daily limit notice.
	if diff := cmp.Diff(2, len(msgs)); diff != "" {
		t.Fatalf("message count (-want +got):\n%s", diff)
	}
	if !strings.Contains(msgs[1].Text, "limit") {
		t.Errorf("expected a limit notice, got %q", msgs[1].Text)
	}

	unprocessed, err := store.ListUnprocessed(ctx)
	if err != nil {
		t.Fatalf("list unprocessed: %v", err)
	}
	if diff := cmp.Diff(2, len(unprocessed)); diff != "" {
		t.Errorf("undelivered listings must stay eligible (-want +got):\n%s", diff)
	}
}

func TestScanCancelledContext(t *testing.T) {
	store := newTestStore(t)
	seedSubscription(t, store, 100, 50000, 15)

	src := &stubSource{name: "cian", listings: []model.Listing{
		makeListing(1, 45000, 10),
	}}
	sender := &mockSender{}
	sc := newTestScanner(t, store, []source.Lister{src}, sender, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sc.scanOnce(ctx)

	if diff := cmp.Diff(0, len(sender.getMessages())); diff != "" {
		t.Errorf("expected no messages when context cancelled (-want +got):\n%s", diff)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	sender := &mockSender{}
	src := &stubSource{name: "cian"}
	tracker := budget.New(store, 5)
	d := dispatch.New(store, tracker, sender, func(l model.Listing) string { return l.URL }, time.Millisecond, testLog())
	sc := New(store, []source.Lister{src}, d, 10*time.Millisecond, testLog())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sc.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
