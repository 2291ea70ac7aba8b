package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"realty_bot/internal/model"
	"realty_bot/migrations"
)

const (
	timeLayout = "2006-01-02T15:04:05Z"
	dateLayout = "2006-01-02"
)

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// MergeListings inserts listings whose normalized URL is not yet stored and
// returns the number of rows actually added. Insertion order is preserved
// through the autoincrement id.
func (s *SQLite) MergeListings(ctx context.Context, listings []model.Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	added := 0
	for _, l := range listings {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO listings
			 (url, url_key, source, title, price_text, price_value, address, distance_value, fetched_at, processed)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.URL, NormalizeURL(l.URL), string(l.Source), l.Title, l.PriceText, l.PriceValue,
			l.Address, l.DistanceValue, l.FetchedAt.UTC().Format(timeLayout), boolToInt(l.Processed),
		)
		if err != nil {
			return 0, fmt.Errorf("insert listing: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}

// ListUnprocessed returns all unprocessed listings, oldest first.
func (s *SQLite) ListUnprocessed(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, source, title, price_text, price_value, address, distance_value, fetched_at, processed
		 FROM listings WHERE processed = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanListings(rows)
}

// MarkProcessed flips the processed flag for the listing with the given URL.
// Unknown URLs are a no-op.
func (s *SQLite) MarkProcessed(ctx context.Context, url string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE listings SET processed = 1 WHERE url_key = ?`, NormalizeURL(url),
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// UpsertSubscription creates or replaces the subscription for a chat and
// populates its CreatedAt.
func (s *SQLite) UpsertSubscription(ctx context.Context, sub *model.Subscription) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (chat_id, max_price, max_distance, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   max_price = excluded.max_price,
		   max_distance = excluded.max_distance,
		   created_at = excluded.created_at`,
		sub.ChatID, sub.MaxPrice, sub.MaxDistance, now,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	sub.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetSubscription returns the subscription for a chat, or nil if absent.
func (s *SQLite) GetSubscription(ctx context.Context, chatID int64) (*model.Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chat_id, max_price, max_distance, created_at FROM subscriptions WHERE chat_id = ?`,
		chatID,
	)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubscriptions returns all subscriptions ordered by chat ID.
func (s *SQLite) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, max_price, max_distance, created_at FROM subscriptions ORDER BY chat_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// DeleteSubscription removes the subscription for a chat and reports whether
// one existed.
func (s *SQLite) DeleteSubscription(ctx context.Context, chatID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// GetBudget returns the notification budget for a chat, or nil if none has
// been recorded yet.
func (s *SQLite) GetBudget(ctx context.Context, chatID int64) (*model.Budget, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chat_id, last_reset_date, sent_today FROM budgets WHERE chat_id = ?`, chatID,
	)
	var b model.Budget
	var dateStr string
	err := row.Scan(&b.ChatID, &dateStr, &b.SentToday)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan budget: %w", err)
	}
	b.LastResetDate, err = time.Parse(dateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse budget date: %w", err)
	}
	return &b, nil
}

// SaveBudget creates or replaces the budget record for a chat.
func (s *SQLite) SaveBudget(ctx context.Context, b *model.Budget) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (chat_id, last_reset_date, sent_today)
		 VALUES (?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   last_reset_date = excluded.last_reset_date,
		   sent_today = excluded.sent_today`,
		b.ChatID, b.LastResetDate.UTC().Format(dateLayout), b.SentToday,
	)
	if err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanListing(row scannable) (model.Listing, error) {
	var l model.Listing
	var source, fetched string
	var processed int
	err := row.Scan(&l.URL, &source, &l.Title, &l.PriceText, &l.PriceValue,
		&l.Address, &l.DistanceValue, &fetched, &processed)
	if err != nil {
		return l, fmt.Errorf("scan listing: %w", err)
	}
	l.Source = model.Source(source)
	l.Processed = processed == 1
	l.FetchedAt, _ = time.Parse(timeLayout, fetched)
	return l, nil
}

func scanListings(rows *sql.Rows) ([]model.Listing, error) {
	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func scanSubscription(row scannable) (*model.Subscription, error) {
	var sub model.Subscription
	var created string
	err := row.Scan(&sub.ChatID, &sub.MaxPrice, &sub.MaxDistance, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.CreatedAt, _ = time.Parse(timeLayout, created)
	return &sub, nil
}
