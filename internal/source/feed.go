package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"realty_bot/internal/model"
	"realty_bot/internal/parse"
)

// Feed pulls listings from a listing-site RSS/Atom feed. The item link is
// the listing URL; the description carries "price, address" ("45000 ₽, 5 мин
// от метро"), split at the first comma before numeric extraction so the
// price digits are never mistaken for a distance.
type Feed struct {
	name   string
	url    string
	client HTTPClient
	now    func() time.Time
}

// NewFeed creates a feed-backed listing source.
func NewFeed(name, url string, client HTTPClient) *Feed {
	return &Feed{
		name:   name,
		url:    url,
		client: client,
		now:    time.Now,
	}
}

// Name returns the source name used in logs and listing records.
func (f *Feed) Name() string {
	return f.name
}

// Fetch downloads and parses the feed, mapping each item to a listing.
func (f *Feed) Fetch(ctx context.Context) ([]model.Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	now := f.now().UTC()
	var listings []model.Listing
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		priceText, address := splitDescription(item.Description)
		listings = append(listings, model.Listing{
			Source:        model.SourceFeed,
			Title:         item.Title,
			PriceText:     priceText,
			PriceValue:    parse.Price(priceText),
			Address:       address,
			DistanceValue: parse.Distance(address),
			URL:           item.Link,
			FetchedAt:     now,
		})
	}
	return listings, nil
}

// splitDescription cuts a "price, address" description at the first comma.
// Without a comma the whole text serves as both, and extraction falls back
// to Unbounded where no number fits.
func splitDescription(desc string) (priceText, address string) {
	before, after, found := strings.Cut(desc, ",")
	if !found {
		return strings.TrimSpace(desc), strings.TrimSpace(desc)
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
