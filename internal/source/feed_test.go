package source

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"realty_bot/internal/model"
	"realty_bot/internal/parse"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

var ignoreFetchedAt = cmpopts.IgnoreFields(model.Listing{}, "FetchedAt")

func TestFeedFetch(t *testing.T) {
	xml := loadFixture(t, "../../testdata/feed.xml")

	tests := []struct {
		name      string
		transport *mockTransport
		want      []model.Listing
		wantErr   bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: xml, statusCode: 200},
			want: []model.Listing{
				{
					Source:        model.SourceFeed,
					Title:         "1-к квартира, 35 м²",
					PriceText:     "45000 ₽",
					PriceValue:    45000,
					Address:       "5 мин от метро Сокол",
					DistanceValue: 5,
					URL:           "https://listings.example/offer/1",
				},
				{
					Source:        model.SourceFeed,
					Title:         "2-к квартира, 54 м²",
					PriceText:     "60 000 ₽",
					PriceValue:    60000,
					Address:       "12 мин от метро",
					DistanceValue: 12,
					URL:           "https://listings.example/offer/2",
				},
				{
					Source:        model.SourceFeed,
					Title:         "Студия без цены",
					PriceText:     "цена договорная",
					PriceValue:    parse.Unbounded,
					Address:       "рядом с метро",
					DistanceValue: parse.Unbounded,
					URL:           "https://listings.example/offer/3",
				},
			},
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
		{
			name:      "invalid xml",
			transport: &mockTransport{body: "not xml at all", statusCode: 200},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFeed("test-feed", "https://listings.example/rss", tt.transport)
			got, err := f.Fetch(context.Background())

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// The linkless item must be dropped.
			if diff := cmp.Diff(tt.want, got, ignoreFetchedAt); diff != "" {
				t.Errorf("listings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
