// Package source implements the listing source collaborators that feed the
// scan loop with normalized listing records.
package source

import (
	"context"
	"net/http"

	"realty_bot/internal/model"
)

// Lister fetches the current batch of listings from one site or feed.
type Lister interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Listing, error)
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const userAgent = "RealtyNotifyBot/1.0"

// maxBodySize caps how much of a response body is read.
const maxBodySize = 5 * 1024 * 1024
