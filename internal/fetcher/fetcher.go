package fetcher

import (
	"context"
	"io"
)

// Fetcher is what the provider clients need from the HTTP layer: GET for the
// PWA pages, POST for the Live Heats GraphQL endpoint.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// PostJSON sends a JSON payload and returns the response body.
	PostJSON(ctx context.Context, url string, payload []byte) (io.ReadCloser, error)
}
