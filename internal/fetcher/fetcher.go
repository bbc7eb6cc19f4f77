package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for talking to upstream catalog APIs.
type Fetcher interface {
	// Download fetches the URL with a GET and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// GetJSON fetches the URL and decodes the JSON response into out.
	GetJSON(ctx context.Context, url string, out any) error

	// PostJSON sends body as JSON to the URL and decodes the response into out.
	// Used for GraphQL endpoints.
	PostJSON(ctx context.Context, url string, body any, out any) error
}
