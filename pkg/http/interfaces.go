//go:generate mockgen -destination=mocks/http.go . Fetcher
package http

import (
	"context"
	"io"
)

// Fetcher is the read-only HTTP surface used by providers and the transfer engine.
type Fetcher interface {
	// Open issues a GET and returns the body of a 200 response together with
	// its advertised length (-1 when unknown). The caller closes the body.
	Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error)

	// GetText returns the body of rawURL as a string.
	GetText(ctx context.Context, rawURL string) (string, error)

	// GetJSON decodes the JSON body of rawURL into v.
	GetJSON(ctx context.Context, rawURL string, v any) error

	// Exists reports whether rawURL answers a HEAD request with 200.
	Exists(ctx context.Context, rawURL string) (bool, error)

	// ListLinks returns the href targets of an HTML directory listing.
	ListLinks(ctx context.Context, rawURL string) ([]string, error)
}
