package download

import (
	"context"
)

// Manager streams remote genome assets into a local directory.
type Manager interface {
	// Fetch downloads a single item into opts.Dir and returns the absolute
	// local file path. The file only appears under its final name once the
	// transfer has completed.
	Fetch(ctx context.Context, item Item, opts Options) (string, error)
}

// Item represents one remote resource to download.
type Item struct {
	URL      string // source URL
	Filename string // optional local filename; derived from the URL path when empty
}

// Options control the behavior of the download manager.
type Options struct {
	Dir string // destination directory. Must be absolute.
}
