package download

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/glorpus-work/gogenome/internal/logger"
	pkgerrors "github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/fsutil"
	"github.com/glorpus-work/gogenome/pkg/http"
)

// ManagerImpl streams HTTP bodies to disk through a memory-aware buffer.
type ManagerImpl struct {
	fetcher http.Fetcher
	memory  func() (uint64, error)
}

// NewManager creates a new download manager on top of fetcher.
func NewManager(fetcher http.Fetcher) *ManagerImpl {
	return &ManagerImpl{
		fetcher: fetcher,
		memory:  AvailableMemory,
	}
}

// Fetch downloads a single item and returns the path to the downloaded file.
// On failure no file is left behind in opts.Dir.
func (m *ManagerImpl) Fetch(ctx context.Context, item Item, opts Options) (string, error) {
	if opts.Dir == "" || !filepath.IsAbs(opts.Dir) {
		return "", fmt.Errorf("download dir must be absolute: %s: %w", opts.Dir, pkgerrors.ErrInvalidPath)
	}
	filename, err := selectFilename(item)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(opts.Dir, fsutil.DirModeSecure); err != nil {
		return "", pkgerrors.Wrap(err, "could not create download dir")
	}
	absPath := filepath.Join(opts.Dir, filename)

	body, size, err := m.fetcher.Open(ctx, item.URL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	chunk := StreamChunkSize
	if available, err := m.memory(); err == nil {
		chunk = ChunkSize(size, available)
	} else {
		logger.Debug("could not determine available memory", logger.Fields{"error": err})
	}

	fields := logger.Fields{"url": item.URL, "file": filename, "chunk": humanize.IBytes(uint64(chunk))}
	if size > 0 {
		fields["size"] = humanize.IBytes(uint64(size))
	}
	logger.Debug("downloading", fields)

	start := time.Now()
	tmpPath, written, err := writeBodyToTemp(ctx, body, absPath, chunk)
	if err != nil {
		return "", err
	}
	if err := finalizeFile(tmpPath, absPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	logger.Debug("download complete", logger.Fields{
		"file":     filename,
		"size":     humanize.IBytes(uint64(written)),
		"duration": time.Since(start).Round(time.Millisecond).String(),
	})
	return absPath, nil
}

func selectFilename(item Item) (string, error) {
	if item.Filename != "" {
		return item.Filename, nil
	}
	u, err := url.Parse(item.URL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %v: %w", item.URL, err, pkgerrors.ErrDownloadFailed)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "", fmt.Errorf("cannot derive a filename from %s: %w", item.URL, pkgerrors.ErrInvalidPath)
	}
	return name, nil
}

// ctxReader stops a copy as soon as the context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func writeBodyToTemp(ctx context.Context, body io.Reader, absPath string, chunk int) (string, int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(absPath), "dl-*.tmp")
	if err != nil {
		return "", 0, pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()
	fail := func(err error, msg string) (string, int64, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", 0, pkgerrors.Wrap(err, msg)
	}

	// *os.File implements io.ReaderFrom, which would bypass the chunk buffer.
	written, err := io.CopyBuffer(struct{ io.Writer }{tmp}, ctxReader{ctx: ctx, r: body}, make([]byte, chunk))
	if err != nil {
		if ctx.Err() != nil {
			return fail(fmt.Errorf("%w: %w", pkgerrors.ErrDownloadFailed, ctx.Err()), "transfer interrupted")
		}
		return fail(fmt.Errorf("%w: %w", err, pkgerrors.ErrDownloadFailed), "could not write file")
	}
	if err := tmp.Sync(); err != nil {
		return fail(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, pkgerrors.Wrap(err, "could not close file")
	}
	return tmpPath, written, nil
}

func finalizeFile(tmpPath, absPath string) error {
	if err := os.Rename(tmpPath, absPath); err != nil {
		return pkgerrors.Wrap(err, "could not finalize file")
	}
	if err := os.Chmod(absPath, fsutil.FileModeDefault); err != nil {
		return pkgerrors.Wrap(err, "could not set permissions")
	}
	return nil
}
