package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/errors"
	gocache "github.com/patrickmn/go-cache"
	"github.com/ugorji/go/codec"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is how long a fetched catalog stays valid.
	DefaultTTL = 7 * 24 * time.Hour
	// FetchTimeout bounds a single catalog fetch.
	FetchTimeout = 15 * time.Minute
)

// Cache memoizes catalog fetches. Values live in memory for the process and,
// when a DiskStore is attached, on disk until ttl expires. Concurrent misses
// on the same key share a single fetch.
type Cache struct {
	mem   *gocache.Cache
	group singleflight.Group
	disk  *DiskStore
	ttl   time.Duration
	ch    codec.Handle
	now   func() time.Time
}

// NewCache creates a cache with the given expiry. disk may be nil.
func NewCache(ttl time.Duration, disk *DiskStore) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		mem:  gocache.New(ttl, 10*time.Minute),
		disk: disk,
		ttl:  ttl,
		ch:   new(codec.BincHandle),
		now:  time.Now,
	}
}

// Key builds a cache key from a provider name, an operation and its arguments.
func Key(provider, op string, args ...string) string {
	parts := append([]string{strings.ToLower(provider), op}, args...)
	return strings.Join(parts, "|")
}

// Load returns the value cached under key, calling fetch on a miss. A fetch
// error is returned to every waiting caller and nothing is cached. The shared
// fetch is not tied to any one caller's cancellation: a caller whose ctx is
// done returns ctx.Err() while the others keep waiting for the result. The
// fetch itself is bounded by FetchTimeout.
func Load[T any](ctx context.Context, c *Cache, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := c.mem.Get(key); ok {
		return v.(T), nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.mem.Get(key); ok {
			return v, nil
		}
		var val T
		if c.loadDisk(key, &val) {
			c.mem.SetDefault(key, val)
			return val, nil
		}

		logger.Debug("catalog cache miss", logger.Fields{"key": key})
		fctx, cancel := context.WithTimeout(fetchCtx, FetchTimeout)
		defer cancel()
		val, err := fetch(fctx)
		if err != nil {
			return val, err
		}
		c.mem.SetDefault(key, val)
		c.storeDisk(key, val)
		return val, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			logger.Debug("catalog fetch shared", logger.Fields{"key": key})
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Purge drops every cached catalog from memory and disk.
func (c *Cache) Purge() error {
	c.mem.Flush()
	if c.disk == nil {
		return nil
	}
	return c.disk.Purge()
}

// Close closes the attached DiskStore, if any.
func (c *Cache) Close() error {
	if c.disk == nil {
		return nil
	}
	return c.disk.Close()
}

func (c *Cache) loadDisk(key string, out any) bool {
	if c.disk == nil {
		return false
	}
	payload, fetchedAt, ok, err := c.disk.Get(key)
	if err != nil {
		logger.Warn("ignoring unreadable catalog cache entry", logger.Fields{"key": key, "error": err})
		return false
	}
	if !ok || c.now().Sub(fetchedAt) > c.ttl {
		return false
	}
	if err := codec.NewDecoderBytes(payload, c.ch).Decode(out); err != nil {
		logger.Warn("ignoring undecodable catalog cache entry", logger.Fields{"key": key, "error": err})
		return false
	}
	return true
}

func (c *Cache) storeDisk(key string, val any) {
	if c.disk == nil {
		return
	}
	var payload []byte
	if err := codec.NewEncoderBytes(&payload, c.ch).Encode(val); err != nil {
		logger.Warn("catalog not persisted", logger.Fields{"key": key, "error": fmt.Errorf("%w: %v", errors.ErrCacheEncode, err)})
		return
	}
	if err := c.disk.Put(key, payload, c.now()); err != nil {
		logger.Warn("catalog not persisted", logger.Fields{"key": key, "error": err})
	}
}
