// Package testutil holds helpers shared by tests: a fake genome web server,
// gzip fixtures and throwaway configurations.
package testutil

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glorpus-work/gogenome/pkg/config"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/require"
)

// Remote is a fake of the provider web services. Paths map to bodies; HEAD
// and GET on unknown paths answer 404. Requests are counted per path.
type Remote struct {
	*httptest.Server

	mu    sync.Mutex
	files map[string]string
	hits  map[string]int
}

// NewRemote starts a Remote serving files. The server is closed when the test ends.
func NewRemote(t *testing.T, files map[string]string) *Remote {
	t.Helper()
	r := &Remote{files: make(map[string]string, len(files)), hits: make(map[string]int)}
	for k, v := range files {
		r.files[k] = v
	}
	r.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.hits[req.URL.Path]++
		body, ok := r.files[req.URL.Path]
		r.mu.Unlock()
		if !ok {
			http.NotFound(w, req)
			return
		}
		if req.Method == http.MethodHead {
			w.Header().Set("Content-Length", fmt.Sprint(len(body)))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(r.Close)
	return r
}

// Set serves body at path.
func (r *Remote) Set(path, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[path] = body
}

// HitCount returns how often path was requested.
func (r *Remote) HitCount(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[path]
}

// Gzip returns s gzip compressed.
func Gzip(t *testing.T, s string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.String()
}

// WriteConfig stores a configuration below root that keeps genomes, cache and
// plugins inside root, and returns its path.
func WriteConfig(t *testing.T, root string) string {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Settings.GenomesDir = filepath.Join(root, "genomes")
	cfg.Settings.CacheDir = filepath.Join(root, "cache")
	cfg.Settings.PluginDir = filepath.Join(root, "plugins")
	cfg.Settings.Threads = 1
	path := filepath.Join(root, "config.yaml")
	require.NoError(t, cfg.SaveConfig(path))
	return path
}
