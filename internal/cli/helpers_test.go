package cli

import (
	"path/filepath"
	"testing"

	"github.com/glorpus-work/gogenome/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Homo sapiens", truncate("  Homo sapiens ", 20))
	assert.Equal(t, "Homo sa...", truncate("Homo sapiens", 10))
	assert.Equal(t, "abc", truncate("abc", 2))
}

func TestNewApp(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Settings.GenomesDir = filepath.Join(root, "genomes")
	cfg.Settings.CacheDir = filepath.Join(root, "cache")
	cfg.Settings.Plugins = []string{"minimap2"}
	path := filepath.Join(root, "config.yaml")
	require.NoError(t, cfg.SaveConfig(path))
	ConfigPath = &path
	t.Cleanup(func() { ConfigPath = nil })

	a, err := newApp()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	for _, name := range []string{"ensembl", "UCSC", "ncbi", "url"} {
		_, err := a.registry.Create(name)
		assert.NoError(t, err, name)
	}
	inst, err := a.installer()
	require.NoError(t, err)
	assert.Equal(t, cfg.Settings.GenomesDir, inst.GenomesDir)
	require.Len(t, inst.Plugins, 1)
	assert.FileExists(t, filepath.Join(root, "cache", "catalog.db"))
}
