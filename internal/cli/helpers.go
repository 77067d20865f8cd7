package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/annotation"
	"github.com/glorpus-work/gogenome/pkg/catalog"
	"github.com/glorpus-work/gogenome/pkg/config"
	"github.com/glorpus-work/gogenome/pkg/download"
	"github.com/glorpus-work/gogenome/pkg/fsutil"
	"github.com/glorpus-work/gogenome/pkg/http"
	"github.com/glorpus-work/gogenome/pkg/installer"
	"github.com/glorpus-work/gogenome/pkg/plugin"
	"github.com/glorpus-work/gogenome/pkg/provider"
	"github.com/glorpus-work/gogenome/pkg/tools"
	"github.com/olekukonko/tablewriter"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
)

// loadConfig reads the configuration file and sets up logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	logger.InitLogger(cfg.Settings.LogLevel, logger.FormatText)
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// app holds the collaborators every command works with.
type app struct {
	cfg      *config.Config
	cache    *catalog.Cache
	fetcher  *http.Client
	registry *provider.Registry
	runner   tools.Runner
}

// newApp loads the configuration and wires providers on top of the catalog
// cache. The caller must Close the app.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var store *catalog.DiskStore
	if err := fsutil.EnsureDir(cfg.Settings.CacheDir); err != nil {
		logger.Warn("Catalog cache disabled", logger.Fields{"error": err})
	} else if store, err = catalog.OpenDiskStore(cfg.GetCatalogCachePath()); err != nil {
		logger.Warn("Catalog cache disabled", logger.Fields{"error": err})
		store = nil
	}

	a := &app{
		cfg:     cfg,
		cache:   catalog.NewCache(cfg.Settings.CacheTTL, store),
		fetcher: http.NewClient(cfg.Settings.HTTPTimeout, cfg.Settings.UserAgent),
		runner:  tools.NewExecRunner(),
	}
	a.registry = provider.NewRegistry(provider.Deps{
		Fetcher:   a.fetcher,
		Cache:     a.cache,
		Endpoints: cfg.Endpoints,
	})
	return a, nil
}

// Close releases the catalog cache.
func (a *app) Close() error {
	return a.cache.Close()
}

// installer builds an installer running the configured plugins.
func (a *app) installer() (*installer.Installer, error) {
	plugins, err := plugin.Load(a.cfg.Settings.Plugins, a.cfg.Settings.PluginDir, a.runner)
	if err != nil {
		return nil, err
	}
	dl := download.NewManager(a.fetcher)
	return installer.New(a.cfg.Settings.GenomesDir, a.registry, dl, annotation.NewManager(dl, a.runner), a.runner, plugins), nil
}

// newTable returns a borderless table writing to stdout.
func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
