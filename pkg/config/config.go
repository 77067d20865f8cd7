// Package config provides configuration management for gogenome.
// It handles loading, validating and saving application settings from a YAML
// file and provides sensible defaults for everything that is left unset.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Settings  Settings  `yaml:"settings"`
	Endpoints Endpoints `yaml:"endpoints,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	// Storage
	GenomesDir string `yaml:"genomes_dir,omitempty"`
	CacheDir   string `yaml:"cache_dir,omitempty"`

	// Catalog cache expiry
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// Network settings
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	UserAgent   string        `yaml:"user_agent,omitempty"`

	// Pipeline defaults
	BGZip   bool `yaml:"bgzip"`
	Threads int  `yaml:"threads"`

	// Plugins run after every genome install, in this order
	Plugins   []string `yaml:"plugins,omitempty"`
	PluginDir string   `yaml:"plugin_dir,omitempty"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// Endpoints overrides provider base URLs, e.g. for mirrors. Empty fields use
// the provider defaults.
type Endpoints struct {
	EnsemblREST     string `yaml:"ensembl_rest,omitempty"`
	EnsemblFTP      string `yaml:"ensembl_ftp,omitempty"`
	EnsemblGenomes  string `yaml:"ensembl_genomes_ftp,omitempty"`
	UCSCREST        string `yaml:"ucsc_rest,omitempty"`
	UCSCDownload    string `yaml:"ucsc_download,omitempty"`
	NCBIAssemblyDir string `yaml:"ncbi_assembly_reports,omitempty"`
}

// Default configuration values.
const (
	// DefaultCacheTTL is how long a provider catalog stays valid on disk.
	DefaultCacheTTL = 7 * 24 * time.Hour

	// DefaultHTTPTimeout bounds connecting and waiting for response headers.
	// Body transfers of large assets are bounded by the caller's context only.
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "gogenome/0.1"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	genomesDir, err := fsutil.GetGenomesDir()
	if err != nil {
		genomesDir = filepath.Join(".", "genomes")
	}
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), fsutil.AppName)
	}

	return &Config{
		Settings: Settings{
			GenomesDir:  genomesDir,
			CacheDir:    cacheDir,
			PluginDir:   filepath.Join(filepath.Dir(genomesDir), "plugins"),
			CacheTTL:    DefaultCacheTTL,
			HTTPTimeout: DefaultHTTPTimeout,
			UserAgent:   DefaultUserAgent,
			Threads:     max(1, runtime.NumCPU()/2),
			LogLevel:    "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig saves configuration to a file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	s := c.Settings
	if s.HTTPTimeout < 0 {
		return errors.ErrHTTPTimeoutNegative
	}
	if s.CacheTTL < 0 {
		return errors.ErrCacheTTLNegative
	}
	if s.Threads < 1 {
		return errors.ErrThreadsInvalid
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return fmt.Errorf("%w: %s", errors.ErrInvalidLogLevel, s.LogLevel)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, fsutil.AppName, "config.yaml"), nil
}

// GetCatalogCachePath returns the path of the on-disk catalog database.
func (c *Config) GetCatalogCachePath() string {
	return filepath.Join(c.Settings.CacheDir, "catalog.db")
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.GenomesDir == "" {
		c.Settings.GenomesDir = defaults.Settings.GenomesDir
	}
	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = defaults.Settings.CacheDir
	}
	if c.Settings.CacheTTL == 0 {
		c.Settings.CacheTTL = defaults.Settings.CacheTTL
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.UserAgent == "" {
		c.Settings.UserAgent = defaults.Settings.UserAgent
	}
	if c.Settings.Threads == 0 {
		c.Settings.Threads = defaults.Settings.Threads
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.PluginDir == "" {
		c.Settings.PluginDir = filepath.Join(filepath.Dir(c.Settings.GenomesDir), "plugins")
	}
}
