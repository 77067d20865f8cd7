package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	// AppName is the name of the application used in paths
	AppName = "gogenome"
)

// GetCacheDir returns the platform-specific cache directory for the application
// On Linux: ~/.cache/gogenome/
// On macOS: ~/Library/Caches/gogenome/
func GetCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// GetDataDir returns the platform-specific data directory for the application
// On Linux: $XDG_DATA_HOME/gogenome or ~/.local/share/gogenome/
// On macOS: ~/Library/Application Support/gogenome/
func GetDataDir() (string, error) {
	if runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName), nil
	}
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}

// GetGenomesDir returns the default genome storage root: <data_dir>/genomes/
func GetGenomesDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "genomes"), nil
}
