// Package fsutil provides utility functions and constants for file system operations.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates a directory and all necessary parent directories with default permissions if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeDefault)
}

// NewStagingDir creates a private working directory under root for building
// the contents of root/name. It lives on the same filesystem as its target so
// Publish can rename it into place.
func NewStagingDir(root, name string) (string, error) {
	if err := os.MkdirAll(root, DirModeDefault); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", root, err)
	}
	dir, err := os.MkdirTemp(root, "."+name+".staging-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory for %s: %w", name, err)
	}
	return dir, nil
}

// Publish renames the staging directory to dst. An existing dst is moved
// aside first and removed only after the new directory is in place, so dst
// always names either the old or the new complete tree.
func Publish(staging, dst string) error {
	if err := os.Chmod(staging, DirModeDefault); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", staging, err)
	}

	var backup string
	if _, err := os.Stat(dst); err == nil {
		backup = filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".old")
		_ = os.RemoveAll(backup)
		if err := os.Rename(dst, backup); err != nil {
			return fmt.Errorf("failed to move aside %s: %w", dst, err)
		}
	}

	if err := os.Rename(staging, dst); err != nil {
		if backup != "" {
			_ = os.Rename(backup, dst)
		}
		return fmt.Errorf("failed to publish %s: %w", dst, err)
	}

	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			return fmt.Errorf("failed to remove previous %s: %w", backup, err)
		}
	}
	return nil
}
