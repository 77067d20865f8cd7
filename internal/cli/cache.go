package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command with subcommands
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the catalog cache",
		Long:  "Provider catalogs are cached on disk. Clean the cache to fetch them again.",
	}

	cmd.AddCommand(
		newCacheCleanCmd(),
		newCacheDirCmd(),
	)

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Drop all cached catalogs",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var size int64
			if info, err := os.Stat(a.cfg.GetCatalogCachePath()); err == nil {
				size = info.Size()
			}
			if err := a.cache.Purge(); err != nil {
				return fmt.Errorf("failed to clean catalog cache: %w", err)
			}
			logger.Success("Catalog cache cleaned", logger.Fields{"file_size": humanize.IBytes(uint64(size))})
			return nil
		},
	}
}

func newCacheDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "Show cache directory path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Settings.CacheDir)
			return nil
		},
	}
}
