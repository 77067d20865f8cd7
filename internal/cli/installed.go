package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/annotation"
	"github.com/glorpus-work/gogenome/pkg/fsutil"
	"github.com/glorpus-work/gogenome/pkg/genome"
	"github.com/spf13/cobra"
)

// NewInstalledCmd creates the installed command.
func NewInstalledCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "installed",
		Short: "List installed genomes",
		Long:  "List the genomes in the genomes directory with their provider and size",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInstalled()
		},
	}

	return cmd
}

func runInstalled() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	genomes, err := genome.ListInstalled(cfg.Settings.GenomesDir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", cfg.Settings.GenomesDir, err)
	}
	if len(genomes) == 0 {
		logger.Infof("No genomes installed in %s", cfg.Settings.GenomesDir)
		return nil
	}

	table := newTable("NAME", "PROVIDER", "SIZE", "ANNOTATION", "DIRECTORY")
	for _, g := range genomes {
		providerName, annot := "unknown", "no"
		if r, err := genome.ReadReadme(g.ReadmePath()); err == nil {
			if v, ok := r.Get("provider"); ok {
				providerName = v
			}
			if _, ok := r.Get(annotation.ReadmeKey); ok && fsutil.Exists(g.AnnotationGTFPath()) {
				annot = "yes"
			}
		}
		size := "-"
		if info, err := os.Stat(g.FastaPath()); err == nil {
			size = humanize.IBytes(uint64(info.Size()))
		}
		table.Append([]string{g.Name, providerName, size, annot, g.Dir})
	}
	table.Render()
	return nil
}
