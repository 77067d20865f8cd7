package plugin

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/fsutil"
	"github.com/glorpus-work/gogenome/pkg/genome"
	"github.com/glorpus-work/gogenome/pkg/tools"
)

// Minimap2 builds a minimap2 index at <genome>/index/minimap2/<name>.mmi.
type Minimap2 struct {
	runner tools.Runner
}

// NewMinimap2 creates the minimap2 plugin.
func NewMinimap2(runner tools.Runner) *Minimap2 {
	return &Minimap2{runner: runner}
}

// Name implements Plugin.
func (p *Minimap2) Name() string { return "minimap2" }

// IndexPath returns the index file of g.
func (p *Minimap2) IndexPath(g *genome.Genome) string {
	return filepath.Join(g.IndexDir(p.Name()), g.Name+".mmi")
}

// AfterGenomeDownload implements Plugin. It does nothing when minimap2 is
// not installed or an index already exists.
func (p *Minimap2) AfterGenomeDownload(ctx context.Context, g *genome.Genome, threads int, force bool) error {
	if !p.runner.Available("minimap2") {
		logger.Debug("minimap2 not found, skipping index", logger.Fields{"genome": g.Name})
		return nil
	}

	dir := g.IndexDir(p.Name())
	if force {
		if err := os.RemoveAll(dir); err != nil {
			return errors.Wrapf(err, "failed to remove %s", dir)
		}
	}
	index := p.IndexPath(g)
	if fsutil.Exists(index) {
		return nil
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}

	logger.Info("Building minimap2 index", logger.Fields{"genome": g.Name})
	tmp := index + ".tmp"
	if err := p.runner.Run(ctx, "minimap2", "-t", strconv.Itoa(max(threads, 1)), "-d", tmp, g.FastaPath()); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, index)
}
