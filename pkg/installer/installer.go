// Package installer acquires genomes: it resolves a download link through a
// provider, stages and post-processes the sequence, publishes it under the
// genomes directory and then adds sidecar files, the annotation and plugin
// output.
package installer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/archive"
	"github.com/glorpus-work/gogenome/pkg/download"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/fasta"
	"github.com/glorpus-work/gogenome/pkg/fsutil"
	"github.com/glorpus-work/gogenome/pkg/genome"
	"github.com/glorpus-work/gogenome/pkg/plugin"
	"github.com/glorpus-work/gogenome/pkg/provider"
	"github.com/glorpus-work/gogenome/pkg/tools"
	"github.com/hashicorp/go-multierror"
)

// Installer ties providers, downloads, annotations and plugins together.
type Installer struct {
	GenomesDir  string
	Providers   Providers
	DL          download.Manager
	Annotations Annotator
	Runner      tools.Runner
	Plugins     []plugin.Plugin
	Hooks       Hooks // Hooks for progress and event notifications

	archives *archive.Manager
	now      func() time.Time
}

// New creates an Installer storing genomes below genomesDir.
func New(genomesDir string, providers Providers, dl download.Manager, annotations Annotator, runner tools.Runner, plugins []plugin.Plugin) *Installer {
	return &Installer{
		GenomesDir:  genomesDir,
		Providers:   providers,
		DL:          dl,
		Annotations: annotations,
		Runner:      runner,
		Plugins:     plugins,
		archives:    archive.NewManager(),
		now:         time.Now,
	}
}

// Install installs the genome described by d: the sequence when it is
// missing (or on force), sizes and gaps when missing, the annotation when
// requested and finally the plugins. Only a failing genome download fails
// the install; annotation and plugin problems are logged as warnings.
func (i *Installer) Install(ctx context.Context, d genome.Descriptor, opts Options) (*genome.Genome, error) {
	p, err := i.Providers.Create(d.Provider)
	if err != nil {
		return nil, err
	}
	g := genome.New(i.GenomesDir, genome.LocalName(d.RemoteName, d.LocalName))

	if !opts.OnlyAnnotation && (opts.Force || !g.Installed()) {
		if _, err := i.DownloadGenome(ctx, p, d, opts); err != nil {
			emit(i.Hooks, Event{Phase: "error", ID: g.Name, Msg: err.Error()})
			return nil, err
		}
	} else if g.Installed() {
		logger.Debug("genome already installed", logger.Fields{"genome": g.Name, "dir": g.Dir})
	}

	if g.Installed() {
		if err := i.writeSidecars(g, opts.Force); err != nil {
			return nil, err
		}
	}

	if opts.wantsAnnotation() && (opts.Force || !fsutil.Exists(g.AnnotationGTFPath())) {
		if err := i.installAnnotation(ctx, p, d, g, opts); err != nil {
			logger.Warn("Annotation not installed", logger.Fields{"genome": g.Name, "error": err.Error()})
			emit(i.Hooks, Event{Phase: "warning", ID: g.Name, Msg: err.Error()})
		}
	}

	if g.Installed() && len(i.Plugins) > 0 {
		emit(i.Hooks, Event{Phase: "plugins", ID: g.Name})
		if err := plugin.RunAll(ctx, i.Plugins, g, max(opts.Threads, 1), opts.Force); err != nil {
			logger.Warn("Plugins failed", logger.Fields{"genome": g.Name, "error": err.Error()})
			emit(i.Hooks, Event{Phase: "warning", ID: g.Name, Msg: err.Error()})
		}
	}

	emit(i.Hooks, Event{Phase: "done", ID: g.Name})
	return g, nil
}

// writeSidecars generates the sizes and gaps files that are missing.
func (i *Installer) writeSidecars(g *genome.Genome, force bool) error {
	emit(i.Hooks, Event{Phase: "sidecars", ID: g.Name})
	if force || !fsutil.Exists(g.SizesPath()) {
		if err := fasta.WriteSizes(g.FastaPath(), g.SizesPath()); err != nil {
			return errors.Wrapf(err, "failed to write %s", g.SizesPath())
		}
	}
	if force || !fsutil.Exists(g.GapsPath()) {
		if err := fasta.WriteGaps(g.FastaPath(), g.GapsPath()); err != nil {
			return errors.Wrapf(err, "failed to write %s", g.GapsPath())
		}
	}
	return nil
}

func (i *Installer) installAnnotation(ctx context.Context, p provider.Provider, d genome.Descriptor, g *genome.Genome, opts Options) error {
	if i.Annotations == nil {
		return fmt.Errorf("annotation installer is not configured: %w", errors.ErrAnnotationNotFound)
	}
	emit(i.Hooks, Event{Phase: "annotation", ID: g.Name})
	link, err := p.AnnotationDownloadLink(ctx, d.RemoteName, opts.Provider)
	if err != nil {
		return err
	}
	return i.Annotations.Install(ctx, g, link)
}

// DownloadGenome fetches the sequence of d from p and publishes it as
// <GenomesDir>/<local name>. All work happens in a staging directory next to
// the target, which is removed whatever the outcome. The target is only
// touched by the final rename.
func (i *Installer) DownloadGenome(ctx context.Context, p provider.Provider, d genome.Descriptor, opts Options) (g *genome.Genome, err error) {
	local := genome.LocalName(d.RemoteName, d.LocalName)
	g = genome.New(i.GenomesDir, local)

	var filter *regexp.Regexp
	if d.Regex != "" {
		if filter, err = regexp.Compile(d.Regex); err != nil {
			return nil, fmt.Errorf("%q: %v: %w", d.Regex, err, errors.ErrInvalidRegex)
		}
	}

	emit(i.Hooks, Event{Phase: "resolving", ID: local, Msg: d.RemoteName})
	name, link, err := p.GenomeDownloadLink(ctx, d.RemoteName, d.Mask, opts.Provider)
	if err != nil {
		return nil, err
	}
	logger.Info("Downloading genome", logger.Fields{"genome": name, "provider": p.Name(), "url": link})

	staging, err := fsutil.NewStagingDir(i.GenomesDir, local)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := os.RemoveAll(staging); rerr != nil {
			err = multierror.Append(err, fmt.Errorf("failed to remove %s: %w", staging, rerr)).ErrorOrNil()
		}
	}()

	emit(i.Hooks, Event{Phase: "downloading", ID: local, Msg: link})
	fetched, err := i.DL.Fetch(ctx, download.Item{URL: link}, download.Options{Dir: staging})
	if err != nil {
		return nil, err
	}

	emit(i.Hooks, Event{Phase: "unpacking", ID: local})
	seqPath := filepath.Join(staging, local+".fa")
	if err := i.unpack(ctx, fetched, seqPath); err != nil {
		return nil, err
	}

	emit(i.Hooks, Event{Phase: "processing", ID: local})
	if hook := p.PostProcessor(); hook != nil {
		req := provider.PostProcessRequest{Name: name, LocalName: local, Dir: staging, Mask: d.Mask}
		if err := hook(ctx, req); err != nil {
			return nil, err
		}
	}

	var excluded []string
	if filter != nil {
		if excluded, err = fasta.FilterFile(seqPath, filter, d.InvertMatch); err != nil {
			return nil, errors.Wrap(err, "failed to filter sequences")
		}
		logger.Debug("filtered sequences", logger.Fields{"genome": local, "excluded": len(excluded)})
	}

	if opts.BGZip {
		if err := i.Runner.Run(ctx, "bgzip", "-@", strconv.Itoa(max(opts.Threads, 1)), seqPath); err != nil {
			return nil, err
		}
	}

	info, ierr := p.GenomeInfo(ctx, name)
	if ierr != nil {
		logger.Debug("no catalog information for provenance", logger.Fields{"genome": name, "error": ierr.Error()})
	}
	readme := genome.NewReadme(genome.Provenance{
		Name:             local,
		Provider:         p.Name(),
		OriginalName:     name,
		OriginalFilename: path.Base(link),
		Accession:        info.Accession,
		TaxID:            info.TaxID,
		URL:              link,
		Mask:             d.Mask,
		Date:             i.now(),
		Regex:            d.Regex,
		InvertMatch:      d.InvertMatch,
		Excluded:         excluded,
	})
	sources, err := carryOver(g, staging)
	if err != nil {
		return nil, errors.Wrap(err, "failed to keep files of the previous install")
	}
	for _, src := range sources {
		readme.Fields = append(readme.Fields, genome.Field{Key: genome.AnnotationURLKey, Value: src})
	}
	if err := readme.Save(filepath.Join(staging, genome.ReadmeFile)); err != nil {
		return nil, errors.Wrap(err, "failed to write README")
	}

	emit(i.Hooks, Event{Phase: "publishing", ID: local, Msg: g.Dir})
	if err := fsutil.Publish(staging, g.Dir); err != nil {
		return nil, err
	}
	logger.Success("Genome download successful", logger.Fields{"genome": local, "dir": g.Dir})
	return g, nil
}

// carryOver links the annotation files and plugin indexes of a previous
// install of g into staging so that republishing the sequence keeps them.
// It returns the annotation sources recorded for the kept annotation.
func carryOver(g *genome.Genome, staging string) ([]string, error) {
	if !fsutil.Exists(g.Dir) {
		return nil, nil
	}
	var sources []string
	kept := false
	for _, p := range []string{g.AnnotationGTFPath(), g.AnnotationBEDPath(), g.IndexRoot()} {
		if !fsutil.Exists(p) {
			continue
		}
		if err := fsutil.LinkTree(p, filepath.Join(staging, filepath.Base(p))); err != nil {
			return nil, err
		}
		if p != g.IndexRoot() {
			kept = true
		}
	}
	if kept {
		if r, err := genome.ReadReadme(g.ReadmePath()); err == nil {
			sources = r.Values(genome.AnnotationURLKey)
		}
	}
	if kept || fsutil.Exists(g.IndexRoot()) {
		logger.Debug("keeping annotation and indexes of the previous install", logger.Fields{"genome": g.Name})
	}
	return sources, nil
}

// unpack turns the downloaded file into the plain FASTA file seqPath.
func (i *Installer) unpack(ctx context.Context, fetched, seqPath string) error {
	switch {
	case archive.IsTar(fetched):
		if err := i.archives.ConcatFASTA(ctx, fetched, seqPath); err != nil {
			return err
		}
	case archive.IsGzip(fetched):
		if err := i.archives.Gunzip(fetched, seqPath); err != nil {
			return err
		}
	default:
		if fetched == seqPath {
			return nil
		}
		return os.Rename(fetched, seqPath)
	}
	return os.Remove(fetched)
}
