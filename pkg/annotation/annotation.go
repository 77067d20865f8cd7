// Package annotation installs gene annotations next to a genome. Whatever the
// source format, the result is a gzipped GTF and a gzipped BED file. Format
// conversion is done by the UCSC genePred tools.
package annotation

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/archive"
	"github.com/glorpus-work/gogenome/pkg/download"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/fsutil"
	"github.com/glorpus-work/gogenome/pkg/genome"
	"github.com/glorpus-work/gogenome/pkg/tools"
)

// ReadmeKey is the provenance field recording the annotation source.
const ReadmeKey = genome.AnnotationURLKey

// Supported input formats. "txt" is a UCSC genePred table dump.
var formats = map[string]bool{"gtf": true, "gff": true, "gff3": true, "bed": true, "txt": true}

const maxLine = 16 << 20

// Manager downloads and converts annotations.
type Manager struct {
	downloads download.Manager
	runner    tools.Runner
	archives  *archive.Manager
}

// NewManager creates an annotation manager.
func NewManager(downloads download.Manager, runner tools.Runner) *Manager {
	return &Manager{
		downloads: downloads,
		runner:    runner,
		archives:  archive.NewManager(),
	}
}

// Format returns the annotation format of link and whether it is gzipped.
func Format(link string) (string, bool, error) {
	name := strings.ToLower(path.Base(link))
	gz := strings.HasSuffix(name, ".gz")
	ext := strings.TrimPrefix(path.Ext(strings.TrimSuffix(name, ".gz")), ".")
	if !formats[ext] {
		return "", false, fmt.Errorf("unsupported annotation format %q: %w", ext, errors.ErrAnnotationNotFound)
	}
	return ext, gz, nil
}

// Install downloads the annotation at link into the directory of g and
// writes <name>.annotation.gtf.gz and <name>.annotation.bed.gz. Work happens
// in a temporary directory inside the genome directory; existing annotation
// files are only replaced once both outputs exist.
func (m *Manager) Install(ctx context.Context, g *genome.Genome, link string) error {
	ext, gz, err := Format(link)
	if err != nil {
		return err
	}
	if err := fsutil.EnsureDir(g.Dir); err != nil {
		return errors.Wrapf(err, "failed to create %s", g.Dir)
	}
	tmp, err := os.MkdirTemp(g.Dir, ".annotation-*")
	if err != nil {
		return errors.Wrap(err, "failed to create annotation work directory")
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	logger.Info("Downloading gene annotation", logger.Fields{"genome": g.Name, "url": link})

	stem := filepath.Join(tmp, g.Name+".annotation")
	annot := stem + "." + ext
	filename := filepath.Base(annot)
	if gz {
		filename += ".gz"
	}
	fetched, err := m.downloads.Fetch(ctx, download.Item{URL: link, Filename: filename}, download.Options{Dir: tmp})
	if err != nil {
		return err
	}
	if gz {
		if err := m.archives.Gunzip(fetched, annot); err != nil {
			return err
		}
		_ = os.Remove(fetched)
	}

	gtf, bed, err := m.convert(ctx, annot, ext, stem)
	if err != nil {
		return err
	}

	gtfGz := filepath.Join(tmp, filepath.Base(g.AnnotationGTFPath()))
	bedGz := filepath.Join(tmp, filepath.Base(g.AnnotationBEDPath()))
	if err := m.archives.Gzip(gtf, gtfGz); err != nil {
		return err
	}
	if err := m.archives.Gzip(bed, bedGz); err != nil {
		return err
	}
	if err := os.Rename(gtfGz, g.AnnotationGTFPath()); err != nil {
		return errors.Wrap(err, "failed to install annotation")
	}
	if err := os.Rename(bedGz, g.AnnotationBEDPath()); err != nil {
		return errors.Wrap(err, "failed to install annotation")
	}

	if err := genome.AppendReadme(g.ReadmePath(), ReadmeKey, link); err != nil {
		return errors.Wrap(err, "failed to update README")
	}
	logger.Success("Annotation download successful", logger.Fields{"genome": g.Name})
	return nil
}

// convert turns annot into a GTF and a BED file through an intermediate
// genePred file. An input that already is GTF or BED is used as is.
func (m *Manager) convert(ctx context.Context, annot, ext, stem string) (string, string, error) {
	pred := stem + ".gp"
	var err error
	switch ext {
	case "bed":
		err = m.runner.Run(ctx, "bedToGenePred", annot, pred)
	case "gff", "gff3":
		err = m.runner.Run(ctx, "gff3ToGenePred", "-geneNameAttr=gene", annot, pred)
	case "gtf":
		err = m.runner.Run(ctx, "gtfToGenePred", annot, pred)
	case "txt":
		err = cutGenePred(annot, pred)
	}
	if err != nil {
		return "", "", err
	}

	gtf, bed := stem+".gtf", stem+".bed"
	if ext == "gtf" {
		gtf = annot
	} else if err := m.runner.Run(ctx, "genePredToGtf", "file", pred, gtf); err != nil {
		return "", "", err
	}
	if ext == "bed" {
		bed = annot
	} else if err := m.runner.Run(ctx, "genePredToBed", pred, bed); err != nil {
		return "", "", err
	}
	return gtf, bed, nil
}

// cutGenePred extracts the genePred columns of a UCSC table dump. Tables
// differ in leading columns (e.g. "bin"), so the window is anchored on the
// strand column of the first row: it starts two columns before the strand
// and spans eleven columns.
func cutGenePred(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := fsutil.CreateFilePerm(dst, fsutil.FileModeDefault)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	start := -1
	for sc.Scan() {
		cols := strings.Split(sc.Text(), "\t")
		if start < 0 {
			start = strandWindow(cols)
		}
		end := min(start+11, len(cols))
		if start >= end {
			continue
		}
		if _, err := w.WriteString(strings.Join(cols[start:end], "\t") + "\n"); err != nil {
			_ = out.Close()
			return err
		}
	}
	if err := sc.Err(); err != nil {
		_ = out.Close()
		return fmt.Errorf("%s: %w", src, err)
	}
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func strandWindow(cols []string) int {
	for i, c := range cols {
		if c == "+" || c == "-" {
			return max(i-2, 0)
		}
	}
	return 0
}
