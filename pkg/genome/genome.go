// Package genome describes genomes to acquire and the on-disk layout of
// installed genomes.
package genome

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Mask is the requested masking of repeats in the sequence.
type Mask string

const (
	MaskSoft Mask = "soft"
	MaskHard Mask = "hard"
	MaskNone Mask = "none"
)

// ParseMask maps a user string onto a Mask. Anything unrecognised means none.
func ParseMask(s string) Mask {
	switch Mask(strings.ToLower(strings.TrimSpace(s))) {
	case MaskSoft:
		return MaskSoft
	case MaskHard:
		return MaskHard
	default:
		return MaskNone
	}
}

// Descriptor is a request to acquire one genome.
type Descriptor struct {
	RemoteName  string
	LocalName   string
	Provider    string
	Mask        Mask
	Regex       string
	InvertMatch bool
}

var fastaExt = regexp.MustCompile(`(?i)\.(fa|fasta|fna|fsa|seq|2bit)$`)

// LocalName derives the directory and file stem for a genome. An explicit
// local name wins; URLs reduce to their file name without compression and
// FASTA extensions. Spaces become underscores.
func LocalName(remote, local string) string {
	name := local
	if name == "" {
		name = remote
		if u, err := url.Parse(remote); err == nil && u.Scheme != "" && u.Host != "" {
			name = path.Base(u.Path)
		}
		name = strings.TrimSuffix(name, ".gz")
		name = fastaExt.ReplaceAllString(name, "")
	}
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

// Genome is an installed genome under a storage root.
type Genome struct {
	Name string
	Dir  string
}

// New returns the layout of genome name under genomesDir.
func New(genomesDir, name string) *Genome {
	return &Genome{Name: name, Dir: filepath.Join(genomesDir, name)}
}

// FastaPath returns the sequence file, preferring an existing bgzipped copy.
func (g *Genome) FastaPath() string {
	plain := filepath.Join(g.Dir, g.Name+".fa")
	if _, err := os.Stat(plain + ".gz"); err == nil {
		return plain + ".gz"
	}
	return plain
}

// Installed reports whether a sequence file is present.
func (g *Genome) Installed() bool {
	_, err := os.Stat(g.FastaPath())
	return err == nil
}

// SizesPath returns <dir>/<name>.fa.sizes.
func (g *Genome) SizesPath() string { return filepath.Join(g.Dir, g.Name+".fa.sizes") }

// GapsPath returns <dir>/<name>.gaps.bed.
func (g *Genome) GapsPath() string { return filepath.Join(g.Dir, g.Name+".gaps.bed") }

// AnnotationGTFPath returns <dir>/<name>.annotation.gtf.gz.
func (g *Genome) AnnotationGTFPath() string {
	return filepath.Join(g.Dir, g.Name+".annotation.gtf.gz")
}

// AnnotationBEDPath returns <dir>/<name>.annotation.bed.gz.
func (g *Genome) AnnotationBEDPath() string {
	return filepath.Join(g.Dir, g.Name+".annotation.bed.gz")
}

// ReadmePath returns the provenance record.
func (g *Genome) ReadmePath() string { return filepath.Join(g.Dir, ReadmeFile) }

// IndexRoot returns the directory holding all plugin indexes.
func (g *Genome) IndexRoot() string { return filepath.Join(g.Dir, "index") }

// IndexDir returns the directory a plugin keeps its index in.
func (g *Genome) IndexDir(plugin string) string { return filepath.Join(g.IndexRoot(), plugin) }

// ListInstalled returns the installed genomes under genomesDir, sorted by name.
func ListInstalled(genomesDir string) ([]*Genome, error) {
	entries, err := os.ReadDir(genomesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []*Genome
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		g := New(genomesDir, e.Name())
		if g.Installed() {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
