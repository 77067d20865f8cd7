// Package provider implements the remote genome sources: Ensembl, UCSC, NCBI
// and plain URLs. Each provider lists and searches its catalog, resolves
// genome and annotation download links and may post-process a downloaded
// sequence file.
package provider

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/gogenome/pkg/catalog"
	"github.com/glorpus-work/gogenome/pkg/config"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/genome"
	"github.com/glorpus-work/gogenome/pkg/http"
)

// Provider is a remote source of genomes.
type Provider interface {
	// Name returns the lower-case registry name.
	Name() string

	// ListAvailableGenomes iterates over the provider catalog. The catalog is
	// fetched when iteration starts, so the sequence can be ranged repeatedly.
	ListAvailableGenomes(ctx context.Context) iter.Seq2[catalog.Entry, error]

	// Search iterates over the catalog entries matching term.
	Search(ctx context.Context, term string) iter.Seq2[catalog.Entry, error]

	// GenomeInfo returns the catalog entry of name.
	GenomeInfo(ctx context.Context, name string) (catalog.Entry, error)

	// GenomeDownloadLink returns the canonical genome name and the URL of its
	// sequence at the requested masking.
	GenomeDownloadLink(ctx context.Context, name string, mask genome.Mask, opts Options) (string, string, error)

	// AnnotationDownloadLink returns the URL of the gene annotation of name.
	AnnotationDownloadLink(ctx context.Context, name string, opts Options) (string, error)

	// PostProcessor returns the hook to run on a downloaded sequence file, or
	// nil when the provider does not need one.
	PostProcessor() PostProcessFunc
}

// Options are the provider specific install options.
type Options struct {
	// Version pins the Ensembl release instead of the current one.
	Version string
	// Toplevel skips the Ensembl primary assembly check.
	Toplevel bool
	// ToAnnotation is an explicit annotation URL for the url provider.
	ToAnnotation string
}

// PostProcessRequest identifies the sequence file a hook rewrites:
// <Dir>/<LocalName>.fa.
type PostProcessRequest struct {
	Name      string
	LocalName string
	Dir       string
	Mask      genome.Mask
}

// FastaPath returns the uncompressed sequence file of the request.
func (r PostProcessRequest) FastaPath() string {
	return filepath.Join(r.Dir, r.LocalName+".fa")
}

// PostProcessFunc rewrites a freshly downloaded sequence file in place.
type PostProcessFunc func(ctx context.Context, req PostProcessRequest) error

// Deps are the collaborators shared by all providers.
type Deps struct {
	Fetcher   http.Fetcher
	Cache     *catalog.Cache
	Endpoints config.Endpoints
}

// Names lists the registered providers in display order.
var Names = []string{"ensembl", "ucsc", "ncbi", "url"}

// Registry holds exactly one instance of every provider.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds all providers on top of deps.
func NewRegistry(deps Deps) *Registry {
	if deps.Cache == nil {
		deps.Cache = catalog.NewCache(catalog.DefaultTTL, nil)
	}
	return &Registry{providers: map[string]Provider{
		"ensembl": NewEnsembl(deps),
		"ucsc":    NewUCSC(deps),
		"ncbi":    NewNCBI(deps),
		"url":     NewURL(deps),
	}}
}

// Create returns the provider registered under name, ignoring case.
func (r *Registry) Create(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, errors.ErrUnknownProvider)
	}
	return p, nil
}

// List returns all providers in display order.
func (r *Registry) List() []Provider {
	out := make([]Provider, 0, len(Names))
	for _, n := range Names {
		out = append(out, r.providers[n])
	}
	return out
}

// safe replaces spaces with underscores.
func safe(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// seq turns a catalog loader into a lazy iterator.
func seq(ctx context.Context, load func(context.Context) ([]catalog.Entry, error)) iter.Seq2[catalog.Entry, error] {
	return func(yield func(catalog.Entry, error) bool) {
		entries, err := load(ctx)
		if err != nil {
			yield(catalog.Entry{}, err)
			return
		}
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// filter yields the entries of all that match term.
func filter(all iter.Seq2[catalog.Entry, error], term string) iter.Seq2[catalog.Entry, error] {
	return func(yield func(catalog.Entry, error) bool) {
		for e, err := range all {
			if err != nil {
				yield(e, err)
				return
			}
			if e.Matches(term) && !yield(e, nil) {
				return
			}
		}
	}
}

// lookup finds name in entries, comparing with spaces turned to underscores.
func lookup(entries []catalog.Entry, provider, name string) (catalog.Entry, error) {
	want := safe(name)
	for _, e := range entries {
		if safe(e.Name) == want {
			return e, nil
		}
	}
	return catalog.Entry{}, fmt.Errorf("%s at %s: %w", name, provider, errors.ErrGenomeNotFound)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return strings.TrimSuffix(v, "/")
}
