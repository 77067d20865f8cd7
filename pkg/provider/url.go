package provider

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"path"
	"strings"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/catalog"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/genome"
	"github.com/glorpus-work/gogenome/pkg/http"
)

// annotationExts are the annotation formats accepted from a direct link.
var annotationExts = []string{"gtf", "gff", "gff3", "bed"}

// URL downloads a genome straight from a link. It has no catalog.
type URL struct {
	fetcher http.Fetcher
}

// NewURL creates the url provider.
func NewURL(deps Deps) *URL {
	return &URL{fetcher: deps.Fetcher}
}

// Name implements Provider.
func (p *URL) Name() string { return "url" }

// ListAvailableGenomes implements Provider. It yields nothing.
func (p *URL) ListAvailableGenomes(context.Context) iter.Seq2[catalog.Entry, error] {
	return func(func(catalog.Entry, error) bool) {}
}

// Search implements Provider. It yields nothing.
func (p *URL) Search(ctx context.Context, _ string) iter.Seq2[catalog.Entry, error] {
	return p.ListAvailableGenomes(ctx)
}

// GenomeInfo implements Provider. The link itself is the only information.
func (p *URL) GenomeInfo(_ context.Context, name string) (catalog.Entry, error) {
	if _, err := resolveLink(name); err != nil {
		return catalog.Entry{}, err
	}
	return catalog.Entry{
		Name:        genome.LocalName(name, ""),
		Accession:   "na",
		Description: name,
	}, nil
}

// httpsMirrors are ftp hosts that serve the same tree over https.
var httpsMirrors = map[string]bool{
	"ftp.ensembl.org":              true,
	"ftp.ensemblgenomes.ebi.ac.uk": true,
	"ftp.ebi.ac.uk":                true,
	"ftp.ncbi.nlm.nih.gov":         true,
	"hgdownload.soe.ucsc.edu":      true,
	"hgdownload.cse.ucsc.edu":      true,
}

// resolveLink accepts absolute http, https and ftp URLs and returns the URL
// the file is fetched from. ftp links are rewritten to https and are only
// accepted for hosts in httpsMirrors.
func resolveLink(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%q is not a URL: %w", link, errors.ErrGenomeNotFound)
	}
	switch u.Scheme {
	case "http", "https":
		return link, nil
	case "ftp":
		if !httpsMirrors[strings.ToLower(u.Hostname())] {
			return "", fmt.Errorf("ftp is only supported for mirrors that also serve https, %s is not one of them: %w", u.Host, errors.ErrGenomeNotFound)
		}
		u.Scheme = "https"
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported scheme %q: %w", u.Scheme, errors.ErrGenomeNotFound)
	}
}

// GenomeDownloadLink implements Provider. The link is returned unchanged
// unless it is an ftp link, which is rewritten to https.
func (p *URL) GenomeDownloadLink(_ context.Context, name string, _ genome.Mask, _ Options) (string, string, error) {
	link, err := resolveLink(name)
	if err != nil {
		return "", "", err
	}
	return name, link, nil
}

// annotationExt returns the format of an annotation file name, ignoring a
// trailing .gz.
func annotationExt(name string) string {
	name = strings.TrimSuffix(strings.ToLower(name), ".gz")
	return strings.TrimPrefix(path.Ext(name), ".")
}

// AnnotationDownloadLink implements Provider. Without opts.ToAnnotation the
// directory listing next to the genome is searched for a GTF file or a GFF
// file named after the genome. The search is a heuristic over whatever HTML
// the server returns and may come up empty.
func (p *URL) AnnotationDownloadLink(ctx context.Context, name string, opts Options) (string, error) {
	if opts.ToAnnotation != "" {
		link, err := resolveLink(opts.ToAnnotation)
		if err != nil {
			return "", fmt.Errorf("%s: %v: %w", opts.ToAnnotation, err, errors.ErrAnnotationNotFound)
		}
		ext := annotationExt(path.Base(link))
		for _, allowed := range annotationExts {
			if ext == allowed {
				return link, nil
			}
		}
		return "", fmt.Errorf("only (gzipped) gtf, gff and bed files are supported, got %q: %w", ext, errors.ErrAnnotationNotFound)
	}

	link, err := resolveLink(name)
	if err != nil {
		return "", fmt.Errorf("%q: %v: %w", name, err, errors.ErrAnnotationNotFound)
	}
	base, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%q: %v: %w", name, err, errors.ErrAnnotationNotFound)
	}
	dir := base.ResolveReference(&url.URL{Path: "./"})
	logger.Debug("searching remote directory for annotation files", logger.Fields{"url": dir.String()})

	links, err := p.fetcher.ListLinks(ctx, dir.String())
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", dir, err, errors.ErrAnnotationNotFound)
	}

	stem := strings.ToLower(genome.LocalName(name, ""))
	suffixes := []string{".gtf", ".gtf.gz", stem + ".gff", stem + ".gff.gz", stem + ".gff3", stem + ".gff3.gz"}
	for _, l := range links {
		lower := strings.ToLower(path.Base(l))
		for _, s := range suffixes {
			if strings.HasSuffix(lower, s) {
				ref, err := url.Parse(l)
				if err != nil {
					break
				}
				return dir.ResolveReference(ref).String(), nil
			}
		}
	}
	return "", fmt.Errorf("no annotation next to %s: %w", name, errors.ErrAnnotationNotFound)
}

// PostProcessor implements Provider.
func (p *URL) PostProcessor() PostProcessFunc { return nil }
