package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/catalog"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/genome"
	"github.com/glorpus-work/gogenome/pkg/http"
	"github.com/hashicorp/go-version"
)

// Default Ensembl endpoints.
const (
	EnsemblREST       = "https://rest.ensembl.org"
	EnsemblFTP        = "http://ftp.ensembl.org/pub"
	EnsemblGenomesFTP = "https://ftp.ensemblgenomes.ebi.ac.uk/pub"
)

const ensemblJSONType = "content-type=application/json"

var (
	releasePattern = regexp.MustCompile(`Ensembl (Genomes|Release) (\d+)`)
	patchSuffix    = regexp.MustCompile(`\.p\d+$`)
	minimumRelease = version.Must(version.NewVersion("1"))
)

// Ensembl serves the vertebrate genomes of ensembl.org and the non-vertebrate
// divisions of Ensembl Genomes. Bacteria are not supported.
type Ensembl struct {
	fetcher    http.Fetcher
	cache      *catalog.Cache
	rest       string
	ftp        string
	genomesFTP string

	mu       sync.Mutex
	releases map[string]string
}

// NewEnsembl creates the Ensembl provider.
func NewEnsembl(deps Deps) *Ensembl {
	return &Ensembl{
		fetcher:    deps.Fetcher,
		cache:      deps.Cache,
		rest:       orDefault(deps.Endpoints.EnsemblREST, EnsemblREST),
		ftp:        orDefault(deps.Endpoints.EnsemblFTP, EnsemblFTP),
		genomesFTP: orDefault(deps.Endpoints.EnsemblGenomes, EnsemblGenomesFTP),
		releases:   make(map[string]string),
	}
}

// Name implements Provider.
func (e *Ensembl) Name() string { return "ensembl" }

// ensemblGenome is one record of the info/genomes REST endpoints.
type ensemblGenome struct {
	Name              string      `json:"name"`
	DisplayName       string      `json:"display_name"`
	AssemblyName      string      `json:"assembly_name"`
	AssemblyAccession string      `json:"assembly_accession"`
	ScientificName    string      `json:"scientific_name"`
	TaxonomyID        json.Number `json:"taxonomy_id"`
	Division          string      `json:"division"`
	URLName           string      `json:"url_name"`
	Genebuild         string      `json:"genebuild"`
}

func (g ensemblGenome) entry() catalog.Entry {
	description := g.DisplayName
	if description == "" {
		description = g.Name
	}
	return catalog.Entry{
		Name:           safe(g.AssemblyName),
		Accession:      g.AssemblyAccession,
		ScientificName: g.ScientificName,
		TaxID:          g.TaxonomyID.String(),
		Description:    description,
		Extra: map[string]string{
			"assembly_name": g.AssemblyName,
			"division":      g.Division,
			"url_name":      g.URLName,
			"genebuild":     g.Genebuild,
			"species":       g.Name,
		},
	}
}

func (e *Ensembl) restURL(ext string) string {
	return e.rest + "/" + ext + "?" + ensemblJSONType
}

func (e *Ensembl) genomes(ctx context.Context) ([]catalog.Entry, error) {
	return catalog.Load(ctx, e.cache, catalog.Key(e.Name(), "genomes", e.rest), func(ctx context.Context) ([]catalog.Entry, error) {
		var divisions []string
		if err := e.fetcher.GetJSON(ctx, e.restURL("info/divisions"), &divisions); err != nil {
			return nil, errors.Wrap(err, "failed to list Ensembl divisions")
		}

		var out []catalog.Entry
		for _, division := range divisions {
			if division == "EnsemblBacteria" {
				continue
			}
			var genomes []ensemblGenome
			if err := e.fetcher.GetJSON(ctx, e.restURL("info/genomes/division/"+division), &genomes); err != nil {
				return nil, errors.Wrapf(err, "failed to list Ensembl division %s", division)
			}
			for _, g := range genomes {
				out = append(out, g.entry())
			}
			logger.Debug("listed Ensembl division", logger.Fields{"division": division, "genomes": len(genomes)})
		}
		return out, nil
	})
}

// ListAvailableGenomes implements Provider.
func (e *Ensembl) ListAvailableGenomes(ctx context.Context) iter.Seq2[catalog.Entry, error] {
	return seq(ctx, e.genomes)
}

// Search implements Provider.
func (e *Ensembl) Search(ctx context.Context, term string) iter.Seq2[catalog.Entry, error] {
	return filter(e.ListAvailableGenomes(ctx), term)
}

// GenomeInfo implements Provider. Entries lacking the division or url name
// are completed from the assembly endpoint.
func (e *Ensembl) GenomeInfo(ctx context.Context, name string) (catalog.Entry, error) {
	entries, err := e.genomes(ctx)
	if err != nil {
		return catalog.Entry{}, err
	}
	entry, err := lookup(entries, e.Name(), name)
	if err != nil {
		return entry, err
	}
	if entry.Get("division") != "" && entry.Get("url_name") != "" {
		return entry, nil
	}
	if entry.Accession == "" {
		return entry, fmt.Errorf("%s has no assembly accession: %w", name, errors.ErrGenomeNotFound)
	}

	var g ensemblGenome
	if err := e.fetcher.GetJSON(ctx, e.restURL("info/genomes/assembly/"+entry.Accession), &g); err != nil {
		return entry, errors.Wrapf(err, "failed to look up %s", entry.Accession)
	}
	return g.entry(), nil
}

// division returns the lower-case division without the "ensembl" prefix.
func division(entry catalog.Entry) (string, error) {
	div := strings.ReplaceAll(strings.ToLower(entry.Get("division")), "ensembl", "")
	if div == "bacteria" {
		return "", fmt.Errorf("%s is in Ensembl Bacteria: %w", entry.Name, errors.ErrUnsupportedDivision)
	}
	return div, nil
}

// site returns the FTP root serving div.
func (e *Ensembl) site(div string) string {
	if div == "vertebrates" {
		return e.ftp
	}
	return e.genomesFTP
}

// divisionRoot returns the directory holding the releases of div.
func (e *Ensembl) divisionRoot(div string) string {
	if div == "vertebrates" {
		return e.ftp
	}
	return e.genomesFTP + "/" + div
}

// normalizeRelease validates a release number such as "104".
func normalizeRelease(raw string) (string, error) {
	v, err := version.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%q: %v: %w", raw, err, errors.ErrInvalidRelease)
	}
	segments := v.Segments()
	valid := v.Prerelease() == "" && v.Metadata() == "" && !v.LessThan(minimumRelease)
	for _, s := range segments[1:] {
		valid = valid && s == 0
	}
	if !valid {
		return "", fmt.Errorf("%q is not a release number: %w", raw, errors.ErrInvalidRelease)
	}
	return strconv.Itoa(segments[0]), nil
}

// release returns the pinned release or the current one of site.
func (e *Ensembl) release(ctx context.Context, site string, opts Options) (string, error) {
	if opts.Version != "" {
		return normalizeRelease(opts.Version)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.releases[site]; ok {
		return r, nil
	}

	readme, err := e.fetcher.GetText(ctx, site+"/current_README")
	if err != nil {
		return "", errors.Wrap(err, "failed to determine current Ensembl release")
	}
	m := releasePattern.FindStringSubmatch(readme)
	if m == nil {
		return "", fmt.Errorf("no release in %s/current_README: %w", site, errors.ErrDownloadFailed)
	}
	r, err := normalizeRelease(m[2])
	if err != nil {
		return "", err
	}
	logger.Debug("using Ensembl release", logger.Fields{"site": site, "release": r})
	e.releases[site] = r
	return r, nil
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// GenomeDownloadLink implements Provider. The primary assembly is preferred
// when it exists; otherwise the toplevel assembly is used.
func (e *Ensembl) GenomeDownloadLink(ctx context.Context, name string, mask genome.Mask, opts Options) (string, string, error) {
	entry, err := e.GenomeInfo(ctx, name)
	if err != nil {
		return "", "", err
	}
	div, err := division(entry)
	if err != nil {
		return "", "", err
	}
	release, err := e.release(ctx, e.site(div), opts)
	if err != nil {
		return "", "", err
	}

	urlName := entry.Get("url_name")
	dir := fmt.Sprintf("%s/release-%s/fasta/%s/dna", e.divisionRoot(div), release, strings.ToLower(urlName))
	asm := patchSuffix.ReplaceAllString(entry.Name, "")

	pattern := "dna"
	switch mask {
	case genome.MaskSoft:
		pattern = "dna_sm"
	case genome.MaskHard:
		pattern = "dna_rm"
	}
	link := func(level string) string {
		return fmt.Sprintf("%s/%s.%s.%s.%s.fa.gz", dir, capitalize(urlName), asm, pattern, level)
	}

	if opts.Toplevel {
		logger.Debug("skipping primary assembly check", logger.Fields{"genome": entry.Name})
		return entry.Name, link("toplevel"), nil
	}
	primary := link("primary_assembly")
	ok, err := e.fetcher.Exists(ctx, primary)
	if err != nil && ctx.Err() != nil {
		return "", "", err
	}
	if ok {
		return entry.Name, primary, nil
	}
	logger.Debug("no primary assembly, using toplevel", logger.Fields{"genome": entry.Name})
	return entry.Name, link("toplevel"), nil
}

// AnnotationDownloadLink implements Provider.
func (e *Ensembl) AnnotationDownloadLink(ctx context.Context, name string, opts Options) (string, error) {
	entry, err := e.GenomeInfo(ctx, name)
	if err != nil {
		return "", err
	}
	div, err := division(entry)
	if err != nil {
		return "", err
	}
	release, err := e.release(ctx, e.site(div), opts)
	if err != nil {
		return "", err
	}
	urlName := entry.Get("url_name")
	return fmt.Sprintf("%s/release-%s/gtf/%s/%s.%s.%s.gtf.gz",
		e.divisionRoot(div), release, strings.ToLower(urlName), capitalize(urlName),
		patchSuffix.ReplaceAllString(entry.Name, ""), release), nil
}

// PostProcessor implements Provider. Ensembl files need no rewriting.
func (e *Ensembl) PostProcessor() PostProcessFunc { return nil }
