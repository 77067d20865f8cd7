package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/catalog"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/fasta"
	"github.com/glorpus-work/gogenome/pkg/genome"
	"github.com/glorpus-work/gogenome/pkg/http"
)

// Default UCSC endpoints.
const (
	UCSCREST     = "http://api.genome.ucsc.edu"
	UCSCDownload = "http://hgdownload.soe.ucsc.edu/goldenPath"
)

var (
	gcaPattern       = regexp.MustCompile(`GCA_\d+\.\d+`)
	ncbiAssemblyLink = regexp.MustCompile(`https?://www\.ncbi\.nlm\.nih\.gov/assembly/\d+`)
	ucscGeneTable    = regexp.MustCompile(`^\w+Gene\.txt\.gz$`)
)

// ucscAnnotations lists the gene tables to use, best first.
var ucscAnnotations = []string{"knownGene.txt.gz", "ensGene.txt.gz", "refGene.txt.gz"}

// UCSC serves the genome builds of the UCSC Genome Browser. Sequences are
// soft-masked at the source.
type UCSC struct {
	fetcher  http.Fetcher
	cache    *catalog.Cache
	rest     string
	download string
}

// NewUCSC creates the UCSC provider.
func NewUCSC(deps Deps) *UCSC {
	return &UCSC{
		fetcher:  deps.Fetcher,
		cache:    deps.Cache,
		rest:     orDefault(deps.Endpoints.UCSCREST, UCSCREST),
		download: orDefault(deps.Endpoints.UCSCDownload, UCSCDownload),
	}
}

// Name implements Provider.
func (u *UCSC) Name() string { return "ucsc" }

type ucscGenome struct {
	Description    string      `json:"description"`
	ScientificName string      `json:"scientificName"`
	TaxID          json.Number `json:"taxId"`
	HTMLPath       string      `json:"htmlPath"`
	OrganismName   string      `json:"organism"`
}

func (u *UCSC) genomes(ctx context.Context) ([]catalog.Entry, error) {
	return catalog.Load(ctx, u.cache, catalog.Key(u.Name(), "genomes", u.rest), func(ctx context.Context) ([]catalog.Entry, error) {
		var resp struct {
			UCSCGenomes map[string]ucscGenome `json:"ucscGenomes"`
		}
		if err := u.fetcher.GetJSON(ctx, u.rest+"/list/ucscGenomes", &resp); err != nil {
			return nil, errors.Wrap(err, "failed to list UCSC genomes")
		}

		out := make([]catalog.Entry, 0, len(resp.UCSCGenomes))
		for name, g := range resp.UCSCGenomes {
			out = append(out, catalog.Entry{
				Name:           name,
				ScientificName: g.ScientificName,
				TaxID:          g.TaxID.String(),
				Description:    g.Description,
				Extra:          map[string]string{"html_path": g.HTMLPath, "organism": g.OrganismName},
			})
		}
		slices.SortFunc(out, func(a, b catalog.Entry) int { return strings.Compare(a.Name, b.Name) })
		return out, nil
	})
}

// ListAvailableGenomes implements Provider.
func (u *UCSC) ListAvailableGenomes(ctx context.Context) iter.Seq2[catalog.Entry, error] {
	return seq(ctx, u.genomes)
}

// Search implements Provider. An exact build name such as "hg38" selects
// only that build.
func (u *UCSC) Search(ctx context.Context, term string) iter.Seq2[catalog.Entry, error] {
	return func(yield func(catalog.Entry, error) bool) {
		entries, err := u.genomes(ctx)
		if err != nil {
			yield(catalog.Entry{}, err)
			return
		}
		for _, e := range entries {
			if e.Name == term {
				yield(e, nil)
				return
			}
		}
		for e, err := range filter(seq(ctx, u.genomes), term) {
			if !yield(e, err) {
				return
			}
		}
	}
}

// GenomeInfo implements Provider. The assembly accession is not part of the
// UCSC catalog; it is scraped from the build description page and "na" when
// it cannot be found.
func (u *UCSC) GenomeInfo(ctx context.Context, name string) (catalog.Entry, error) {
	entries, err := u.genomes(ctx)
	if err != nil {
		return catalog.Entry{}, err
	}
	entry, err := lookup(entries, u.Name(), name)
	if err != nil {
		return entry, err
	}
	entry.Accession = u.accession(ctx, entry)
	return entry, nil
}

func (u *UCSC) accession(ctx context.Context, entry catalog.Entry) string {
	htmlPath := entry.Get("html_path")
	if htmlPath == "" {
		return "na"
	}
	acc, err := catalog.Load(ctx, u.cache, catalog.Key(u.Name(), "accession", entry.Name), func(ctx context.Context) (string, error) {
		page, err := u.fetcher.GetText(ctx, u.host()+"/"+strings.TrimPrefix(htmlPath, "/"))
		if err != nil {
			return "", err
		}
		if m := gcaPattern.FindString(page); m != "" {
			return m, nil
		}
		link := ncbiAssemblyLink.FindString(page)
		if link == "" {
			return "na", nil
		}
		page, err = u.fetcher.GetText(ctx, link)
		if err != nil {
			return "", err
		}
		for _, line := range strings.Split(page, "\n") {
			if strings.Contains(line, "RefSeq assembly accession:") {
				if m := gcaPattern.FindString(line); m != "" {
					return m, nil
				}
			}
		}
		return "na", nil
	})
	if err != nil {
		logger.Debug("could not determine assembly accession", logger.Fields{"genome": entry.Name, "error": err})
		return "na"
	}
	return acc
}

// host returns the download server without the goldenPath suffix.
func (u *UCSC) host() string {
	return strings.TrimSuffix(u.download, "/goldenPath")
}

// GenomeDownloadLink implements Provider. Hard-masked requests use the
// masked files; anything else downloads the soft-masked sequence.
func (u *UCSC) GenomeDownloadLink(ctx context.Context, name string, mask genome.Mask, _ Options) (string, string, error) {
	entries, err := u.genomes(ctx)
	if err != nil {
		return "", "", err
	}
	if _, err := lookup(entries, u.Name(), name); err != nil {
		return "", "", err
	}

	base := u.download + "/" + name + "/bigZips/"
	candidates := []string{base + "chromFa.tar.gz", base + name + ".fa.gz"}
	if mask == genome.MaskHard {
		candidates = []string{base + "chromFaMasked.tar.gz", base + name + ".fa.masked.gz"}
	}
	for _, link := range candidates {
		ok, err := u.fetcher.Exists(ctx, link)
		if err != nil && ctx.Err() != nil {
			return "", "", err
		}
		if ok {
			return name, link, nil
		}
	}
	return "", "", fmt.Errorf("no sequence file for %s at UCSC: %w", name, errors.ErrGenomeNotFound)
}

// AnnotationDownloadLink implements Provider. The database directory of the
// build is scanned for gene tables; knownGene beats ensGene beats refGene.
func (u *UCSC) AnnotationDownloadLink(ctx context.Context, name string, _ Options) (string, error) {
	dir := u.download + "/" + name + "/database/"
	links, err := u.fetcher.ListLinks(ctx, dir)
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", dir, err, errors.ErrAnnotationNotFound)
	}
	found := make(map[string]bool)
	for _, l := range links {
		if b := path.Base(l); ucscGeneTable.MatchString(b) {
			found[b] = true
		}
	}
	for _, a := range ucscAnnotations {
		if found[a] {
			return dir + a, nil
		}
	}
	return "", fmt.Errorf("no gene table for %s at UCSC: %w", name, errors.ErrAnnotationNotFound)
}

// PostProcessor implements Provider.
func (u *UCSC) PostProcessor() PostProcessFunc { return unmaskUCSC }

// unmaskUCSC upper-cases the soft-masked sequence when no masking was asked for.
func unmaskUCSC(_ context.Context, req PostProcessRequest) error {
	if req.Mask != genome.MaskNone {
		return nil
	}
	logger.Debug("UCSC genomes are soft-masked, unmasking", logger.Fields{"genome": req.LocalName})
	if _, err := (fasta.Rewrite{Sequence: fasta.UpperCase}).ApplyFile(req.FastaPath()); err != nil {
		return fmt.Errorf("%s: %v: %w", req.FastaPath(), err, errors.ErrPostProcessingFailed)
	}
	return nil
}
