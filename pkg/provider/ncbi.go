package provider

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"path"
	"strings"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/catalog"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/fasta"
	"github.com/glorpus-work/gogenome/pkg/genome"
	"github.com/glorpus-work/gogenome/pkg/http"
)

// NCBIAssemblyReports is the default directory of the assembly summaries.
const NCBIAssemblyReports = "https://ftp.ncbi.nlm.nih.gov/genomes/ASSEMBLY_REPORTS"

// ncbiSummaries are read in order; the first occurrence of an assembly name wins.
var ncbiSummaries = []string{
	"assembly_summary_refseq.txt",
	"assembly_summary_genbank.txt",
	"assembly_summary_refseq_historical.txt",
}

const maxSummaryLine = 1 << 20

// NCBI serves the assemblies listed in the NCBI assembly summaries. Sequences
// are soft-masked and named by accession at the source.
type NCBI struct {
	fetcher http.Fetcher
	cache   *catalog.Cache
	reports string
}

// NewNCBI creates the NCBI provider.
func NewNCBI(deps Deps) *NCBI {
	return &NCBI{
		fetcher: deps.Fetcher,
		cache:   deps.Cache,
		reports: orDefault(deps.Endpoints.NCBIAssemblyDir, NCBIAssemblyReports),
	}
}

// Name implements Provider.
func (n *NCBI) Name() string { return "ncbi" }

func (n *NCBI) genomes(ctx context.Context) ([]catalog.Entry, error) {
	return catalog.Load(ctx, n.cache, catalog.Key(n.Name(), "genomes", n.reports), func(ctx context.Context) ([]catalog.Entry, error) {
		logger.Info("Downloading assembly summaries from NCBI, this will take a while")
		seen := make(map[string]bool)
		var out []catalog.Entry
		for _, fname := range ncbiSummaries {
			if err := n.readSummary(ctx, n.reports+"/"+fname, seen, &out); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}

// readSummary parses one tab separated assembly summary. The first line is a
// comment, the second the column header.
func (n *NCBI) readSummary(ctx context.Context, url string, seen map[string]bool, out *[]catalog.Entry) error {
	body, _, err := n.fetcher.Open(ctx, url)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path.Base(url))
	}
	defer func() { _ = body.Close() }()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxSummaryLine)

	var header map[string]int
	line := 0
	for scanner.Scan() {
		line++
		text := strings.Trim(scanner.Text(), "# ")
		switch {
		case line == 1:
			continue
		case line == 2:
			header = make(map[string]int)
			for i, col := range strings.Split(text, "\t") {
				header[col] = i
			}
			continue
		}

		vals := strings.Split(text, "\t")
		get := func(col string) string {
			if i, ok := header[col]; ok && i < len(vals) {
				return vals[i]
			}
			return ""
		}
		asmName := get("asm_name")
		if asmName == "" || seen[asmName] {
			continue
		}
		seen[asmName] = true
		*out = append(*out, catalog.Entry{
			Name:           asmName,
			Accession:      ncbiAccession(get("gbrs_paired_asm"), get("assembly_accession")),
			ScientificName: get("organism_name"),
			TaxID:          get("species_taxid"),
			Description:    get("submitter"),
			Extra: map[string]string{
				"ftp_path":       get("ftp_path"),
				"assembly_level": get("assembly_level"),
			},
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w: %w", path.Base(url), err, errors.ErrDownloadFailed)
	}
	return nil
}

// ncbiAccession returns the first GenBank (GCA) accession of candidates, or "na".
func ncbiAccession(candidates ...string) string {
	for _, acc := range candidates {
		if strings.HasPrefix(acc, "GCA") {
			return acc
		}
	}
	return "na"
}

// ListAvailableGenomes implements Provider.
func (n *NCBI) ListAvailableGenomes(ctx context.Context) iter.Seq2[catalog.Entry, error] {
	return seq(ctx, n.genomes)
}

// Search implements Provider.
func (n *NCBI) Search(ctx context.Context, term string) iter.Seq2[catalog.Entry, error] {
	return filter(n.ListAvailableGenomes(ctx), term)
}

// GenomeInfo implements Provider.
func (n *NCBI) GenomeInfo(ctx context.Context, name string) (catalog.Entry, error) {
	entries, err := n.genomes(ctx)
	if err != nil {
		return catalog.Entry{}, err
	}
	return lookup(entries, n.Name(), name)
}

// assemblyFile returns the URL of <ftp_path>/<basename><suffix>.
func (n *NCBI) assemblyFile(ctx context.Context, name, suffix string) (string, error) {
	entry, err := n.GenomeInfo(ctx, name)
	if err != nil {
		return "", err
	}
	ftpPath := entry.Get("ftp_path")
	if ftpPath == "" || ftpPath == "na" {
		return "", fmt.Errorf("%s has no files at NCBI: %w", name, errors.ErrGenomeNotFound)
	}
	dir := strings.TrimSuffix(strings.Replace(ftpPath, "ftp://", "https://", 1), "/")
	return dir + "/" + path.Base(dir) + suffix, nil
}

// GenomeDownloadLink implements Provider. Masking is applied afterwards by
// the post-processing hook.
func (n *NCBI) GenomeDownloadLink(ctx context.Context, name string, _ genome.Mask, _ Options) (string, string, error) {
	link, err := n.assemblyFile(ctx, name, "_genomic.fna.gz")
	if err != nil {
		return "", "", err
	}
	return safe(name), link, nil
}

// AnnotationDownloadLink implements Provider.
func (n *NCBI) AnnotationDownloadLink(ctx context.Context, name string, _ Options) (string, error) {
	return n.assemblyFile(ctx, name, "_genomic.gff.gz")
}

// PostProcessor implements Provider.
func (n *NCBI) PostProcessor() PostProcessFunc { return n.postProcess }

// postProcess renames accession headers to sequence names using the assembly
// report and applies the requested masking.
func (n *NCBI) postProcess(ctx context.Context, req PostProcessRequest) error {
	names, err := n.sequenceNames(ctx, req.Name)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", req.Name, err, errors.ErrPostProcessingFailed)
	}

	rw := fasta.Rewrite{Header: fasta.RenameHeaders(names)}
	switch req.Mask {
	case genome.MaskHard:
		rw.Sequence = fasta.HardMask
	case genome.MaskNone:
		rw.Sequence = fasta.UpperCase
	}
	if req.Mask != genome.MaskSoft {
		logger.Debug("NCBI genomes are soft-masked, changing mask", logger.Fields{"genome": req.LocalName, "mask": req.Mask})
	}
	if _, err := rw.ApplyFile(req.FastaPath()); err != nil {
		return fmt.Errorf("%s: %v: %w", req.FastaPath(), err, errors.ErrPostProcessingFailed)
	}
	return nil
}

// sequenceNames maps RefSeq accessions (column 7) to sequence names (column 1)
// of the assembly report.
func (n *NCBI) sequenceNames(ctx context.Context, name string) (map[string]string, error) {
	link, err := n.assemblyFile(ctx, name, "_assembly_report.txt")
	if err != nil {
		return nil, err
	}
	report, err := n.fetcher.GetText(ctx, link)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string)
	for _, line := range strings.Split(report, "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		vals := strings.Split(strings.TrimSpace(line), "\t")
		if len(vals) > 6 {
			names[vals[6]] = vals[0]
		}
	}
	return names, nil
}
