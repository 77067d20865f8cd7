package genome

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMask(t *testing.T) {
	assert.Equal(t, MaskSoft, ParseMask("soft"))
	assert.Equal(t, MaskHard, ParseMask(" HARD "))
	assert.Equal(t, MaskNone, ParseMask("none"))
	assert.Equal(t, MaskNone, ParseMask("sometimes"))
	assert.Equal(t, MaskNone, ParseMask(""))
}

func TestLocalName(t *testing.T) {
	tests := []struct {
		remote string
		local  string
		want   string
	}{
		{remote: "hg38", want: "hg38"},
		{remote: "GRCz11", local: "zebrafish", want: "zebrafish"},
		{remote: "Homo sapiens GRCh38", want: "Homo_sapiens_GRCh38"},
		{remote: "https://example.org/data/my_genome.fa.gz", want: "my_genome"},
		{remote: "https://example.org/data/Tair10.FASTA", want: "Tair10"},
		{remote: "https://example.org/x/asm.fna.gz?download=1", want: "asm"},
		{remote: "ftp://ftp.example.org/pub/chrom.tar.gz", want: "chrom.tar"},
		{remote: "anything", local: "my genome", want: "my_genome"},
	}
	for _, tt := range tests {
		t.Run(tt.remote+"/"+tt.local, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalName(tt.remote, tt.local))
		})
	}
}

func TestGenomeLayout(t *testing.T) {
	root := t.TempDir()
	g := New(root, "sacCer3")

	assert.Equal(t, filepath.Join(root, "sacCer3", "sacCer3.fa"), g.FastaPath())
	assert.Equal(t, filepath.Join(root, "sacCer3", "sacCer3.fa.sizes"), g.SizesPath())
	assert.Equal(t, filepath.Join(root, "sacCer3", "sacCer3.gaps.bed"), g.GapsPath())
	assert.Equal(t, filepath.Join(root, "sacCer3", "index", "minimap2"), g.IndexDir("minimap2"))
	assert.False(t, g.Installed())

	require.NoError(t, os.MkdirAll(g.Dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(g.Dir, "sacCer3.fa.gz"), []byte{}, 0o644))
	assert.True(t, g.Installed())
	assert.Equal(t, filepath.Join(root, "sacCer3", "sacCer3.fa.gz"), g.FastaPath())

	// hidden staging directories and non-genome dirs are not listed
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".hg38.staging-1"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	installed, err := ListInstalled(root)
	require.NoError(t, err)
	require.Len(t, installed, 1)
	assert.Equal(t, "sacCer3", installed[0].Name)

	none, err := ListInstalled(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReadme_WriteAndRead(t *testing.T) {
	date := time.Date(2024, 3, 1, 12, 30, 5, 0, time.UTC)
	r := NewReadme(Provenance{
		Name:             "hg38",
		Provider:         "UCSC",
		OriginalName:     "hg38",
		OriginalFilename: "hg38.fa.gz",
		TaxID:            "9606",
		URL:              "http://hgdownload.soe.ucsc.edu/goldenPath/hg38/bigZips/hg38.fa.gz",
		Mask:             MaskSoft,
		Date:             date,
		Regex:            "alt",
		InvertMatch:      true,
		Excluded:         []string{"chr1_alt", "chr2_alt"},
	})

	path := filepath.Join(t.TempDir(), ReadmeFile)
	require.NoError(t, r.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `name: hg38
provider: UCSC
original name: hg38
original filename: hg38.fa.gz
assembly_accession: na
taxid: 9606
url: http://hgdownload.soe.ucsc.edu/goldenPath/hg38/bigZips/hg38.fa.gz
mask: soft
date: 2024-03-01 12:30:05
regex: alt (inverted match)
sequences that were excluded:
	chr1_alt
	chr2_alt
`, string(data))

	require.NoError(t, AppendReadme(path, "annotation url", "http://example.org/hg38.gtf.gz"))
	require.NoError(t, AppendReadme(path, "annotation url", "http://example.org/hg38.v2.gtf.gz"))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(data)+"annotation url: http://example.org/hg38.gtf.gz\nannotation url: http://example.org/hg38.v2.gtf.gz\n", string(after))

	back, err := ReadReadme(path)
	require.NoError(t, err)
	v, ok := back.Get("annotation url")
	require.True(t, ok)
	assert.Equal(t, "http://example.org/hg38.v2.gtf.gz", v)
	assert.Equal(t, []string{"http://example.org/hg38.gtf.gz", "http://example.org/hg38.v2.gtf.gz"}, back.Values("annotation url"))
	assert.Equal(t, []string{"sequences that were excluded:", "\tchr1_alt", "\tchr2_alt"}, back.Notes)
	name, _ := back.Get("name")
	assert.Equal(t, "hg38", name)
}

func TestReadme_NoRegex(t *testing.T) {
	r := NewReadme(Provenance{Name: "x", Mask: MaskNone, Date: time.Unix(0, 0).UTC()})
	_, ok := r.Get("regex")
	assert.False(t, ok)
	assert.Empty(t, r.Notes)
}

func TestAppendReadme_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), ReadmeFile)
	require.NoError(t, AppendReadme(path, "annotation url", "u"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "annotation url: u\n", string(data))
}
