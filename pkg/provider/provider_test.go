package provider

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/glorpus-work/gogenome/pkg/catalog"
	"github.com/glorpus-work/gogenome/pkg/config"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/genome"
	ghttp "github.com/glorpus-work/gogenome/pkg/http"
	"github.com/glorpus-work/gogenome/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remote adds the provider registry to the fake web services.
type remote struct {
	*testutil.Remote
}

func newRemote(t *testing.T, files map[string]string) *remote {
	t.Helper()
	return &remote{Remote: testutil.NewRemote(t, files)}
}

func (r *remote) registry() *Registry {
	return NewRegistry(Deps{
		Fetcher: ghttp.NewClient(5*time.Second, "test-agent/1.0"),
		Cache:   catalog.NewCache(time.Hour, nil),
		Endpoints: config.Endpoints{
			EnsemblREST:     r.URL + "/rest",
			EnsemblFTP:      r.URL + "/ensembl/pub",
			EnsemblGenomes:  r.URL + "/ensemblgenomes/pub",
			UCSCREST:        r.URL + "/ucscapi",
			UCSCDownload:    r.URL + "/goldenPath",
			NCBIAssemblyDir: r.URL + "/ASSEMBLY_REPORTS",
		},
	})
}

func mustCreate(t *testing.T, reg *Registry, name string) Provider {
	t.Helper()
	p, err := reg.Create(name)
	require.NoError(t, err)
	return p
}

func collect(t *testing.T, it func(func(catalog.Entry, error) bool)) []string {
	t.Helper()
	var names []string
	for e, err := range it {
		require.NoError(t, err)
		names = append(names, e.Name)
	}
	return names
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry(Deps{Fetcher: ghttp.NewClient(time.Second, "")})

	for _, name := range []string{"ensembl", "Ensembl", "UCSC", "ncbi", " url "} {
		p, err := reg.Create(name)
		require.NoError(t, err, name)
		assert.NotNil(t, p)
	}

	_, err := reg.Create("genbank")
	assert.ErrorIs(t, err, errors.ErrUnknownProvider)

	var names []string
	for _, p := range reg.List() {
		names = append(names, p.Name())
	}
	assert.Equal(t, Names, names)
}

func TestRegistry_OneInstancePerName(t *testing.T) {
	reg := NewRegistry(Deps{Fetcher: ghttp.NewClient(time.Second, "")})
	a, _ := reg.Create("ucsc")
	b, _ := reg.Create("UCSC")
	assert.Same(t, a, b)
}

func TestPostProcessorCapability(t *testing.T) {
	reg := NewRegistry(Deps{Fetcher: ghttp.NewClient(time.Second, "")})
	assert.Nil(t, mustCreate(t, reg, "ensembl").PostProcessor())
	assert.Nil(t, mustCreate(t, reg, "url").PostProcessor())
	assert.NotNil(t, mustCreate(t, reg, "ucsc").PostProcessor())
	assert.NotNil(t, mustCreate(t, reg, "ncbi").PostProcessor())
}

// allRemote serves a tiny catalog for every provider.
func allRemote(t *testing.T) *remote {
	files := map[string]string{}
	for k, v := range ensemblFiles() {
		files[k] = v
	}
	for k, v := range ucscFiles() {
		files[k] = v
	}
	for k, v := range ncbiFiles() {
		files[k] = v
	}
	return newRemote(t, files)
}

var linkScheme = regexp.MustCompile(`^(https?|ftp)://`)

func TestGenomeDownloadLink_AlwaysRemote(t *testing.T) {
	r := allRemote(t)
	reg := r.registry()
	ctx := context.Background()

	cases := map[string]string{
		"ensembl": "GRCz11",
		"ucsc":    "sacCer3",
		"ncbi":    "ASM2732v1",
		"url":     "https://example.org/genomes/tiny.fa.gz",
	}
	for prov, name := range cases {
		for _, mask := range []genome.Mask{genome.MaskSoft, genome.MaskHard, genome.MaskNone} {
			_, link, err := mustCreate(t, reg, prov).GenomeDownloadLink(ctx, name, mask, Options{})
			require.NoError(t, err, "%s %s", prov, mask)
			assert.Regexp(t, linkScheme, link)
		}
	}
}

func TestGenomeDownloadLink_UnknownGenome(t *testing.T) {
	r := allRemote(t)
	reg := r.registry()
	ctx := context.Background()

	for _, prov := range []string{"ensembl", "ucsc", "ncbi"} {
		_, link, err := mustCreate(t, reg, prov).GenomeDownloadLink(ctx, "no_such_genome", genome.MaskSoft, Options{})
		assert.ErrorIs(t, err, errors.ErrGenomeNotFound, prov)
		assert.Empty(t, link)
	}
	_, _, err := mustCreate(t, reg, "url").GenomeDownloadLink(ctx, "/local/file.fa", genome.MaskSoft, Options{})
	assert.ErrorIs(t, err, errors.ErrGenomeNotFound)
}

func TestCatalogFailureIsDownloadFailed(t *testing.T) {
	r := newRemote(t, map[string]string{})
	reg := r.registry()
	for _, prov := range []string{"ensembl", "ucsc", "ncbi"} {
		var got error
		for _, err := range mustCreate(t, reg, prov).ListAvailableGenomes(context.Background()) {
			got = err
		}
		assert.ErrorIs(t, got, errors.ErrDownloadFailed, prov)
	}
}
