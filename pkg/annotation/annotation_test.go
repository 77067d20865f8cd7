package annotation

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glorpus-work/gogenome/pkg/download"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/genome"
	ghttp "github.com/glorpus-work/gogenome/pkg/http"
	mock_tools "github.com/glorpus-work/gogenome/pkg/tools/mocks"
	"github.com/glorpus-work/gogenome/test/testutil"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const gtfContent = "chr1\ttest\texon\t11\t20\t.\t+\t.\tgene_id \"g1\"; transcript_id \"t1\";\n"

func readGz(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := pgzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(data)
}

// writeOutput fakes a converter by writing content to its last argument.
func writeOutput(content string) func(context.Context, string, ...string) error {
	return func(_ context.Context, _ string, args ...string) error {
		return os.WriteFile(args[len(args)-1], []byte(content), 0o644)
	}
}

func newTestManager(t *testing.T) (*Manager, *mock_tools.MockRunner) {
	ctrl := gomock.NewController(t)
	runner := mock_tools.NewMockRunner(ctrl)
	dl := download.NewManager(ghttp.NewClient(5*time.Second, "test-agent/1.0"))
	return NewManager(dl, runner), runner
}

func noLeftovers(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".annotation-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		link    string
		ext     string
		gz      bool
		wantErr bool
	}{
		{link: "https://x/Homo_sapiens.GRCh38.104.gtf.gz", ext: "gtf", gz: true},
		{link: "https://x/genes.GFF3", ext: "gff3"},
		{link: "https://x/database/knownGene.txt.gz", ext: "txt", gz: true},
		{link: "https://x/a.bed", ext: "bed"},
		{link: "https://x/a.vcf.gz", wantErr: true},
	}
	for _, tt := range tests {
		ext, gz, err := Format(tt.link)
		if tt.wantErr {
			assert.ErrorIs(t, err, errors.ErrAnnotationNotFound)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.ext, ext)
		assert.Equal(t, tt.gz, gz)
	}
}

func TestInstall_GTF(t *testing.T) {
	srv := testutil.NewRemote(t, map[string]string{"/genes.gtf.gz": testutil.Gzip(t, gtfContent)})
	m, runner := newTestManager(t)
	g := genome.New(t.TempDir(), "tiny")
	require.NoError(t, os.MkdirAll(g.Dir, 0o755))
	require.NoError(t, os.WriteFile(g.ReadmePath(), []byte("name: tiny\nprovider: url\n"), 0o644))

	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), "gtfToGenePred", gomock.Any(), gomock.Any()).DoAndReturn(writeOutput("pred\n")),
		runner.EXPECT().Run(gomock.Any(), "genePredToBed", gomock.Any(), gomock.Any()).DoAndReturn(writeOutput("chr1\t10\t20\tt1\n")),
	)

	link := srv.URL + "/genes.gtf.gz"
	require.NoError(t, m.Install(context.Background(), g, link))

	assert.Equal(t, gtfContent, readGz(t, g.AnnotationGTFPath()))
	assert.Equal(t, "chr1\t10\t20\tt1\n", readGz(t, g.AnnotationBEDPath()))

	readme, err := os.ReadFile(g.ReadmePath())
	require.NoError(t, err)
	assert.Equal(t, "name: tiny\nprovider: url\nannotation url: "+link+"\n", string(readme))
	noLeftovers(t, g.Dir)
}

func TestInstall_AppendsAnnotationSource(t *testing.T) {
	srv := testutil.NewRemote(t, map[string]string{"/v2/genes.gtf.gz": testutil.Gzip(t, gtfContent)})
	m, runner := newTestManager(t)
	g := genome.New(t.TempDir(), "tiny")
	require.NoError(t, os.MkdirAll(g.Dir, 0o755))
	previous := "name: tiny\nregex: chrM (inverted match)\nsequences that were excluded:\n\tchrM\nannotation url: http://example.org/v1/genes.gtf.gz\n"
	require.NoError(t, os.WriteFile(g.ReadmePath(), []byte(previous), 0o644))

	runner.EXPECT().Run(gomock.Any(), "gtfToGenePred", gomock.Any(), gomock.Any()).DoAndReturn(writeOutput("pred\n"))
	runner.EXPECT().Run(gomock.Any(), "genePredToBed", gomock.Any(), gomock.Any()).DoAndReturn(writeOutput("chr1\t10\t20\tt1\n"))

	link := srv.URL + "/v2/genes.gtf.gz"
	require.NoError(t, m.Install(context.Background(), g, link))

	readme, err := os.ReadFile(g.ReadmePath())
	require.NoError(t, err)
	assert.Equal(t, previous+"annotation url: "+link+"\n", string(readme))

	r, err := genome.ReadReadme(g.ReadmePath())
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example.org/v1/genes.gtf.gz", link}, r.Values(ReadmeKey))
}

func TestInstall_GFF(t *testing.T) {
	srv := testutil.NewRemote(t, map[string]string{"/tiny.gff3": "##gff-version 3\n"})
	m, runner := newTestManager(t)
	g := genome.New(t.TempDir(), "tiny")

	runner.EXPECT().Run(gomock.Any(), "gff3ToGenePred", "-geneNameAttr=gene", gomock.Any(), gomock.Any()).DoAndReturn(writeOutput("pred\n"))
	runner.EXPECT().Run(gomock.Any(), "genePredToGtf", "file", gomock.Any(), gomock.Any()).DoAndReturn(writeOutput(gtfContent))
	runner.EXPECT().Run(gomock.Any(), "genePredToBed", gomock.Any(), gomock.Any()).DoAndReturn(writeOutput("bed\n"))

	require.NoError(t, m.Install(context.Background(), g, srv.URL+"/tiny.gff3"))
	assert.Equal(t, gtfContent, readGz(t, g.AnnotationGTFPath()))
	assert.Equal(t, "bed\n", readGz(t, g.AnnotationBEDPath()))
}

func TestInstall_UCSCTable(t *testing.T) {
	// knownGene-like rows with a leading bin column
	table := "585\tuc001aaa.3\tchr1\t+\t11873\t14409\t11873\t11873\t3\t11873,12612,13220,\t12227,12721,14409,\textra\n" +
		"586\tuc002bbb.1\tchr2\t-\t100\t200\t110\t190\t1\t100,\t200,\textra\n"
	srv := testutil.NewRemote(t, map[string]string{"/database/knownGene.txt.gz": testutil.Gzip(t, table)})
	m, runner := newTestManager(t)
	g := genome.New(t.TempDir(), "hg38")

	var pred string
	runner.EXPECT().Run(gomock.Any(), "genePredToGtf", "file", gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, args ...string) error {
			data, err := os.ReadFile(args[1])
			pred = string(data)
			if err != nil {
				return err
			}
			return os.WriteFile(args[2], []byte(gtfContent), 0o644)
		})
	runner.EXPECT().Run(gomock.Any(), "genePredToBed", gomock.Any(), gomock.Any()).DoAndReturn(writeOutput("bed\n"))

	require.NoError(t, m.Install(context.Background(), g, srv.URL+"/database/knownGene.txt.gz"))
	assert.Equal(t,
		"uc001aaa.3\tchr1\t+\t11873\t14409\t11873\t11873\t3\t11873,12612,13220,\t12227,12721,14409,\textra\n"+
			"uc002bbb.1\tchr2\t-\t100\t200\t110\t190\t1\t100,\t200,\textra\n",
		pred)
}

func TestInstall_NotFound(t *testing.T) {
	srv := testutil.NewRemote(t, map[string]string{})
	m, _ := newTestManager(t)
	g := genome.New(t.TempDir(), "tiny")

	err := m.Install(context.Background(), g, srv.URL+"/genes.gtf.gz")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDownloadFailed)
	assert.NoFileExists(t, g.AnnotationGTFPath())
	assert.NoFileExists(t, g.ReadmePath())
	noLeftovers(t, g.Dir)
}

func TestInstall_ToolFailure(t *testing.T) {
	srv := testutil.NewRemote(t, map[string]string{"/a.bed": "chr1\t1\t2\tx\n"})
	m, runner := newTestManager(t)
	g := genome.New(t.TempDir(), "tiny")

	runner.EXPECT().Run(gomock.Any(), "bedToGenePred", gomock.Any(), gomock.Any()).
		Return(errors.Wrap(errors.ErrToolFailed, "bedToGenePred exited with 1"))

	err := m.Install(context.Background(), g, srv.URL+"/a.bed")
	assert.ErrorIs(t, err, errors.ErrToolFailed)
	assert.NoFileExists(t, g.AnnotationBEDPath())
	noLeftovers(t, g.Dir)
}

func TestInstall_UnsupportedFormat(t *testing.T) {
	m, _ := newTestManager(t)
	g := genome.New(t.TempDir(), "tiny")
	err := m.Install(context.Background(), g, "https://example.org/a.vcf")
	assert.ErrorIs(t, err, errors.ErrAnnotationNotFound)
	assert.NoDirExists(t, g.Dir)
}
