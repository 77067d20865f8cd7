package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/klauspost/pgzip"
	"github.com/mholt/archives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTarGz packs files (relative name -> content) into a tar.gz.
func makeTarGz(t *testing.T, files map[string]string) string {
	t.Helper()
	ctx := context.Background()
	tempDir := t.TempDir()
	sourceDir := filepath.Join(tempDir, "source")

	for name, content := range files {
		full := filepath.Join(sourceDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	archiveFiles, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		sourceDir + string(os.PathSeparator): "",
	})
	require.NoError(t, err)

	archivePath := filepath.Join(tempDir, "chromFa.tar.gz")
	out, err := os.Create(archivePath)
	require.NoError(t, err)
	format := archives.CompressedArchive{Compression: archives.Gz{}, Archival: archives.Tar{}}
	require.NoError(t, format.Archive(ctx, out, archiveFiles))
	require.NoError(t, out.Close())
	return archivePath
}

func TestIsTarIsGzip(t *testing.T) {
	assert.True(t, IsTar("chromFa.tar.gz"))
	assert.True(t, IsTar("x.TGZ"))
	assert.False(t, IsTar("hg38.fa.gz"))
	assert.True(t, IsGzip("hg38.fa.gz"))
	assert.False(t, IsGzip("chromFa.tar.gz"))
	assert.False(t, IsGzip("genome.fa"))
}

func TestExtractAll(t *testing.T) {
	archivePath := makeTarGz(t, map[string]string{
		"chr1.fa":     ">chr1\nACGT\n",
		"sub/chr2.fa": ">chr2\nGGCC\n",
		"md5sum.txt":  "abc\n",
	})
	dest := filepath.Join(t.TempDir(), "out")

	require.NoError(t, NewManager().ExtractAll(context.Background(), archivePath, dest))
	got, err := os.ReadFile(filepath.Join(dest, "sub", "chr2.fa"))
	require.NoError(t, err)
	assert.Equal(t, ">chr2\nGGCC\n", string(got))
	assert.FileExists(t, filepath.Join(dest, "md5sum.txt"))
}

func TestExtractAll_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.tar")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("not a tar "), 120), 0o644))
	err := NewManager().ExtractAll(context.Background(), path, t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArchive)
}

func TestConcatFASTA(t *testing.T) {
	archivePath := makeTarGz(t, map[string]string{
		"chr2.fa":    ">chr2\nGGCC\n",
		"chr1.fa":    ">chr1\nACGT\n",
		"chrM.fa":    ">chrM\nTT\n",
		"README.txt": "ignored\n",
	})
	workDir := t.TempDir()
	out := filepath.Join(workDir, "genome.fa")

	require.NoError(t, NewManager().ConcatFASTA(context.Background(), archivePath, out))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, ">chr1\nACGT\n>chr2\nGGCC\n>chrM\nTT\n", string(got))

	// the extraction directory is gone, only the output remains
	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "genome.fa", entries[0].Name())
}

func TestConcatFASTA_NoFastaMembers(t *testing.T) {
	archivePath := makeTarGz(t, map[string]string{"notes.txt": "x"})
	err := NewManager().ConcatFASTA(context.Background(), archivePath, filepath.Join(t.TempDir(), "g.fa"))
	assert.ErrorIs(t, err, errors.ErrArchive)
}

func TestGzipGunzipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.gtf")
	content := bytes.Repeat([]byte("chr1\tsrc\tgene\t1\t100\t.\t+\t.\tgene_id \"g\";\n"), 1000)
	require.NoError(t, os.WriteFile(src, content, 0o644))

	am := NewManager()
	require.NoError(t, am.Gzip(src, src+".gz"))
	require.NoError(t, am.Gunzip(src+".gz", filepath.Join(dir, "b.gtf")))

	got, err := os.ReadFile(filepath.Join(dir, "b.gtf"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestGunzip_MultiMember(t *testing.T) {
	var buf bytes.Buffer
	for _, part := range []string{">a\nAC\n", ">b\nGT\n"} {
		zw := pgzip.NewWriter(&buf)
		_, err := zw.Write([]byte(part))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "g.fa.gz")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	require.NoError(t, NewManager().Gunzip(src, filepath.Join(dir, "g.fa")))
	got, err := os.ReadFile(filepath.Join(dir, "g.fa"))
	require.NoError(t, err)
	assert.Equal(t, ">a\nAC\n>b\nGT\n", string(got))
}

func TestGunzip_Corrupt(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.gz")
	require.NoError(t, os.WriteFile(src, []byte("plain text"), 0o644))
	err := NewManager().Gunzip(src, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, errors.ErrArchive)
}
