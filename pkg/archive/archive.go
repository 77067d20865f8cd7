// Package archive unpacks downloaded genome assets: tar archives of
// per-chromosome FASTA files and single gzip streams.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/fsutil"
	"github.com/klauspost/pgzip"
	"github.com/mholt/archives"
)

// Manager handles archive extraction and (de)compression.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// IsTar reports whether name looks like a (compressed) tar archive.
func IsTar(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range []string{".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tar.xz", ".tar.zst"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// IsGzip reports whether name is a single gzip stream.
func IsGzip(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".gz") && !IsTar(lower)
}

// ExtractAll extracts all regular files of an archive into destDir in a
// single pass over the stream.
func (am *Manager) ExtractAll(ctx context.Context, archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	defer func() { _ = file.Close() }()

	format, stream, err := archives.Identify(ctx, filepath.Base(archivePath), file)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", archivePath, err, errors.ErrArchive)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("%s is not an archive: %w", archivePath, errors.ErrArchive)
	}

	if err := os.MkdirAll(destDir, fsutil.DirModeSecure); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	err = extractor.Extract(ctx, stream, func(_ context.Context, f archives.FileInfo) error {
		return am.extractEntry(f, destDir)
	})
	if err != nil {
		return fmt.Errorf("%s: %v: %w", archivePath, err, errors.ErrArchive)
	}
	return nil
}

// extractEntry writes one regular archive member below destDir.
func (am *Manager) extractEntry(f archives.FileInfo, destDir string) error {
	if !f.Mode().IsRegular() {
		return nil
	}
	targetPath := filepath.Join(destDir, filepath.FromSlash(f.NameInArchive))
	if !strings.HasPrefix(targetPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("archive member %s escapes destination", f.NameInArchive)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive member %s: %w", f.NameInArchive, err)
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(filepath.Dir(targetPath), fsutil.DirModeSecure); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", f.NameInArchive, err)
	}
	dst, err := fsutil.CreateFilePerm(targetPath, fsutil.FileModeDefault)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to copy file %s: %w", f.NameInArchive, err)
	}
	return dst.Close()
}

var fastaMember = regexp.MustCompile(`(?i)\.(fa|fasta|fna)(\.gz)?$`)

// ConcatFASTA extracts a tar archive of FASTA files and concatenates its
// members into outPath in directory walk order. Each member is removed as
// soon as it has been appended. Compressed members are decompressed.
func (am *Manager) ConcatFASTA(ctx context.Context, archivePath, outPath string) error {
	workDir, err := os.MkdirTemp(filepath.Dir(outPath), ".extract-*")
	if err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	if err := am.ExtractAll(ctx, archivePath, workDir); err != nil {
		return err
	}

	out, err := fsutil.CreateFilePerm(outPath, fsutil.FileModeDefault)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}

	parts := 0
	err = filepath.WalkDir(workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !fastaMember.MatchString(d.Name()) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := appendFile(out, path); err != nil {
			return err
		}
		parts++
		return os.Remove(path)
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to concatenate %s: %w", archivePath, err)
	}
	if parts == 0 {
		return fmt.Errorf("%s contains no FASTA files: %w", archivePath, errors.ErrArchive)
	}

	logger.Debug("concatenated archive members", logger.Fields{"archive": filepath.Base(archivePath), "parts": parts})
	return nil
}

func appendFile(out io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}
	_, err = io.Copy(out, r)
	return err
}

// Gunzip decompresses src into dst. Multi-member (bgzip) streams are read in full.
func (am *Manager) Gunzip(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	zr, err := pgzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", src, err, errors.ErrArchive)
	}
	defer func() { _ = zr.Close() }()

	out, err := fsutil.CreateFilePerm(dst, fsutil.FileModeDefault)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, zr); err != nil {
		_ = out.Close()
		return fmt.Errorf("%s: %v: %w", src, err, errors.ErrArchive)
	}
	return out.Close()
}

// Gzip compresses src into dst using parallel gzip.
func (am *Manager) Gzip(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := fsutil.CreateFilePerm(dst, fsutil.FileModeDefault)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	zw := pgzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		_ = zw.Close()
		_ = out.Close()
		return fmt.Errorf("failed to compress %s: %w", src, err)
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to compress %s: %w", src, err)
	}
	return out.Close()
}
