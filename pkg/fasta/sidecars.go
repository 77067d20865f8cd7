package fasta

import (
	"bufio"
	"fmt"
	"io"

	"github.com/glorpus-work/gogenome/pkg/fsutil"
)

// Sizes writes "<id>\t<length>\n" for every record of r, in file order.
// Lengths count sequence characters only.
func Sizes(r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	var (
		id     string
		length int64
		open   bool
	)
	flush := func() error {
		if !open {
			return nil
		}
		_, err := fmt.Fprintf(bw, "%s\t%d\n", id, length)
		return err
	}

	err := walk(r, handler{
		header: func(h []byte) error {
			if err := flush(); err != nil {
				return err
			}
			id, length, open = recordID(h), 0, true
			return nil
		},
		seq: func(b []byte) error {
			length += int64(len(b))
			return nil
		},
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	return bw.Flush()
}

// Gaps writes a BED3 line for every maximal run of N or n, using 0-based
// half-open coordinates. Records without gaps produce no lines.
func Gaps(r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	var (
		id       string
		pos      int64
		runStart int64 = -1
	)
	closeRun := func() error {
		if runStart < 0 {
			return nil
		}
		_, err := fmt.Fprintf(bw, "%s\t%d\t%d\n", id, runStart, pos)
		runStart = -1
		return err
	}

	err := walk(r, handler{
		header: func(h []byte) error {
			if err := closeRun(); err != nil {
				return err
			}
			id, pos = recordID(h), 0
			return nil
		},
		seq: func(b []byte) error {
			for _, c := range b {
				if c == 'N' || c == 'n' {
					if runStart < 0 {
						runStart = pos
					}
				} else if err := closeRun(); err != nil {
					return err
				}
				pos++
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	if err := closeRun(); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteSizes generates the sizes sidecar of the FASTA file at seqPath.
func WriteSizes(seqPath, outPath string) error {
	return writeSidecar(seqPath, outPath, Sizes)
}

// WriteGaps generates the gaps sidecar of the FASTA file at seqPath.
func WriteGaps(seqPath, outPath string) error {
	return writeSidecar(seqPath, outPath, Gaps)
}

func writeSidecar(seqPath, outPath string, gen func(io.Reader, io.Writer) error) error {
	in, err := Open(seqPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", seqPath, err)
	}
	defer func() { _ = in.Close() }()

	return fsutil.ReplaceFile(outPath, func(w io.Writer) error {
		if err := gen(in, w); err != nil {
			return fmt.Errorf("failed to read %s: %w", seqPath, err)
		}
		return nil
	})
}
