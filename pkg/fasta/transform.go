package fasta

import (
	"bufio"
	"fmt"
	"io"
	"regexp"

	"github.com/glorpus-work/gogenome/pkg/fsutil"
)

// ByteMap rewrites sequence bytes in place.
type ByteMap func(b []byte)

// UpperCase removes soft-masking.
func UpperCase(b []byte) {
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
}

// HardMask turns soft-masked bases into N.
func HardMask(b []byte) {
	for i, c := range b {
		switch c {
		case 'a', 'c', 'g', 't':
			b[i] = 'N'
		}
	}
}

// Rewrite describes a streaming rewrite of a FASTA file.
type Rewrite struct {
	// Header maps a header line (without '>') to its replacement. Nil keeps headers.
	Header func(h []byte) []byte
	// Keep decides per record id whether the record is written. Nil keeps all.
	Keep func(id string) bool
	// Sequence rewrites sequence bytes. Nil keeps them.
	Sequence ByteMap
}

// Apply streams r through the rewrite into w and returns the ids of records
// that Keep dropped, in file order.
func (rw Rewrite) Apply(r io.Reader, w io.Writer) ([]string, error) {
	bw := bufio.NewWriterSize(w, readBufferSize)
	var (
		excluded []string
		keep     = true
		scratch  []byte
	)

	err := walk(r, handler{
		header: func(h []byte) error {
			id := recordID(h)
			keep = rw.Keep == nil || rw.Keep(id)
			if !keep {
				excluded = append(excluded, id)
				return nil
			}
			if rw.Header != nil {
				h = rw.Header(h)
			}
			if err := bw.WriteByte('>'); err != nil {
				return err
			}
			if _, err := bw.Write(h); err != nil {
				return err
			}
			return bw.WriteByte('\n')
		},
		seq: func(b []byte) error {
			if !keep {
				return nil
			}
			if rw.Sequence != nil {
				scratch = append(scratch[:0], b...)
				rw.Sequence(scratch)
				b = scratch
			}
			_, err := bw.Write(b)
			return err
		},
		eol: func() error {
			if !keep {
				return nil
			}
			return bw.WriteByte('\n')
		},
	})
	if err != nil {
		return nil, err
	}
	return excluded, bw.Flush()
}

// ApplyFile rewrites the uncompressed FASTA at path in place. The file is
// replaced only once the whole rewrite succeeded.
func (rw Rewrite) ApplyFile(path string) ([]string, error) {
	in, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = in.Close() }()

	var excluded []string
	err = fsutil.ReplaceFile(path, func(w io.Writer) error {
		var aerr error
		excluded, aerr = rw.Apply(in, w)
		return aerr
	})
	return excluded, err
}

// FilterFile keeps the records whose id matches re (or does not match, when
// invert is set) and returns the excluded ids.
func FilterFile(path string, re *regexp.Regexp, invert bool) ([]string, error) {
	return Rewrite{
		Keep: func(id string) bool { return re.MatchString(id) != invert },
	}.ApplyFile(path)
}

// RenameHeaders turns ">id rest" into ">name id rest", where name is the
// translation of id. The original header text becomes the description. Ids
// without a translation keep their name.
func RenameHeaders(names map[string]string) func(h []byte) []byte {
	return func(h []byte) []byte {
		id := recordID(h)
		name, ok := names[id]
		if !ok {
			name = id
		}
		out := make([]byte, 0, len(name)+1+len(h))
		out = append(out, name...)
		out = append(out, ' ')
		return append(out, h...)
	}
}
