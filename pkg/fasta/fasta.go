// Package fasta streams FASTA files record by record without holding whole
// sequences in memory. Chromosome sized lines are handled in fragments.
package fasta

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/klauspost/pgzip"
)

const readBufferSize = 1 << 20

var gzipMagic = []byte{0x1f, 0x8b}

// Open opens a plain or gzip/bgzip compressed FASTA file.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(f, readBufferSize)
	magic, _ := br.Peek(len(gzipMagic))
	if !bytes.Equal(magic, gzipMagic) {
		return &readCloser{Reader: br, close: f.Close}, nil
	}

	zr, err := pgzip.NewReader(br)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &readCloser{Reader: zr, close: func() error {
		_ = zr.Close()
		return f.Close()
	}}, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error { return r.close() }

// handler receives the pieces of a FASTA stream in order.
//
// header is called once per header line with the text after '>' and without
// the line terminator. seq is called with sequence bytes, which may be a
// fragment of a line. eol is called at the end of every sequence line.
type handler struct {
	header func(h []byte) error
	seq    func(b []byte) error
	eol    func() error
}

// walk drives h over r.
func walk(r io.Reader, h handler) error {
	br := bufio.NewReaderSize(r, readBufferSize)
	atLineStart := true
	inHeader := false
	var hdr []byte

	for {
		frag, err := br.ReadSlice('\n')
		if len(frag) > 0 {
			complete := frag[len(frag)-1] == '\n'
			body := bytes.TrimRight(frag, "\r\n")

			if atLineStart && frag[0] == '>' {
				inHeader = true
				hdr = hdr[:0]
				body = body[1:]
			}

			if inHeader {
				hdr = append(hdr, body...)
				if complete || err == io.EOF {
					inHeader = false
					if herr := h.header(hdr); herr != nil {
						return herr
					}
				}
			} else {
				if len(body) > 0 && h.seq != nil {
					if serr := h.seq(body); serr != nil {
						return serr
					}
				}
				if complete && h.eol != nil {
					if eerr := h.eol(); eerr != nil {
						return eerr
					}
				}
			}
			atLineStart = complete
		}

		switch err {
		case nil, bufio.ErrBufferFull:
			continue
		case io.EOF:
			return nil
		default:
			return err
		}
	}
}

// recordID returns the sequence id of a header: the text up to the first whitespace.
func recordID(header []byte) string {
	if i := bytes.IndexAny(header, " \t"); i >= 0 {
		return string(header[:i])
	}
	return string(header)
}
