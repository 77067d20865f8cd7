package genome

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/glorpus-work/gogenome/pkg/fsutil"
)

// ReadmeFile is the provenance record kept in every genome directory.
const ReadmeFile = "README.txt"

// AnnotationURLKey is the provenance field recording an annotation source.
const AnnotationURLKey = "annotation url"

// DateLayout is the timestamp format of the "date" field.
const DateLayout = "2006-01-02 15:04:05"

// Field is one "key: value" line of the provenance record.
type Field struct {
	Key   string
	Value string
}

// Readme is the provenance record of an installed genome. Fields keep their
// order; Notes are free-form trailing lines such as the excluded sequence list.
type Readme struct {
	Fields []Field
	Notes  []string
}

// Provenance describes a completed genome download.
type Provenance struct {
	Name             string
	Provider         string
	OriginalName     string
	OriginalFilename string
	Accession        string
	TaxID            string
	URL              string
	Mask             Mask
	Date             time.Time
	Regex            string
	InvertMatch      bool
	Excluded         []string
}

// NewReadme builds the record written after a genome download.
func NewReadme(p Provenance) *Readme {
	r := &Readme{}
	r.Set("name", p.Name)
	r.Set("provider", p.Provider)
	r.Set("original name", p.OriginalName)
	r.Set("original filename", p.OriginalFilename)
	r.Set("assembly_accession", orNA(p.Accession))
	r.Set("taxid", orNA(p.TaxID))
	r.Set("url", p.URL)
	r.Set("mask", string(p.Mask))
	r.Set("date", p.Date.Format(DateLayout))

	if p.Regex != "" {
		regex := p.Regex
		if p.InvertMatch {
			regex += " (inverted match)"
		}
		r.Set("regex", regex)
		r.Notes = append(r.Notes, "sequences that were excluded:")
		for _, id := range p.Excluded {
			r.Notes = append(r.Notes, "\t"+id)
		}
	}
	return r
}

func orNA(s string) string {
	if s == "" {
		return "na"
	}
	return s
}

// Get returns the value of key. When key occurs more than once, as appended
// annotation sources do, the last value wins.
func (r *Readme) Get(key string) (string, bool) {
	values := r.Values(key)
	if len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

// Values returns every value of key in file order.
func (r *Readme) Values(key string) []string {
	var out []string
	for _, f := range r.Fields {
		if f.Key == key {
			out = append(out, f.Value)
		}
	}
	return out
}

// Set replaces the value of key, appending the field when it is new.
func (r *Readme) Set(key, value string) {
	for i, f := range r.Fields {
		if f.Key == key {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Key: key, Value: value})
}

// WriteTo writes the record in its text form.
func (r *Readme) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, f := range r.Fields {
		m, err := fmt.Fprintf(w, "%s: %s\n", f.Key, f.Value)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	for _, line := range r.Notes {
		m, err := fmt.Fprintln(w, line)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Save writes the record to path, replacing any previous one.
func (r *Readme) Save(path string) error {
	return fsutil.ReplaceFile(path, func(w io.Writer) error {
		_, err := r.WriteTo(w)
		return err
	})
}

// ReadReadme parses the record at path. Every "key: value" line is a field,
// wherever it appears; other lines are notes.
func ReadReadme(path string) (*Readme, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := &Readme{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if key, value, ok := strings.Cut(line, ": "); ok && !strings.HasPrefix(line, "\t") {
			r.Fields = append(r.Fields, Field{Key: key, Value: value})
			continue
		}
		r.Notes = append(r.Notes, line)
	}
	return r, sc.Err()
}

// AppendReadme adds one "key: value" line to the end of the record at path,
// creating the file when it does not exist. Existing lines are never touched.
func AppendReadme(path, key, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, fsutil.FileModeDefault)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "%s: %s\n", key, value); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
