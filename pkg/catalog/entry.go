// Package catalog holds provider catalog entries and the cache that keeps
// remote catalog listings around between calls and between runs.
package catalog

import (
	"strconv"
	"strings"
)

// Entry is one genome assembly as advertised by a provider catalog.
type Entry struct {
	Name           string
	Accession      string
	ScientificName string
	TaxID          string
	Description    string
	// Extra holds provider specific metadata, e.g. Ensembl "division".
	Extra map[string]string
}

// Get returns Extra[key], or "" when unset.
func (e Entry) Get(key string) string {
	if e.Extra == nil {
		return ""
	}
	return e.Extra[key]
}

// Matches reports whether term selects e. A term that parses as an integer
// matches the taxonomy id exactly; anything else is a case-insensitive
// substring match over the name, description, scientific name, accession and
// every metadata value. Spaces in the term match underscores and vice versa.
func (e Entry) Matches(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	if _, err := strconv.Atoi(term); err == nil {
		return e.TaxID == term
	}

	needle := normalize(term)
	fields := []string{e.Name, e.Description, e.ScientificName, e.Accession}
	for _, v := range e.Extra {
		fields = append(fields, v)
	}
	for _, f := range fields {
		if strings.Contains(normalize(f), needle) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}
