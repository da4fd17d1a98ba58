// Package search implements the typo-tolerant option search used by the
// catalog pickers and the in-app search box. Query syntax: space-separated
// terms are ANDed, comma-separated groups are ORed, "quoted" substrings
// require exact phrase containment, a leading - or ! negates a term, a
// trailing * marks a prefix match.
package search

import (
	"strings"

	"crm-backend/internal/fuzzy"
)

// Index is the build-time derivation of an option list.
type Index struct {
	Opts     []string
	Norms    []string
	Tokens   []map[string]struct{}
	Initials []string

	// Inverted token index and first-letter buckets, kept for callers that
	// want candidate pre-filtering on large lists.
	Inverted map[string][]int
	Buckets  map[string][]int
}

// BuildIndex derives the searchable index from an option list. Option order
// is preserved and is the tie-break order at query time.
func BuildIndex(options []string) *Index {
	idx := &Index{
		Opts:     make([]string, len(options)),
		Norms:    make([]string, len(options)),
		Tokens:   make([]map[string]struct{}, len(options)),
		Initials: make([]string, len(options)),
		Inverted: map[string][]int{},
		Buckets:  map[string][]int{},
	}
	for i, o := range options {
		idx.Opts[i] = o
		n := fuzzy.NormKey(o)
		idx.Norms[i] = n

		words := strings.Fields(n)
		toks := make(map[string]struct{}, len(words))
		var initials strings.Builder
		for _, w := range words {
			toks[w] = struct{}{}
			initials.WriteString(w[:1])
		}
		idx.Tokens[i] = toks
		idx.Initials[i] = initials.String()

		for t := range toks {
			idx.Inverted[t] = append(idx.Inverted[t], i)
		}
		if n != "" {
			b := n[:1]
			idx.Buckets[b] = append(idx.Buckets[b], i)
		}
	}
	return idx
}
