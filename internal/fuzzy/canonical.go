// Package fuzzy maps raw input strings onto the closest entry of a small
// reference list, to keep near-duplicate catalog values ("en revision" vs
// "EN REVISIÓN") from proliferating.
package fuzzy

import "strings"

// Canonicalizer resolves raw strings against a reference catalog. Pure:
// callers persist the result.
type Canonicalizer struct {
	Scorer   Scorer
	MinRatio float64
}

// NewCanonicalizer returns a canonicalizer with the default sequence
// scorer and the given acceptance threshold.
func NewCanonicalizer(minRatio float64) Canonicalizer {
	return Canonicalizer{Scorer: SequenceScorer{}, MinRatio: minRatio}
}

// Canonicalize maps raw onto the most similar catalog entry:
//  1. exact match after normalization (case/diacritics/whitespace ignored)
//  2. explicit synonym table (synonym → canonical value)
//  3. best fuzzy ratio, accepted only at or above MinRatio
//
// Anything else returns raw unchanged. Always returns a string.
func (c Canonicalizer) Canonicalize(raw string, catalog []string, synonyms map[string]string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	key := NormKey(s)

	for _, opt := range catalog {
		if NormKey(opt) == key {
			return opt
		}
	}

	for k, v := range synonyms {
		if NormKey(k) != key {
			continue
		}
		// Prefer the catalog form of the synonym target when present.
		for _, opt := range catalog {
			if NormKey(opt) == NormKey(v) {
				return opt
			}
		}
		return v
	}

	best, bestRatio := "", 0.0
	for _, opt := range catalog {
		if r := c.Scorer.Score(key, NormKey(opt)); r > bestRatio {
			bestRatio, best = r, opt
		}
	}
	if best != "" && bestRatio >= c.MinRatio {
		return best
	}
	return s
}

// ClosestMatches returns up to n pool entries whose similarity to q is at
// least cutoff, best first, stable on ties.
func ClosestMatches(q string, pool []string, n int, cutoff float64, scorer Scorer) []string {
	type scored struct {
		idx   int
		ratio float64
	}
	var hits []scored
	for i, cand := range pool {
		if r := scorer.Score(q, cand); r >= cutoff {
			hits = append(hits, scored{idx: i, ratio: r})
		}
	}
	// Insertion sort keeps the original order on equal ratios.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].ratio > hits[j-1].ratio; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	if n > 0 && len(hits) > n {
		hits = hits[:n]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = pool[h.idx]
	}
	return out
}
