package search

import (
	"sort"
	"strings"

	"crm-backend/internal/fuzzy"
)

// Match-kind weights. Exact token beats prefix beats substring beats
// initials beats fuzzy.
const (
	phraseScore    = 3.0
	tokenScore     = 2.0
	starPrefix     = 1.6
	barePrefix     = 1.4
	substringScore = 1.2
	initialsScore  = 1.0
	fuzzyScore     = 0.8
)

// Searcher runs queries against an Index.
type Searcher struct {
	Scorer fuzzy.Scorer

	// FuzzyRatio is the minimum similarity for a fuzzy term hit.
	FuzzyRatio float64
	// CloseCutoff is the minimum similarity for the global fallback.
	CloseCutoff float64
}

func NewSearcher(fuzzyRatio, closeCutoff float64) Searcher {
	return Searcher{Scorer: fuzzy.SequenceScorer{}, FuzzyRatio: fuzzyRatio, CloseCutoff: closeCutoff}
}

// scoreGroup scores one option against one OR-group. The boolean reports
// whether the option qualifies at all: any excluded term present anywhere
// disqualifies it, any unmet phrase or required term disqualifies it.
func (s Searcher) scoreGroup(idx *Index, i int, g Group) (bool, float64) {
	optNorm := idx.Norms[i]
	optTokens := idx.Tokens[i]
	optInitials := idx.Initials[i]

	for _, ex := range g.Exclude {
		base := strings.TrimSuffix(ex, "*")
		if tokenHasPrefix(optTokens, base) || strings.Contains(optNorm, base) {
			return false, 0
		}
	}

	score := 0.0

	for _, ph := range g.Phrases {
		if !strings.Contains(optNorm, ph) {
			return false, 0
		}
		score += phraseScore
	}

	for _, req := range g.Required {
		isPrefix := strings.HasSuffix(req, "*")
		base := strings.TrimSuffix(req, "*")

		switch {
		case hasToken(optTokens, base):
			score += tokenScore
		case tokenHasPrefix(optTokens, base):
			if isPrefix {
				score += starPrefix
			} else {
				score += barePrefix
			}
		case strings.Contains(optNorm, base):
			score += substringScore
		case strings.HasPrefix(optInitials, base):
			score += initialsScore
		case s.Scorer.Score(base, optNorm) >= s.FuzzyRatio:
			score += fuzzyScore
		default:
			return false, 0
		}
	}

	return true, score
}

// Search ranks the indexed options against the query. Options are scored by
// their best OR-group, ties broken by original order with a small stable
// length bonus. When nothing matches any group the result falls back to a
// global closest-match pass and finally to the full option list.
func (s Searcher) Search(q string, idx *Index, limit int) []string {
	if strings.TrimSpace(q) == "" {
		return clipped(idx.Opts, limit)
	}
	groups := ParseQuery(q)
	if len(groups) == 0 {
		return clipped(idx.Opts, limit)
	}

	type hit struct {
		idx   int
		score float64
	}
	var hits []hit
	for i := range idx.Norms {
		matched := false
		best := 0.0
		for _, g := range groups {
			if ok, sc := s.scoreGroup(idx, i, g); ok {
				matched = true
				if sc > best {
					best = sc
				}
			}
		}
		if matched {
			best += min(0.5, float64(len(idx.Opts[i]))/200.0)
			hits = append(hits, hit{idx: i, score: best})
		}
	}

	if len(hits) == 0 {
		qNorm := fuzzy.NormKey(strings.ReplaceAll(q, `"`, ""))
		n := len(idx.Norms)
		if n > 12 {
			n = 12
		}
		close := fuzzy.ClosestMatches(qNorm, idx.Norms, n, s.CloseCutoff, s.Scorer)
		var out []string
		for _, c := range close {
			for j, norm := range idx.Norms {
				if norm == c {
					out = append(out, idx.Opts[j])
					break
				}
			}
		}
		if len(out) == 0 {
			out = idx.Opts
		}
		return clipped(out, limit)
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].idx < hits[b].idx
	})

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = idx.Opts[h.idx]
	}
	return clipped(out, limit)
}

func hasToken(tokens map[string]struct{}, t string) bool {
	_, ok := tokens[t]
	return ok
}

func tokenHasPrefix(tokens map[string]struct{}, prefix string) bool {
	for t := range tokens {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

func clipped(opts []string, limit int) []string {
	if limit > 0 && len(opts) > limit {
		return opts[:limit]
	}
	return opts
}
