package search

import (
	"regexp"
	"strings"

	"crm-backend/internal/fuzzy"
)

// Group is one OR-alternative of a parsed query: every required term and
// phrase must match, no excluded term may.
type Group struct {
	Required []string
	Phrases  []string
	Exclude  []string
}

var phraseRe = regexp.MustCompile(`"([^"]+)"`)

// ParseQuery splits a raw query into OR-groups.
func ParseQuery(q string) []Group {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}

	var groups []Group
	for _, part := range strings.Split(q, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var g Group
		for _, m := range phraseRe.FindAllStringSubmatch(part, -1) {
			g.Phrases = append(g.Phrases, fuzzy.NormKey(m[1]))
		}
		base := phraseRe.ReplaceAllString(part, " ")

		for _, t := range strings.Fields(base) {
			neg := strings.HasPrefix(t, "-") || strings.HasPrefix(t, "!")
			if neg {
				t = t[1:]
			}
			t = fuzzy.NormKey(t)
			if t == "" {
				continue
			}
			if neg {
				g.Exclude = append(g.Exclude, t)
			} else {
				g.Required = append(g.Required, t)
			}
		}
		groups = append(groups, g)
	}
	return groups
}
