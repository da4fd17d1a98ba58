// Package catalog manages the small controlled-vocabulary lists that
// constrain form inputs: branches, statuses and secondary statuses, plus
// the advisor list derived from client data. Persisted catalogs live in
// the remote store with a local JSON fallback and hardcoded defaults.
package catalog

import (
	"strings"

	"crm-backend/internal/fuzzy"
)

// Catalog names accepted by the manager and the HTTP surface.
const (
	Branches          = "branches"
	Statuses          = "statuses"
	SecondaryStatuses = "secondary-statuses"
)

// StatusDisbursed is the status that marks a client as funded; the
// dashboard's financial KPIs key on it.
const StatusDisbursed = "DISBURSED"

type definition struct {
	sheetTab string
	file     string
	defaults []string
	// keepEmpty preserves the empty entry some catalogs carry on purpose.
	keepEmpty bool
	synonyms  map[string]string
}

var definitions = map[string]definition{
	Branches: {
		sheetTab: "branches",
		file:     "branches.json",
		defaults: []string{"CENTRAL", "NORTH", "SOUTH"},
	},
	Statuses: {
		sheetTab: "statuses",
		file:     "statuses.json",
		defaults: []string{
			StatusDisbursed, "IN ONBOARDING", "PENDING CLIENT", "PROPOSAL",
			"PENDING DOCS", "REJECTED OVERINDEBTED", "REJECTED POLICY", "REJECTED AGE",
		},
		synonyms: map[string]string{
			"paid out":   StatusDisbursed,
			"funded":     StatusDisbursed,
			"onboarding": "IN ONBOARDING",
		},
	},
	SecondaryStatuses: {
		sheetTab:  "secondary_statuses",
		file:      "secondary_statuses.json",
		keepEmpty: true,
		defaults: []string{
			"", StatusDisbursed, "IN ONBOARDING", "PENDING CLIENT ACCEPT",
			"APPROVED WITH PROPOSAL", "PENDING DOCS FOR REVIEW",
			"REJECTED OVERINDEBTED", "REJECTED PENSION TYPE", "REJECTED AGE",
		},
	},
}

// Names lists the persisted catalogs.
func Names() []string {
	return []string{Branches, Statuses, SecondaryStatuses}
}

// Known reports whether name is a persisted catalog.
func Known(name string) bool {
	_, ok := definitions[name]
	return ok
}

// clean trims entries, drops empties (unless the catalog keeps them) and
// de-duplicates preserving order.
func clean(values []string, keepEmpty bool) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" && !keepEmpty {
			continue
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// CanonicalAdvisor matches a raw advisor name against the registered ones
// by normalized key; with no match it returns a title-cased cleanup of the
// input.
func CanonicalAdvisor(raw string, registered []string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return ""
	}
	key := fuzzy.NormKey(name)
	for _, a := range registered {
		if strings.TrimSpace(a) == "" {
			continue
		}
		if fuzzy.NormKey(a) == key {
			return a
		}
	}
	words := strings.Fields(name)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}
