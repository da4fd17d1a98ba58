package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  EN  REVISIÓN ", "en revision"},
		{"José Pérez", "jose perez"},
		{"plain", "plain"},
		{"", ""},
		{"Ñandú", "nandu"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormKey(tt.in), "NormKey(%q)", tt.in)
	}
}

func TestSequenceScorer(t *testing.T) {
	s := SequenceScorer{}

	assert.Equal(t, 1.0, s.Score("abc", "abc"))
	assert.Equal(t, 1.0, s.Score("", ""))
	assert.Equal(t, 0.0, s.Score("abc", "xyz"))

	// One substitution in a six-rune string: 2*5/12.
	assert.InDelta(t, 10.0/12.0, s.Score("abcdef", "abcxef"), 1e-9)

	// Symmetric enough for our use.
	assert.InDelta(t, s.Score("dispersado", "dispersad"), s.Score("dispersad", "dispersado"), 1e-9)
}

func TestCanonicalize_ExactNormalizedMatch(t *testing.T) {
	c := NewCanonicalizer(0.90)
	catalog := []string{"EN REVISIÓN", "DISBURSED"}

	assert.Equal(t, "EN REVISIÓN", c.Canonicalize("en revision", catalog, nil))
	assert.Equal(t, "EN REVISIÓN", c.Canonicalize("  En  Revisión ", catalog, nil))
}

func TestCanonicalize_Synonyms(t *testing.T) {
	c := NewCanonicalizer(0.99) // fuzzy effectively off
	catalog := []string{"DISBURSED"}
	syn := map[string]string{"paid out": "DISBURSED", "wired": "SENT"}

	assert.Equal(t, "DISBURSED", c.Canonicalize("Paid Out", catalog, syn))
	// Synonym target missing from the catalog falls back to the target itself.
	assert.Equal(t, "SENT", c.Canonicalize("wired", catalog, syn))
}

func TestCanonicalize_FuzzyThreshold(t *testing.T) {
	c := NewCanonicalizer(0.90)
	catalog := []string{"DISBURSED", "PROPOSAL"}

	assert.Equal(t, "DISBURSED", c.Canonicalize("disbursd", catalog, nil))
	// Far from everything: returned unchanged.
	assert.Equal(t, "zzzzz", c.Canonicalize("zzzzz", catalog, nil))
}

func TestCanonicalize_Idempotent(t *testing.T) {
	c := NewCanonicalizer(0.90)
	catalog := []string{"DISBURSED", "IN ONBOARDING", "PENDING CLIENT", "EN REVISIÓN"}

	for _, opt := range catalog {
		once := c.Canonicalize(opt, catalog, nil)
		twice := c.Canonicalize(once, catalog, nil)
		assert.Equal(t, opt, once)
		assert.Equal(t, once, twice)
	}
}

// Lowering the threshold never shrinks the set of inputs that resolve to a
// catalog entry.
func TestCanonicalize_ThresholdMonotonic(t *testing.T) {
	catalog := []string{"DISBURSED", "PROPOSAL", "PENDING DOCS"}
	inputs := []string{"disbursd", "propposal", "pending doc", "unrelated text", "pendng docs"}

	accepted := func(minRatio float64) map[string]bool {
		c := NewCanonicalizer(minRatio)
		out := map[string]bool{}
		for _, in := range inputs {
			got := c.Canonicalize(in, catalog, nil)
			if got != in {
				out[in] = true
			}
		}
		return out
	}

	strict := accepted(0.92)
	loose := accepted(0.82)
	for in := range strict {
		assert.True(t, loose[in], "input %q accepted at 0.92 must stay accepted at 0.82", in)
	}
}

func TestCanonicalize_EmptyInput(t *testing.T) {
	c := NewCanonicalizer(0.90)
	assert.Equal(t, "", c.Canonicalize("   ", []string{"A"}, nil))
}

func TestClosestMatches(t *testing.T) {
	pool := []string{"dispersado", "en onboarding", "propuesta", "dispersada"}
	got := ClosestMatches("dispersado", pool, 2, 0.6, SequenceScorer{})

	assert.Equal(t, []string{"dispersado", "dispersada"}, got)

	assert.Empty(t, ClosestMatches("qqq", pool, 3, 0.6, SequenceScorer{}))
}
