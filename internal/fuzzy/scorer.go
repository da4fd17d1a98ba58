package fuzzy

// Scorer computes a similarity ratio in [0,1] between two strings. It is a
// pluggable strategy so alternative matchers can be substituted and tested
// independently of the callers.
type Scorer interface {
	Score(a, b string) float64
}

// SequenceScorer scores with the Ratcliff/Obershelp ratio:
// 2·M / (len(a)+len(b)), where M is the total length of the matching
// blocks found by recursing around the longest common substring.
type SequenceScorer struct{}

func (SequenceScorer) Score(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	m := matchingRunes(ra, rb)
	return 2.0 * float64(m) / float64(total)
}

// matchingRunes counts the runes covered by matching blocks.
func matchingRunes(a, b []rune) int {
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	n := size
	n += matchingRunes(a[:ai], b[:bi])
	n += matchingRunes(a[ai+size:], b[bi+size:])
	return n
}

// longestMatch finds the longest common substring of a and b, preferring
// the earliest occurrence in a, then in b.
func longestMatch(a, b []rune) (ai, bi, size int) {
	j2len := make([]int, len(b)+1)
	for i := range a {
		next := make([]int, len(b)+1)
		for j := range b {
			if a[i] == b[j] {
				k := j2len[j] + 1
				next[j+1] = k
				if k > size {
					size = k
					ai = i - k + 1
					bi = j - k + 1
				}
			}
		}
		j2len = next
	}
	return ai, bi, size
}
