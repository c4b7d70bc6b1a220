package metrics

import (
	"math"
	"strings"
	"unicode"
)

// Normalize applies the fixed text normalization used on both reference and
// hypothesis before WER scoring: lowercase, strip punctuation (Unicode
// category P), collapse whitespace, trim. The pipeline is idempotent:
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// WordErrorRate computes the normalized word-level edit distance between a
// reference and a hypothesis, divided by the reference word count.
//
// Substitutions, insertions and deletions carry equal weight. An empty
// reference scores 0.0 against an empty hypothesis and 1.0 otherwise. The
// result may exceed 1.0 for pathological hypotheses; it is never negative.
func WordErrorRate(reference, hypothesis string) float64 {
	ref := fields(reference)
	hyp := fields(hypothesis)

	if len(ref) == 0 {
		if len(hyp) == 0 {
			return 0.0
		}
		return 1.0
	}

	dist := editDistance(ref, hyp)
	return float64(dist) / float64(len(ref))
}

// AccuracyFrom derives the accuracy percentage from a WER value,
// rounded to one decimal place: round(100 * max(0, 1 - wer), 1).
func AccuracyFrom(wer float64) float64 {
	acc := 100 * math.Max(0, 1-wer)
	return math.Round(acc*10) / 10
}

func fields(text string) []string {
	return strings.Fields(Normalize(text))
}

// editDistance is the classic two-row Levenshtein over word slices.
func editDistance(ref, hyp []string) int {
	prev := make([]int, len(hyp)+1)
	curr := make([]int, len(hyp)+1)

	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ref); i++ {
		curr[0] = i
		for j := 1; j <= len(hyp); j++ {
			if ref[i-1] == hyp[j-1] {
				curr[j] = prev[j-1]
			} else {
				curr[j] = 1 + min(prev[j], curr[j-1], prev[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(hyp)]
}
