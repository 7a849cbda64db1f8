package sequence

import "math"

// Score returns 1 - |p1 - p2| where p1 is the share of group-one symbols
// (alphabet positions 0 and 1) and p2 = 1 - p1. The result is in [0,1].
func Score(seq Sequence) (float64, error) {
	n := seq.Len()
	if n == 0 {
		return 0, ErrEmptySequence
	}
	counts := Counts(seq)
	p1 := float64(counts[0]+counts[1]) / float64(n)
	p2 := 1 - p1
	score := 1 - math.Abs(p1-p2)
	// clamp: rounding must never leave [0,1]
	return math.Min(1, math.Max(0, score)), nil
}

// Counts returns per-position symbol counts in alphabet order.
func Counts(seq Sequence) [AlphabetSize]int {
	var counts [AlphabetSize]int
	for _, sym := range seq.symbols {
		if i := seq.alphabet.Index(sym); i >= 0 {
			counts[i]++
		}
	}
	return counts
}
