package normalize

import "fmt"

// Weights controls the blend of edit-distance similarity and character-set
// overlap in the combined similarity score. The observed defaults (0.6/0.4)
// come from the production tuning of the upstream OCR pipeline; they are kept
// configurable rather than hard-coded.
type Weights struct {
	Edit    float64 `json:"edit_weight"`
	Jaccard float64 `json:"jaccard_weight"`
}

// DefaultWeights returns the standard 60/40 edit/Jaccard blend.
func DefaultWeights() Weights {
	return Weights{Edit: 0.6, Jaccard: 0.4}
}

// Validate checks that the weights are in range and sum to approximately 1.0.
func (w Weights) Validate() error {
	if w.Edit < 0.0 || w.Edit > 1.0 {
		return fmt.Errorf("edit weight must be between 0.0 and 1.0: %f", w.Edit)
	}
	if w.Jaccard < 0.0 || w.Jaccard > 1.0 {
		return fmt.Errorf("jaccard weight must be between 0.0 and 1.0: %f", w.Jaccard)
	}
	total := w.Edit + w.Jaccard
	if total < 0.9 || total > 1.1 {
		return fmt.Errorf("weights should sum to approximately 1.0, got %f", total)
	}
	return nil
}

// Similarity computes a bounded [0,1] similarity between two strings as a
// weighted combination of edit-distance similarity and Jaccard character-set
// overlap. Both inputs must already be normalized; the function does not
// normalize internally, so repeated synonym comparisons pay the folding cost
// only once.
//
// Two empty strings define similarity 0, not 1, so blank labels never match
// anything.
func Similarity(a, b string, w Weights) float64 {
	ra := []rune(a)
	rb := []rune(b)

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 0
	}

	editSim := 1.0 - float64(Levenshtein(ra, rb))/float64(maxLen)
	return w.Edit*editSim + w.Jaccard*jaccard(ra, rb)
}

// Levenshtein computes the classic single-character edit distance between two
// rune slices using O(len(a)*len(b)) dynamic programming with unit costs for
// insert, delete and substitute.
func Levenshtein(a, b []rune) int {
	m, n := len(a), len(b)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Two-row rolling window over the DP table.
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1]
				continue
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + 1

			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// jaccard computes the Jaccard index over the character sets of two strings.
func jaccard(a, b []rune) float64 {
	setA := make(map[rune]struct{}, len(a))
	for _, r := range a {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{}, len(b))
	for _, r := range b {
		setB[r] = struct{}{}
	}

	intersection := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
