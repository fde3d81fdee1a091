package vectormath

import (
	"cmp"
	"slices"
)

// Candidate is an item scored against a query.
type Candidate[T any] struct {
	Item T

	// Seq is the item's insertion sequence. Lower values were inserted first.
	Seq int64

	// Distance from the query. Smaller is better.
	Distance float64
}

// TopK orders candidates by ascending distance, breaking ties by insertion
// sequence, and returns at most k of them. The input slice is reordered.
func TopK[T any](candidates []Candidate[T], k int) []Candidate[T] {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	slices.SortStableFunc(candidates, func(a, b Candidate[T]) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}
