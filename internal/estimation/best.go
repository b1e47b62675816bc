package estimation

import "math"

// Epsilon is the absolute tolerance under which two scores count as tied.
const Epsilon = 1e-9

// Best keeps the lowest-scoring payloads seen so far. Scores within Epsilon of
// the current best are tied with it and kept alongside. The zero value is an
// empty accumulator.
//
// Tolerance is not transitive: combining many partial accumulators can chain
// near-ties together so that kept payloads differ by more than Epsilon.
type Best[T any] struct {
	score float64
	items []T
	set   bool
}

func (b *Best[T]) IsEmpty() bool {
	return !b.set
}

// Admits reports whether a payload with score would be kept by Add.
func (b *Best[T]) Admits(score float64) bool {
	return !b.set || math.Abs(score-b.score) <= Epsilon || score < b.score
}

func (b *Best[T]) Add(score float64, item T) {
	switch {
	case !b.set:
		b.score, b.items, b.set = score, []T{item}, true
	case math.Abs(score-b.score) <= Epsilon:
		b.items = append(b.items, item)
	case score < b.score:
		b.score, b.items = score, []T{item}
	}
}

// Combine merges two accumulators. Neither argument is modified.
func Combine[T any](a, b Best[T]) Best[T] {
	switch {
	case !a.set:
		return b
	case !b.set:
		return a
	case math.Abs(a.score-b.score) <= Epsilon:
		items := make([]T, 0, len(a.items)+len(b.items))
		items = append(items, a.items...)
		items = append(items, b.items...)
		return Best[T]{score: a.score, items: items, set: true}
	case a.score < b.score:
		return a
	default:
		return b
	}
}

// Finish returns the kept payloads and the best score. ok is false when
// nothing was ever added.
func (b *Best[T]) Finish() (items []T, score float64, ok bool) {
	if !b.set {
		return nil, 0, false
	}
	return b.items, b.score, true
}
