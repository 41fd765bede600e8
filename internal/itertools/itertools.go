// Package itertools provides small [iter.Seq] combinators used while narrowing a provider list
// down to a predicate-matching subset — the one iterator-shaped operation the solvable pool needs.
// Most of the teacher's original combinator set (mapping, concatenation, key/value swapping, range
// generation) has no natural caller here: the pool and selection engine work in terms of
// golang-set sets and plain id slices, not iterator pipelines, and [SolvableID] is a signed type
// that can't satisfy a range generator built on [golang.org/x/exp/constraints.Unsigned]. Filter is
// kept because it is the one combinator [Pool.Providers] actually reaches for.
package itertools

import "iter"

// Filter yields only the values of seq for which pred reports true.
func Filter[T any](seq iter.Seq[T], pred func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			if pred(v) && !yield(v) {
				return
			}
		}
	}
}
