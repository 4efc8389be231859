// Package watcher tracks a value across updates so callers can react to
// edges (a level counter increasing, a flag flipping) instead of levels.
package watcher

import (
	"golang.org/x/exp/constraints"
)

// Pair is the value from the previous update and the one from this update
type Pair[T comparable] struct {
	Old     T
	Current T
}

// Check reports whether f became true on this update
func (p Pair[T]) Check(f func(T) bool) bool {
	return !f(p.Old) && f(p.Current)
}

func (p Pair[T]) Changed() bool {
	return p.Old != p.Current
}

func (p Pair[T]) Unchanged() bool {
	return p.Old == p.Current
}

// ChangedTo reports whether the value just became v
func (p Pair[T]) ChangedTo(v T) bool {
	return p.Check(func(x T) bool { return x == v })
}

// ChangedFrom reports whether the value just stopped being v
func (p Pair[T]) ChangedFrom(v T) bool {
	return p.Check(func(x T) bool { return x != v })
}

func (p Pair[T]) ChangedFromTo(old, current T) bool {
	return p.Old == old && p.Current == current
}

func Increased[T constraints.Ordered](p Pair[T]) bool {
	return p.Old < p.Current
}

func Decreased[T constraints.Ordered](p Pair[T]) bool {
	return p.Old > p.Current
}

// Map applies f to both sides
func Map[T, U comparable](p Pair[T], f func(T) U) Pair[U] {
	return Pair[U]{Old: f(p.Old), Current: f(p.Current)}
}

// Watcher holds the pair for one value. The zero value is ready to use.
type Watcher[T comparable] struct {
	pair  Pair[T]
	valid bool
}

// Update records a new reading. A failed reading (ok false) forgets the
// pair, so the next good reading starts with Old == Current and no edge
// fires across the gap.
func (w *Watcher[T]) Update(value T, ok bool) (Pair[T], bool) {
	switch {
	case !ok:
		w.valid = false
	case !w.valid:
		w.pair = Pair[T]{Old: value, Current: value}
		w.valid = true
	default:
		w.pair.Old, w.pair.Current = w.pair.Current, value
	}
	return w.pair, w.valid
}

// UpdateInfallible records a reading that cannot fail
func (w *Watcher[T]) UpdateInfallible(value T) Pair[T] {
	pair, _ := w.Update(value, true)
	return pair
}

// UpdateFrom records the result of read; an error counts as a failed reading
func (w *Watcher[T]) UpdateFrom(read func() (T, error)) (Pair[T], bool) {
	v, err := read()
	return w.Update(v, err == nil)
}

// Pair returns the last pair and whether it is valid
func (w *Watcher[T]) Pair() (Pair[T], bool) {
	return w.pair, w.valid
}

// Reset forgets the tracked value
func (w *Watcher[T]) Reset() {
	w.valid = false
}
