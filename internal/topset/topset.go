// Package topset implements a generic bounded top-set: it retains the n
// largest values offered to it, under a caller-supplied ordering. It is the
// straightforward min-heap rendition of the problem, used as the reference
// implementation for differential tests against the specialized topfew
// tracker and as the comparison baseline in benchmarks.
package topset

import "sort"

// TopSet retains the n largest values offered to Insert, where "larger" is
// defined by the less func. The heap operations are implemented directly on
// the slice rather than through container/heap, which would box every value
// through an interface on each push and pop.
type TopSet[T any] struct {
	less  func(a, b T) bool
	n     int
	items []T // min-heap ordered by less; items[0] is the smallest retained
}

// New returns a TopSet retaining the n largest values under less. n is
// clamped to at least 1.
func New[T any](n int, less func(a, b T) bool) *TopSet[T] {
	if n < 1 {
		n = 1
	}
	return &TopSet[T]{
		less:  less,
		n:     n,
		items: make([]T, 0, n),
	}
}

// Len returns the number of values currently retained.
func (s *TopSet[T]) Len() int {
	return len(s.items)
}

// Min returns the smallest retained value, or false if the set is empty.
func (s *TopSet[T]) Min() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[0], true
}

// Insert offers v and reports whether it was retained. While the set is not
// full every value is kept. Once full, v displaces the smallest retained
// value only if it is strictly larger, so earlier instances of an equal
// value win ties against newcomers.
func (s *TopSet[T]) Insert(v T) bool {
	if len(s.items) < s.n {
		s.items = append(s.items, v)
		s.up(len(s.items) - 1)
		return true
	}
	if !s.less(s.items[0], v) {
		return false
	}
	s.items[0] = v
	s.down(0, len(s.items))
	return true
}

// Sorted returns the retained values in descending order. The heap itself is
// left untouched.
func (s *TopSet[T]) Sorted() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	sort.Slice(out, func(i, j int) bool {
		return s.less(out[j], out[i])
	})
	return out
}

// up bubbles element j toward the root until the heap invariant is restored.
func (s *TopSet[T]) up(j int) {
	for {
		i := (j - 1) / 2 // parent
		if i == j || !s.less(s.items[j], s.items[i]) {
			break
		}
		s.items[i], s.items[j] = s.items[j], s.items[i]
		j = i
	}
}

// down sinks element i toward the leaves until the heap invariant is restored.
func (s *TopSet[T]) down(i, n int) {
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 { // j1 < 0 after int overflow
			break
		}
		j := j1 // left child
		if j2 := j1 + 1; j2 < n && s.less(s.items[j2], s.items[j1]) {
			j = j2 // pick the smaller child
		}
		if !s.less(s.items[j], s.items[i]) {
			break
		}
		s.items[i], s.items[j] = s.items[j], s.items[i]
		i = j
	}
}
