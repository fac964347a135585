// Package position computes dense zero-based positions for ordered collections.
// All functions are pure: inputs are never mutated and results are fresh slices.
package position

// Item is an element of an ordered collection. WithPosition returns a copy of
// the element carrying the given position.
type Item[T any] interface {
	Key() string
	WithPosition(p int) T
}

// Reindex returns a copy of seq where the i-th element has position i.
// Reindex is idempotent.
func Reindex[T Item[T]](seq []T) []T {
	out := make([]T, len(seq))
	for i, el := range seq {
		out[i] = el.WithPosition(i)
	}
	return out
}

// MoveWithin removes the element at from and inserts it at to, clamped to
// [0, len(seq)-1], then reindexes. An out of range from or from == to yields
// Reindex(seq).
func MoveWithin[T Item[T]](seq []T, from, to int) []T {
	if from < 0 || from >= len(seq) || from == to {
		return Reindex(seq)
	}
	rest := remove(seq, from)
	return Reindex(insert(rest, seq[from], Clamp(to, len(rest))))
}

// Relocate moves the element identified by id from source into target at
// targetIndex (clamped to [0, len(target)]) and reindexes both sequences.
// When source and target are the same slice the call degenerates to
// MoveWithin and both results are the same sequence.
// ok is false, and both inputs are returned reindexed, if id is not in source.
func Relocate[T Item[T]](source, target []T, id string, targetIndex int) (newSource, newTarget []T, ok bool) {
	from := IndexOf(source, id)
	if from < 0 {
		return Reindex(source), Reindex(target), false
	}

	if Same(source, target) {
		moved := MoveWithin(source, from, targetIndex)
		return moved, moved, true
	}

	el := source[from]
	newSource = Reindex(remove(source, from))
	newTarget = Reindex(insert(target, el, Clamp(targetIndex, len(target))))
	return newSource, newTarget, true
}

// IndexOf returns the index of the element with the given key, or -1.
func IndexOf[T Item[T]](seq []T, id string) int {
	for i, el := range seq {
		if el.Key() == id {
			return i
		}
	}
	return -1
}

// Same reports whether a and b share a backing array starting at the same
// element, i.e. refer to the same container.
func Same[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return a == nil && b == nil
	}
	return &a[0] == &b[0]
}

// Clamp bounds i to [0, n].
func Clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func remove[T any](seq []T, i int) []T {
	out := make([]T, 0, len(seq)-1)
	out = append(out, seq[:i]...)
	return append(out, seq[i+1:]...)
}

func insert[T any](seq []T, el T, i int) []T {
	out := make([]T, 0, len(seq)+1)
	out = append(out, seq[:i]...)
	out = append(out, el)
	return append(out, seq[i:]...)
}
