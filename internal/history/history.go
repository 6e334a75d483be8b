// Package history keeps a linear undo/redo history over a single value.
package history

// History holds past, present and future values. The zero value is not
// useful; construct one with New. History is not safe for concurrent use;
// the owner serializes access.
type History[T any] struct {
	past    []T
	present T
	future  []T

	// Limit caps the number of past entries kept. Zero means unbounded.
	Limit int
}

// New starts a history whose present is initial.
func New[T any](initial T) *History[T] {
	return &History[T]{present: initial}
}

// Present returns the current value.
func (h *History[T]) Present() T {
	return h.present
}

// Set records value as the new present. The redo branch is discarded.
func (h *History[T]) Set(value T) {
	h.past = append(h.past, h.present)
	if h.Limit > 0 && len(h.past) > h.Limit {
		h.past = h.past[len(h.past)-h.Limit:]
	}
	h.present = value
	h.future = nil
}

// Update applies fn to the present and records the result via Set.
func (h *History[T]) Update(fn func(current T) T) {
	h.Set(fn(h.present))
}

// Undo steps back one value. It reports false when there is nothing to undo.
func (h *History[T]) Undo() bool {
	if len(h.past) == 0 {
		return false
	}
	last := len(h.past) - 1
	previous := h.past[last]
	h.past = h.past[:last]
	h.future = append([]T{h.present}, h.future...)
	h.present = previous
	return true
}

// Redo steps forward one value. It reports false when there is nothing to redo.
func (h *History[T]) Redo() bool {
	if len(h.future) == 0 {
		return false
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, h.present)
	h.present = next
	return true
}

// Reset replaces the present and forgets both branches.
func (h *History[T]) Reset(value T) {
	h.past = nil
	h.future = nil
	h.present = value
}

// CanUndo reports whether Undo would change the present.
func (h *History[T]) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether Redo would change the present.
func (h *History[T]) CanRedo() bool { return len(h.future) > 0 }
