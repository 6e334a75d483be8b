package history

import "testing"

func TestHistory_UndoRedoReturnsToLatest(t *testing.T) {
	h := New("v0")
	h.Set("v1")
	h.Set("v2")

	if !h.Undo() || !h.Undo() {
		t.Fatalf("Undo returned false with past available")
	}
	if h.Present() != "v0" {
		t.Fatalf("Present = %q, want v0", h.Present())
	}
	if !h.Redo() || !h.Redo() {
		t.Fatalf("Redo returned false with future available")
	}
	if h.Present() != "v2" {
		t.Fatalf("Present = %q, want v2", h.Present())
	}
	if h.CanRedo() {
		t.Fatalf("CanRedo = true at the end of history")
	}
}

func TestHistory_SetAfterUndoDropsRedoBranch(t *testing.T) {
	h := New("v0")
	h.Set("v1")
	h.Set("v2")
	h.Undo()
	h.Set("v3")

	if h.CanRedo() {
		t.Fatalf("CanRedo = true after a new edit")
	}
	if h.Redo() {
		t.Fatalf("Redo succeeded after branch was discarded")
	}
	h.Undo()
	if h.Present() != "v1" {
		t.Fatalf("Present = %q, want v1", h.Present())
	}
	h.Undo()
	if h.Present() != "v0" {
		t.Fatalf("Present = %q, want v0", h.Present())
	}
}

func TestHistory_NoOpsAtEdges(t *testing.T) {
	h := New(1)
	if h.CanUndo() || h.CanRedo() {
		t.Fatalf("fresh history reports undo/redo available")
	}
	if h.Undo() || h.Redo() {
		t.Fatalf("Undo/Redo on empty history returned true")
	}
	if h.Present() != 1 {
		t.Fatalf("Present = %d, want 1", h.Present())
	}
}

func TestHistory_ResetClearsBranches(t *testing.T) {
	h := New(1)
	h.Set(2)
	h.Set(3)
	h.Undo()
	h.Reset(10)

	if h.CanUndo() || h.CanRedo() {
		t.Fatalf("Reset kept history: undo=%v redo=%v", h.CanUndo(), h.CanRedo())
	}
	if h.Present() != 10 {
		t.Fatalf("Present = %d, want 10", h.Present())
	}
}

func TestHistory_UpdateAndLimit(t *testing.T) {
	h := New(0)
	h.Limit = 2
	for i := 0; i < 5; i++ {
		h.Update(func(n int) int { return n + 1 })
	}
	if h.Present() != 5 {
		t.Fatalf("Present = %d, want 5", h.Present())
	}
	undos := 0
	for h.Undo() {
		undos++
	}
	if undos != 2 {
		t.Fatalf("undos = %d, want 2 with Limit=2", undos)
	}
	if h.Present() != 3 {
		t.Fatalf("Present = %d, want 3", h.Present())
	}
}
