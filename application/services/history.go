package services

import (
	"fabula-backend/domain/core/aggregates"
	pkgerrors "fabula-backend/pkg/errors"
)

// History is a bounded undo/redo stack of whole-project snapshots. A
// snapshot is pushed before every structural or content mutation; undo
// swaps the live project for the top snapshot and moves the current state
// onto the redo stack. Any new mutation clears the redo stack.
//
// History is not safe for concurrent use; the owning project's lock
// guards it.
type History struct {
	undo  []*aggregates.Project
	redo  []*aggregates.Project
	depth int
}

// NewHistory creates a history with the given maximum depth
func NewHistory(depth int) *History {
	if depth < 1 {
		depth = 1
	}
	return &History{depth: depth}
}

// Push records the state before a mutation and clears the redo stack.
// When the stack is full the oldest snapshot falls off.
func (h *History) Push(current *aggregates.Project) {
	h.PushState(current.Clone())
}

// PushState pushes an already-cloned snapshot, taking ownership of it
func (h *History) PushState(snapshot *aggregates.Project) {
	h.undo = append(h.undo, snapshot)
	if len(h.undo) > h.depth {
		copy(h.undo, h.undo[1:])
		h.undo[len(h.undo)-1] = nil
		h.undo = h.undo[:len(h.undo)-1]
	}
	h.redo = nil
}

// Undo returns the previous state, pushing the current one onto redo
func (h *History) Undo(current *aggregates.Project) (*aggregates.Project, error) {
	if len(h.undo) == 0 {
		return nil, pkgerrors.NewConflictError("nothing to undo")
	}
	top := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current.Clone())
	return top, nil
}

// Redo returns the next state, pushing the current one onto undo
func (h *History) Redo(current *aggregates.Project) (*aggregates.Project, error) {
	if len(h.redo) == 0 {
		return nil, pkgerrors.NewConflictError("nothing to redo")
	}
	top := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current.Clone())
	return top, nil
}

// CanUndo reports whether an undo snapshot exists
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether a redo snapshot exists
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Clear drops both stacks, used when a project is reloaded from disk
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}
