// Package history implements linear snapshot-based undo and redo.
package history

import (
	"context"

	"github.com/wizzomafizzo/setdeck/internal/logging"
)

// Source is the state a History snapshots. Snapshot and Restore must both
// deep-copy so that stored snapshots never alias live state.
type Source[S any] interface {
	Snapshot() S
	Restore(S)
}

type frame[S any] struct {
	label string
	state S
}

// History holds two unbounded stacks of labelled snapshots.
type History[S any] struct {
	source  Source[S]
	past    []frame[S]
	future  []frame[S]
	dropped []frame[S]
}

// New creates a history over source.
func New[S any](source Source[S]) *History[S] {
	return &History[S]{source: source}
}

// Record pushes the current state under label and clears the redo stack.
// Call it once before each mutation.
func (h *History[S]) Record(ctx context.Context, label string) {
	h.past = append(h.past, frame[S]{label: label, state: h.source.Snapshot()})
	h.dropped = h.future
	h.future = nil
	logging.Get(ctx).Debug().Str("action", label).Int("depth", len(h.past)).Msg("recorded")
}

// Discard drops the most recent Record when the mutation it guarded was
// rejected, restoring the redo stack that Record cleared.
func (h *History[S]) Discard() {
	if len(h.past) == 0 {
		return
	}
	h.past = h.past[:len(h.past)-1]
	h.future = h.dropped
	h.dropped = nil
}

// Undo restores the previous state. It returns false when there is nothing
// to undo.
func (h *History[S]) Undo(ctx context.Context) bool {
	if len(h.past) == 0 {
		return false
	}
	top := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, frame[S]{label: top.label, state: h.source.Snapshot()})
	h.dropped = nil
	h.source.Restore(top.state)
	logging.Get(ctx).Debug().Str("action", top.label).Msg("undo")
	return true
}

// Redo reapplies the last undone state.
func (h *History[S]) Redo(ctx context.Context) bool {
	if len(h.future) == 0 {
		return false
	}
	top := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, frame[S]{label: top.label, state: h.source.Snapshot()})
	h.dropped = nil
	h.source.Restore(top.state)
	logging.Get(ctx).Debug().Str("action", top.label).Msg("redo")
	return true
}

// CanUndo reports whether Undo would do anything.
func (h *History[S]) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether Redo would do anything.
func (h *History[S]) CanRedo() bool { return len(h.future) > 0 }

// UndoLabel names the action Undo would revert.
func (h *History[S]) UndoLabel() string {
	if len(h.past) == 0 {
		return ""
	}
	return h.past[len(h.past)-1].label
}

// RedoLabel names the action Redo would reapply.
func (h *History[S]) RedoLabel() string {
	if len(h.future) == 0 {
		return ""
	}
	return h.future[len(h.future)-1].label
}

// Labels returns the undo stack labels, oldest first.
func (h *History[S]) Labels() []string {
	out := make([]string, 0, len(h.past))
	for _, f := range h.past {
		out = append(out, f.label)
	}
	return out
}

// Reset empties both stacks, for example after loading a new file.
func (h *History[S]) Reset() {
	h.past, h.future, h.dropped = nil, nil, nil
}
