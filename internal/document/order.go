package document

import (
	"fmt"
	"slices"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// gather splits order into the keys in set, in display order, and the
// rest. k is the rest index of the first gathered key, or -1.
func gather(order []string, set func(string) bool) (block, rest []string, k int) {
	k = -1
	for _, key := range order {
		if set(key) {
			if k < 0 {
				k = len(rest)
			}
			block = append(block, key)
			continue
		}
		rest = append(rest, key)
	}
	return block, rest, k
}

// MoveSelectionBlock moves the selected keys, gathered into one block, by
// delta positions among the unselected remainder. The result is a new
// slice; order is returned unchanged (copied) when the block cannot move.
func MoveSelectionBlock(order []string, selected map[string]bool, delta int) []string {
	block, rest, k := gather(order, func(key string) bool { return selected[key] })
	if len(block) == 0 || delta == 0 {
		return slices.Clone(order)
	}

	target := min(max(k+delta, 0), len(rest))
	if target == k {
		return slices.Clone(order)
	}
	return slices.Concat(rest[:target], block, rest[target:])
}

// insertKeys is the pure form of InsertAt without locked slots.
func insertKeys(order, keys []string, position int) []string {
	position = min(max(position, 0), len(order))
	moving := make(map[string]bool, len(keys))
	for _, k := range keys {
		moving[k] = true
	}

	block, rest, _ := gather(order, func(k string) bool { return moving[k] })
	removedBefore := 0
	for _, k := range order[:position] {
		if moving[k] {
			removedBefore++
		}
	}
	target := position - removedBefore
	return slices.Concat(rest[:target], block, rest[target:])
}

// arrange lays block and rest back out over the slots not held by locked
// entries, with block starting at rest index target. Locked entries keep
// their absolute slots and the block stays one run: when it would straddle
// a locked slot it shifts to the nearest placement that fits, searching
// toward dir first when dir is nonzero. ok is false when no gap between
// locked slots can hold the block.
func (d *Document) arrange(block, rest []string, target, dir int) ([]string, bool) {
	var slots []int
	for i, k := range d.order {
		if !d.entries[k].Locked {
			slots = append(slots, i)
		}
	}
	m := len(block)
	fits := func(t int) bool {
		return t >= 0 && t <= len(rest) && slots[t+m-1]-slots[t] == m-1
	}
	scan := func(step int) int {
		for t := target; t >= 0 && t <= len(rest); t += step {
			if fits(t) {
				return t
			}
		}
		return -1
	}

	fwd, back := scan(1), scan(-1)
	t := fwd
	switch {
	case fwd < 0:
		t = back
	case back < 0:
	case dir < 0:
		t = back
	case dir == 0 && target-back < fwd-target:
		t = back
	}
	if t < 0 {
		return nil, false
	}

	free := slices.Concat(rest[:t], block, rest[t:])
	out := slices.Clone(d.order)
	for i, s := range slots {
		out[s] = free[i]
	}
	return out, true
}

func (d *Document) movable(keys []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, k := range keys {
		e, ok := d.entries[k]
		if !ok || e.Locked || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// split gathers the unlocked entries into the moving block and the rest.
func (d *Document) split(moving map[string]bool) (block, rest []string, k int) {
	var free []string
	for _, key := range d.order {
		if !d.entries[key].Locked {
			free = append(free, key)
		}
	}
	return gather(free, func(key string) bool { return moving[key] })
}

// InsertAt moves keys to position as one contiguous run, keeping their
// relative order. position counts slots in the current order, so dropping
// below an item lands below it even when moved items preceded it. Locked
// and unknown keys are ignored; position is clamped. The last moved key
// becomes the insertion anchor.
func (d *Document) InsertAt(keys []string, position int) {
	keys = d.movable(keys)
	if len(keys) == 0 {
		return
	}
	position = min(max(position, 0), len(d.order))
	moving := make(map[string]bool, len(keys))
	for _, k := range keys {
		moving[k] = true
	}

	block, rest, _ := d.split(moving)
	target := 0
	for _, k := range d.order[:position] {
		if !moving[k] && !d.entries[k].Locked {
			target++
		}
	}
	if next, ok := d.arrange(block, rest, target, 0); ok {
		d.order = next
		d.moved = block[len(block)-1]
	}
}

// Drag moves keys together with their label followers and colour-run
// siblings to position.
func (d *Document) Drag(keys []string, position int) {
	d.InsertAt(d.ExpandBlock(keys), position)
}

// MoveSelection moves the expanded selection one block step by delta.
func (d *Document) MoveSelection(delta int) bool {
	keys := d.movable(d.ExpandBlock(d.Selected()))
	if len(keys) == 0 || delta == 0 {
		return false
	}
	moving := make(map[string]bool, len(keys))
	for _, k := range keys {
		moving[k] = true
	}

	block, rest, k := d.split(moving)
	target := min(max(k+delta, 0), len(rest))
	if target == k {
		return false
	}
	next, ok := d.arrange(block, rest, target, delta)
	if !ok || slices.Equal(next, d.order) {
		return false
	}
	d.order = next
	d.moved = block[len(block)-1]
	return true
}

// InsertionAnchor is the slot just after the latest interaction target:
// the tail of a block moved since the last focus or selection change, else
// the detail focus entry, else the last selected entry, else the end.
func (d *Document) InsertionAnchor() int {
	for _, k := range []string{d.moved, d.detailFocus} {
		if k == "" {
			continue
		}
		if i := d.Index(k); i >= 0 {
			return i + 1
		}
	}
	anchor := -1
	for i, k := range d.order {
		if d.selection[k] {
			anchor = i
		}
	}
	if anchor >= 0 {
		return anchor + 1
	}
	return len(d.order)
}

// Remove deletes entries. Nothing is removed if any key is locked or
// unknown.
func (d *Document) Remove(keys ...string) error {
	for _, k := range keys {
		e, ok := d.entries[k]
		if !ok {
			return invalid("no entry %q", k)
		}
		if e.Locked {
			return fmt.Errorf("%w: %s", ErrLocked, k)
		}
	}
	for _, k := range keys {
		delete(d.entries, k)
		delete(d.selection, k)
		delete(d.collapsedLabels, k)
		if d.detailFocus == k {
			d.detailFocus = ""
		}
		if d.moved == k {
			d.moved = ""
		}
	}
	d.order = slices.DeleteFunc(d.order, func(k string) bool {
		_, ok := d.entries[k]
		return !ok
	})
	d.pruneCollapsedColors()
	d.prunePages()
	return nil
}

func (d *Document) pruneCollapsedColors() {
	live := map[string]bool{}
	for _, e := range d.entries {
		if e.ControlGroup > 0 {
			live[colorKey(e.SourceOp, e.ControlGroup)] = true
		}
	}
	for id := range d.collapsedColors {
		if !live[id] {
			delete(d.collapsedColors, id)
		}
	}
}
