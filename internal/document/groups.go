package document

import (
	"slices"
	"strconv"
)

// LabelGroup is a label and the entries it currently owns by position.
type LabelGroup struct {
	Key       string
	Followers []string
}

// ColorGroup is a contiguous run of entries sharing SourceOp and
// ControlGroup.
type ColorGroup struct {
	SourceOp     string
	ControlGroup int
	Keys         []string
}

// Count returns the number of members in the run.
func (g ColorGroup) Count() int {
	return len(g.Keys)
}

func colorKey(sourceOp string, group int) string {
	return sourceOp + "#" + strconv.Itoa(group)
}

func (g ColorGroup) id() string {
	return colorKey(g.SourceOp, g.ControlGroup)
}

// LabelGroups recomputes label ownership from the current order.
func (d *Document) LabelGroups() []LabelGroup {
	var out []LabelGroup
	for i, k := range d.order {
		e := d.entries[k]
		if !e.IsLabel {
			continue
		}
		end := min(i+1+e.Followers(), len(d.order))
		out = append(out, LabelGroup{Key: k, Followers: slices.Clone(d.order[i+1 : end])})
	}
	return out
}

// colorRun returns the bounds [start, end) of the run containing index i.
func (d *Document) colorRun(i int) (int, int) {
	e := d.entries[d.order[i]]
	same := func(j int) bool {
		o := d.entries[d.order[j]]
		return o.ControlGroup == e.ControlGroup && o.SourceOp == e.SourceOp
	}
	start, end := i, i+1
	for start > 0 && same(start-1) {
		start--
	}
	for end < len(d.order) && same(end) {
		end++
	}
	return start, end
}

// ColorGroups recomputes colour groups from the current order. Only runs
// of two or more entries form a group.
func (d *Document) ColorGroups() []ColorGroup {
	var out []ColorGroup
	for i := 0; i < len(d.order); {
		e := d.entries[d.order[i]]
		if e.ControlGroup <= 0 {
			i++
			continue
		}
		_, end := d.colorRun(i)
		if end-i >= 2 {
			out = append(out, ColorGroup{
				SourceOp:     e.SourceOp,
				ControlGroup: e.ControlGroup,
				Keys:         slices.Clone(d.order[i:end]),
			})
		}
		i = end
	}
	return out
}

// ColorGroupOf returns the contiguous run around key. A run may have a
// single member when its siblings have been moved apart.
func (d *Document) ColorGroupOf(key string) (ColorGroup, bool) {
	i := d.Index(key)
	if i < 0 {
		return ColorGroup{}, false
	}
	e := d.entries[key]
	if e.ControlGroup <= 0 {
		return ColorGroup{}, false
	}
	start, end := d.colorRun(i)
	return ColorGroup{
		SourceOp:     e.SourceOp,
		ControlGroup: e.ControlGroup,
		Keys:         slices.Clone(d.order[start:end]),
	}, true
}

// ExpandBlock returns keys plus every label follower and colour-run sibling
// they drag along, in display order. Expansion repeats until closed, so a
// follower that opens a colour run brings the whole run and a run member
// that is a label brings its followers.
func (d *Document) ExpandBlock(keys []string) []string {
	in := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := d.entries[k]; ok {
			in[k] = true
		}
	}

	for grew := true; grew; {
		grew = false
		add := func(ks []string) {
			for _, k := range ks {
				if !in[k] {
					in[k] = true
					grew = true
				}
			}
		}
		for i, k := range d.order {
			if !in[k] {
				continue
			}
			e := d.entries[k]
			if e.ControlGroup > 0 {
				start, end := d.colorRun(i)
				add(d.order[start:end])
			}
			if n := e.Followers(); n > 0 {
				add(d.order[i+1 : min(i+1+n, len(d.order))])
			}
		}
	}

	out := make([]string, 0, len(in))
	for _, k := range d.order {
		if in[k] {
			out = append(out, k)
		}
	}
	return out
}

// VisibleOrder returns the order with collapsed label followers and the
// non-leading members of collapsed colour groups hidden.
func (d *Document) VisibleOrder() []string {
	hidden := map[string]bool{}
	for _, g := range d.LabelGroups() {
		if d.collapsedLabels[g.Key] {
			for _, f := range g.Followers {
				hidden[f] = true
			}
		}
	}
	for _, g := range d.ColorGroups() {
		if d.collapsedColors[g.id()] {
			for _, k := range g.Keys[1:] {
				hidden[k] = true
			}
		}
	}
	out := make([]string, 0, len(d.order))
	for _, k := range d.order {
		if !hidden[k] {
			out = append(out, k)
		}
	}
	return out
}

// ToggleLabelCollapsed flips the collapse state of a label.
func (d *Document) ToggleLabelCollapsed(key string) error {
	e, ok := d.entries[key]
	if !ok || !e.IsLabel {
		return invalid("%q is not a label", key)
	}
	if d.collapsedLabels[key] {
		delete(d.collapsedLabels, key)
	} else {
		d.collapsedLabels[key] = true
	}
	return nil
}

// IsLabelCollapsed reports whether the label's followers are hidden.
func (d *Document) IsLabelCollapsed(key string) bool {
	return d.collapsedLabels[key]
}

// ToggleColorGroupCollapsed flips the collapse state of the colour group
// containing key.
func (d *Document) ToggleColorGroupCollapsed(key string) error {
	g, ok := d.ColorGroupOf(key)
	if !ok || g.Count() < 2 {
		return invalid("%q is not in a colour group", key)
	}
	id := g.id()
	if d.collapsedColors[id] {
		delete(d.collapsedColors, id)
	} else {
		d.collapsedColors[id] = true
	}
	return nil
}

// IsColorGroupCollapsed reports whether the group containing key is folded.
func (d *Document) IsColorGroupCollapsed(key string) bool {
	e, ok := d.entries[key]
	return ok && d.collapsedColors[colorKey(e.SourceOp, e.ControlGroup)]
}
