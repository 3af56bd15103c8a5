// Package document is the mutable model of a .setting file's published
// inputs: ordered entries, selection, collapse state and pages, plus the
// parse and serialize steps that connect it to source text.
package document

import (
	"errors"
	"maps"
	"slices"

	"github.com/wizzomafizzo/setdeck/internal/constants"
	"github.com/wizzomafizzo/setdeck/internal/controls"
	"github.com/wizzomafizzo/setdeck/internal/locator"
)

var (
	// ErrNoPublishedBlock is returned when no strategy finds a published
	// inputs block.
	ErrNoPublishedBlock = errors.New("no publishable block found")
	// ErrInvalidInput marks rejected user input. State is left untouched.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLocked is returned when removing a structural entry.
	ErrLocked = errors.New("entry is locked")
	// ErrDuplicateKey is returned when two published declarations share a
	// key.
	ErrDuplicateKey = errors.New("duplicate published input")
)

// Document owns every collection of the model. Create it with Parse.
type Document struct {
	text        string
	group       locator.Group
	block       locator.Bounds
	strategy    string
	childIndent string
	closeIndent string
	defaultPage string

	origMacroName    string
	origOperatorType string
	macroName        string
	operatorType     string

	entries         map[string]Entry
	order           []string
	selection       map[string]bool
	collapsedLabels map[string]bool
	collapsedColors map[string]bool
	pageOrder       []string
	activePage      string
	pageIcons       map[string]string
	detailFocus     string
	moved           string

	deriver   *controls.Deriver
	tools     []locator.Block
	modifiers []locator.Block
	defs      map[string][]controls.Def
}

func newDocument(text, defaultPage string) *Document {
	if defaultPage == "" {
		defaultPage = constants.DefaultPage
	}
	return &Document{
		text:            text,
		defaultPage:     defaultPage,
		entries:         map[string]Entry{},
		selection:       map[string]bool{},
		collapsedLabels: map[string]bool{},
		collapsedColors: map[string]bool{},
		pageIcons:       map[string]string{},
		defs:            map[string][]controls.Def{},
		activePage:      defaultPage,
	}
}

// Len returns the number of entries.
func (d *Document) Len() int {
	return len(d.order)
}

// Order returns a copy of the display order.
func (d *Document) Order() []string {
	return slices.Clone(d.order)
}

// Entry returns the entry with key.
func (d *Document) Entry(key string) (Entry, bool) {
	e, ok := d.entries[key]
	return e, ok
}

// Entries returns the entries in display order.
func (d *Document) Entries() []Entry {
	out := make([]Entry, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.entries[k])
	}
	return out
}

// Index returns the position of key in the order, or -1.
func (d *Document) Index(key string) int {
	return slices.Index(d.order, key)
}

// FindBySource returns the entry publishing sourceOp.source.
func (d *Document) FindBySource(sourceOp, source string) (Entry, bool) {
	for _, k := range d.order {
		if e := d.entries[k]; e.SourceOp == sourceOp && e.Source == source {
			return e, true
		}
	}
	return Entry{}, false
}

// MacroName returns the current macro name.
func (d *Document) MacroName() string { return d.macroName }

// OperatorType returns the current macro operator type.
func (d *Document) OperatorType() string { return d.operatorType }

// Strategy names the locator strategy that found the published block.
func (d *Document) Strategy() string { return d.strategy }

// DefaultPage returns the page entries fall back to.
func (d *Document) DefaultPage() string { return d.defaultPage }

// Text returns the source text the document was parsed from.
func (d *Document) Text() string { return d.text }

// Tools returns the tools of the enclosing group.
func (d *Document) Tools() []locator.Block { return slices.Clone(d.tools) }

// Modifiers returns the modifiers of the enclosing group.
func (d *Document) Modifiers() []locator.Block { return slices.Clone(d.modifiers) }

// Controls returns the derived controls of a tool or modifier.
func (d *Document) Controls(name string) ([]controls.Def, bool) {
	defs, ok := d.defs[name]
	return defs, ok
}

// Snapshot is a deep copy of the mutable state.
type Snapshot struct {
	Entries         map[string]Entry
	Order           []string
	Selection       map[string]bool
	CollapsedLabels map[string]bool
	CollapsedColors map[string]bool
	PageOrder       []string
	ActivePage      string
	PageIcons       map[string]string
	DetailFocus     string
	Moved           string
	MacroName       string
	OperatorType    string
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	maps.Copy(out, m)
	return out
}

// Snapshot captures the current state. The result shares nothing with the
// document.
func (d *Document) Snapshot() Snapshot {
	return Snapshot{
		Entries:         cloneMap(d.entries),
		Order:           slices.Clone(d.order),
		Selection:       cloneMap(d.selection),
		CollapsedLabels: cloneMap(d.collapsedLabels),
		CollapsedColors: cloneMap(d.collapsedColors),
		PageOrder:       slices.Clone(d.pageOrder),
		ActivePage:      d.activePage,
		PageIcons:       cloneMap(d.pageIcons),
		DetailFocus:     d.detailFocus,
		Moved:           d.moved,
		MacroName:       d.macroName,
		OperatorType:    d.operatorType,
	}
}

// Restore replaces the current state with fresh copies of s.
func (d *Document) Restore(s Snapshot) {
	d.entries = cloneMap(s.Entries)
	d.order = slices.Clone(s.Order)
	d.selection = cloneMap(s.Selection)
	d.collapsedLabels = cloneMap(s.CollapsedLabels)
	d.collapsedColors = cloneMap(s.CollapsedColors)
	d.pageOrder = slices.Clone(s.PageOrder)
	d.activePage = s.ActivePage
	d.pageIcons = cloneMap(s.PageIcons)
	d.detailFocus = s.DetailFocus
	d.moved = s.Moved
	d.macroName = s.MacroName
	d.operatorType = s.OperatorType
}
