package document

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/wizzomafizzo/setdeck/internal/controls"
	"github.com/wizzomafizzo/setdeck/internal/locator"
	"github.com/wizzomafizzo/setdeck/internal/logging"
	"github.com/wizzomafizzo/setdeck/internal/scanner"
)

// writeName stores the rendered Name of e in its raw fragment. An entry
// that never had a Name property loses it again once it is back to plain
// computed text.
func writeName(e *Entry) {
	markup := renderMarkup(e.DisplayName, e.LabelStyle)
	if !e.hadName && e.LabelStyle.IsZero() && e.DisplayName == e.ComputedName {
		e.Name = ""
		e.Raw = scanner.RemoveProperty(e.Raw, propName)
		return
	}
	e.Name = markup
	e.Raw = scanner.SetProperty(e.Raw, propName, scanner.Quote(markup))
}

// SetEntryDisplayName renames an entry. Blank input or the original name
// reverts the rename; anything else is kept as an override that Reconcile
// never replaces.
func (d *Document) SetEntryDisplayName(key, name string) error {
	e, ok := d.entries[key]
	if !ok {
		return invalid("no entry %q", key)
	}
	name = strings.TrimSpace(name)
	if name == "" || name == e.OriginalName {
		e.DisplayName = e.OriginalName
		e.Override = ""
	} else {
		e.DisplayName = name
		e.Override = name
		e.Dirty = true
	}
	writeName(&e)
	d.entries[key] = e
	return nil
}

// SetLabelStyle replaces the rich-text style of an entry's name.
func (d *Document) SetLabelStyle(key string, style LabelStyle) error {
	e, ok := d.entries[key]
	if !ok {
		return invalid("no entry %q", key)
	}
	style.Color = strings.ToLower(strings.TrimSpace(style.Color))
	if style.Color != "" && !validColor(style.Color) {
		return invalid("colour %q is not #rrggbb", style.Color)
	}
	e.LabelStyle = style
	e.Dirty = true
	writeName(&e)
	d.entries[key] = e
	return nil
}

func validColor(c string) bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	_, err := strconv.ParseUint(c[1:], 16, 32)
	return err == nil
}

// SetLabelCount changes how many following entries a label owns.
func (d *Document) SetLabelCount(key string, n int) error {
	e, ok := d.entries[key]
	if !ok {
		return invalid("no entry %q", key)
	}
	if !e.IsLabel {
		return invalid("%q is not a label", key)
	}
	if n < 0 {
		return invalid("label size %d is negative", n)
	}
	e.LabelCount = n
	e.Dirty = true
	e.Raw = scanner.SetProperty(e.Raw, propLabelCount, strconv.Itoa(n))
	d.entries[key] = e
	return nil
}

// normalizePage maps blank and "Controls" to the default page.
func (d *Document) normalizePage(page string) string {
	page = strings.TrimSpace(page)
	if page == "" || strings.EqualFold(page, "Controls") {
		return d.defaultPage
	}
	return page
}

// SetPage moves entries to page and keeps their Page property in step.
func (d *Document) SetPage(keys []string, page string) error {
	for _, k := range keys {
		if _, ok := d.entries[k]; !ok {
			return invalid("no entry %q", k)
		}
	}
	page = d.normalizePage(page)
	for _, k := range keys {
		e := d.entries[k]
		e.Page = page
		e.Dirty = true
		if page == d.defaultPage {
			e.Raw = scanner.RemoveProperty(e.Raw, propPage)
		} else {
			e.Raw = scanner.SetProperty(e.Raw, propPage, scanner.Quote(page))
		}
		d.entries[k] = e
	}
	d.prunePages()
	return nil
}

// prunePages keeps the page order limited to pages in use plus the
// default page, preserving the existing order and appending new pages in
// entry order.
func (d *Document) prunePages() {
	used := map[string]bool{d.defaultPage: true}
	var appearing []string
	for _, k := range d.order {
		p := d.entries[k].Page
		if !used[p] {
			used[p] = true
			appearing = append(appearing, p)
		}
	}

	next := make([]string, 0, len(used))
	seen := map[string]bool{}
	for _, p := range d.pageOrder {
		if used[p] && !seen[p] {
			seen[p] = true
			next = append(next, p)
		}
	}
	if !seen[d.defaultPage] {
		seen[d.defaultPage] = true
		next = slices.Insert(next, 0, d.defaultPage)
	}
	for _, p := range appearing {
		if !seen[p] {
			seen[p] = true
			next = append(next, p)
		}
	}
	d.pageOrder = next

	for p := range d.pageIcons {
		if !used[p] {
			delete(d.pageIcons, p)
		}
	}
	if !used[d.activePage] {
		d.activePage = d.defaultPage
	}
}

// Pages returns the page tab order.
func (d *Document) Pages() []string {
	return slices.Clone(d.pageOrder)
}

// ActivePage returns the selected page tab.
func (d *Document) ActivePage() string {
	return d.activePage
}

// SetActivePage selects a page tab.
func (d *Document) SetActivePage(page string) error {
	page = d.normalizePage(page)
	if !slices.Contains(d.pageOrder, page) {
		return invalid("no page %q", page)
	}
	d.activePage = page
	return nil
}

// MovePage moves a page tab to position, clamped.
func (d *Document) MovePage(page string, position int) error {
	page = d.normalizePage(page)
	i := slices.Index(d.pageOrder, page)
	if i < 0 {
		return invalid("no page %q", page)
	}
	rest := slices.Delete(slices.Clone(d.pageOrder), i, i+1)
	position = min(max(position, 0), len(rest))
	d.pageOrder = slices.Insert(rest, position, page)
	return nil
}

// PageIcon returns the icon assigned to page.
func (d *Document) PageIcon(page string) (string, bool) {
	icon, ok := d.pageIcons[page]
	return icon, ok
}

// SetPageIcon assigns an icon to a page. An empty icon clears it.
func (d *Document) SetPageIcon(page, icon string) error {
	page = d.normalizePage(page)
	if !slices.Contains(d.pageOrder, page) {
		return invalid("no page %q", page)
	}
	if icon = strings.TrimSpace(icon); icon == "" {
		delete(d.pageIcons, page)
		return nil
	}
	d.pageIcons[page] = icon
	return nil
}

// Selected returns the selected keys in display order.
func (d *Document) Selected() []string {
	var out []string
	for _, k := range d.order {
		if d.selection[k] {
			out = append(out, k)
		}
	}
	return out
}

// IsSelected reports whether key is selected.
func (d *Document) IsSelected(key string) bool {
	return d.selection[key]
}

// Select adds keys to the selection. Unknown keys are ignored.
func (d *Document) Select(keys ...string) {
	d.moved = ""
	for _, k := range keys {
		if _, ok := d.entries[k]; ok {
			d.selection[k] = true
		}
	}
}

// Deselect removes keys from the selection.
func (d *Document) Deselect(keys ...string) {
	d.moved = ""
	for _, k := range keys {
		delete(d.selection, k)
	}
}

// ToggleSelected flips the selection state of key.
func (d *Document) ToggleSelected(key string) {
	if d.selection[key] {
		d.Deselect(key)
		return
	}
	d.Select(key)
}

// SelectRange selects every entry between from and to inclusive.
func (d *Document) SelectRange(from, to string) error {
	i, j := d.Index(from), d.Index(to)
	if i < 0 || j < 0 {
		return invalid("range %q..%q is not in the document", from, to)
	}
	if i > j {
		i, j = j, i
	}
	d.Select(d.order[i : j+1]...)
	return nil
}

// ClearSelection empties the selection.
func (d *Document) ClearSelection() {
	d.moved = ""
	clear(d.selection)
}

// DetailFocus returns the entry shown in the detail pane, if any.
func (d *Document) DetailFocus() string {
	return d.detailFocus
}

// SetDetailFocus focuses an entry. An empty key clears the focus.
func (d *Document) SetDetailFocus(key string) error {
	d.moved = ""
	if key == "" {
		d.detailFocus = ""
		return nil
	}
	if _, ok := d.entries[key]; !ok {
		return invalid("no entry %q", key)
	}
	d.detailFocus = key
	return nil
}

func validIdentifier(s string) bool {
	if s == "" || !scanner.IsIdentStart(s[0]) || s[0] == '[' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !scanner.IsIdentPart(s[i]) || s[i] == '[' || s[i] == ']' {
			return false
		}
	}
	return true
}

// SetMacroName renames the enclosing macro.
func (d *Document) SetMacroName(name string) error {
	name = strings.TrimSpace(name)
	if !validIdentifier(name) {
		return invalid("macro name %q is not an identifier", name)
	}
	if d.origMacroName == "" {
		return invalid("published block is not inside a macro")
	}
	d.macroName = name
	return nil
}

// SetOperatorType switches the macro between the group operator types.
func (d *Document) SetOperatorType(kind string) error {
	if !slices.Contains(locator.GroupKeywords, kind) {
		return invalid("operator type %q is not one of %s", kind, strings.Join(locator.GroupKeywords, ", "))
	}
	if d.origOperatorType == "" {
		return invalid("published block is not inside a macro")
	}
	d.operatorType = kind
	return nil
}

// Reconcile re-derives tool controls and refreshes computed names. Entries
// with an override or an explicit Name keep their display name. It returns
// the number of entries whose display name changed.
func (d *Document) Reconcile(ctx context.Context, deriver *controls.Deriver) int {
	if deriver != nil {
		d.deriver = deriver
	}
	clear(d.defs)
	d.derive(ctx)

	changed := 0
	for k, e := range d.entries {
		computed := d.computedName(e.Key, e.SourceOp, e.Source)
		if computed == e.ComputedName {
			continue
		}
		e.ComputedName = computed
		if e.Override == "" && !e.hadName && e.LabelStyle.IsZero() {
			e.DisplayName = computed
			e.OriginalName = computed
			changed++
		}
		d.entries[k] = e
	}
	logging.Get(ctx).Debug().Int("changed", changed).Msg("reconciled display names")
	return changed
}
