package document

import (
	"strconv"
	"strings"

	"github.com/wizzomafizzo/setdeck/internal/controls"
	"github.com/wizzomafizzo/setdeck/internal/scanner"
)

// Meta carries optional attributes of a newly published entry.
type Meta struct {
	Page       string
	Label      bool
	LabelCount int
}

const keyPrefix = "Input"

// nextKey returns InputN with N above every existing InputN key.
func (d *Document) nextKey() string {
	n := 0
	for k := range d.entries {
		if rest, ok := strings.CutPrefix(k, keyPrefix); ok {
			if v, err := strconv.Atoi(rest); err == nil && v > n {
				n = v
			}
		}
	}
	for {
		n++
		key := keyPrefix + strconv.Itoa(n)
		if _, taken := d.entries[key]; !taken {
			return key
		}
	}
}

// controlGroupFor returns the shared ControlGroup for a channel of
// sourceOp, or 0 when source is not part of an RGBA group.
func (d *Document) controlGroupFor(sourceOp, source string) int {
	base := controls.ChannelBase(source)
	if base == "" {
		return 0
	}
	if defs, ok := d.defs[sourceOp]; ok {
		declared := false
		for _, def := range defs {
			if def.IsColorGroup() && def.ID == base {
				declared = true
				break
			}
		}
		if !declared {
			return 0
		}
	}

	highest := 0
	for _, e := range d.entries {
		if e.SourceOp != sourceOp || e.ControlGroup <= 0 {
			continue
		}
		if controls.ChannelBase(e.Source) == base {
			return e.ControlGroup
		}
		highest = max(highest, e.ControlGroup)
	}
	return highest + 1
}

// Publish promotes sourceOp.source to a published entry at the insertion
// anchor and returns its key. Publishing an already published parameter
// returns the existing key and changes nothing.
func (d *Document) Publish(sourceOp, source, displayName string, meta Meta) (string, error) {
	sourceOp, source = strings.TrimSpace(sourceOp), strings.TrimSpace(source)
	if sourceOp == "" || source == "" {
		return "", invalid("publish needs a tool and a control id")
	}
	if e, ok := d.FindBySource(sourceOp, source); ok {
		return e.Key, nil
	}

	def, hasDef := d.control(sourceOp, source)
	e := Entry{
		Key:          d.nextKey(),
		SourceOp:     sourceOp,
		Source:       source,
		Page:         d.normalizePage(meta.Page),
		ControlGroup: d.controlGroupFor(sourceOp, source),
		IsLabel:      meta.Label || (hasDef && def.IsLabel),
		Dirty:        true,
		hadName:      true,
	}
	if e.IsLabel {
		e.LabelCount = max(meta.LabelCount, 0)
		if meta.LabelCount == 0 && hasDef {
			e.LabelCount = def.LabelCount
		}
	}
	e.ComputedName = d.computedName(e.Key, sourceOp, source)
	e.DisplayName = strings.TrimSpace(displayName)
	if e.DisplayName == "" {
		e.DisplayName = e.ComputedName
	}
	e.OriginalName = e.DisplayName
	e.Name = e.DisplayName
	e.Raw = d.synthesize(e)

	at := d.InsertionAnchor()
	d.entries[e.Key] = e
	d.order = append(d.order, e.Key)
	d.order = insertKeys(d.order, []string{e.Key}, at)
	d.detailFocus = e.Key
	d.moved = ""
	d.prunePages()
	return e.Key, nil
}

// PublishColorGroup publishes every channel of the RGBA group base on
// sourceOp and returns the keys in channel order.
func (d *Document) PublishColorGroup(sourceOp, base string, meta Meta) ([]string, error) {
	group, ok := d.control(sourceOp, base)
	if !ok || !group.IsColorGroup() {
		return nil, invalid("%s has no colour group %q", sourceOp, base)
	}
	keys := make([]string, 0, len(group.Channels))
	for _, ch := range group.Channels {
		key, err := d.Publish(sourceOp, ch.ID, ch.Name, meta)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	// channels published earlier may sit elsewhere; gather the run
	first := len(d.order)
	for _, k := range keys {
		first = min(first, d.Index(k))
	}
	d.InsertAt(keys, first)
	return keys, nil
}

// synthesize renders the InstanceInput declaration of a new entry.
func (d *Document) synthesize(e Entry) string {
	prop := d.childIndent + "\t"
	var b strings.Builder
	b.WriteString(e.Key + " = " + instanceInput + " {\n")
	line := func(name, literal string) {
		b.WriteString(prop + name + " = " + literal + ",\n")
	}
	line(propSourceOp, scanner.Quote(e.SourceOp))
	line(propSource, scanner.Quote(e.Source))
	line(propName, scanner.Quote(e.Name))
	if e.Page != d.defaultPage {
		line(propPage, scanner.Quote(e.Page))
	}
	if e.ControlGroup > 0 {
		line(propGroup, strconv.Itoa(e.ControlGroup))
	}
	if e.IsLabel {
		line(propControl, scanner.Quote(controls.KindLabel))
		line(propLabelCount, strconv.Itoa(e.LabelCount))
	}
	b.WriteString(d.childIndent + "}")
	return b.String()
}
