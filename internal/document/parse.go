package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/wizzomafizzo/setdeck/internal/catalog"
	"github.com/wizzomafizzo/setdeck/internal/controls"
	"github.com/wizzomafizzo/setdeck/internal/locator"
	"github.com/wizzomafizzo/setdeck/internal/logging"
	"github.com/wizzomafizzo/setdeck/internal/scanner"
)

const (
	instanceInput   = "InstanceInput"
	mainInputPrefix = "MainInput"
	propSourceOp    = "SourceOp"
	propSource      = "Source"
	propName        = "Name"
	propPage        = "Page"
	propGroup       = "ControlGroup"
	propLabelCount  = "LBLC_NumInputs"
	propControl     = "INPID_InputControl"
)

// Options configures Parse.
type Options struct {
	// Deriver resolves tool controls. Nil uses the built-in catalog.
	Deriver *controls.Deriver
	// DefaultPage overrides the "Controls" page name.
	DefaultPage string
}

// Parse builds a document from a full .setting text. It fails with
// ErrNoPublishedBlock when the text has no published inputs block.
func Parse(ctx context.Context, text string, opts Options) (*Document, error) {
	log := logging.Get(ctx)

	block, strategy, ok := locator.FindPublishedInputsBlock(text)
	if !ok {
		return nil, ErrNoPublishedBlock
	}

	d := newDocument(text, opts.DefaultPage)
	d.block = block
	d.strategy = strategy
	d.deriver = opts.Deriver
	if d.deriver == nil {
		d.deriver = controls.New(catalog.Builtin(), controls.DefaultUtilityTypes)
	}

	if g, found := locator.FindEnclosingGroup(text, block.Open); found {
		d.group = g
	} else if root, found := locator.Root(text); found {
		d.group = root
	}
	d.origMacroName = d.group.Name
	d.macroName = d.group.Name
	d.origOperatorType = d.group.OperatorType
	d.operatorType = d.group.OperatorType

	d.tools = locator.ToolBodies(text, d.group)
	d.modifiers = locator.ModifierBodies(text, d.group)
	d.derive(ctx)

	children := scanner.Children(text, block.Open)
	d.closeIndent = scanner.IndentBefore(text, block.Close)
	d.childIndent = d.closeIndent + "\t"
	if len(children) > 0 {
		if ind := scanner.IndentBefore(text, children[0].Start); ind != "" {
			d.childIndent = ind
		}
	}

	for _, decl := range children {
		if _, dup := d.entries[decl.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, decl.Name)
		}
		e := d.entryFromDecl(text, decl)
		d.entries[e.Key] = e
		d.order = append(d.order, e.Key)
	}
	d.prunePages()

	log.Debug().
		Str("strategy", strategy).
		Str("macro", d.macroName).
		Int("entries", len(d.order)).
		Int("tools", len(d.tools)).
		Msg("parsed document")
	return d, nil
}

func (d *Document) derive(ctx context.Context) {
	for _, b := range d.tools {
		d.defs[b.Name] = d.deriver.Derive(ctx, b)
	}
	for _, b := range d.modifiers {
		d.defs[b.Name] = d.deriver.Derive(ctx, b)
	}
}

// control returns the derived control for sourceOp.source.
func (d *Document) control(sourceOp, source string) (controls.Def, bool) {
	defs, ok := d.defs[sourceOp]
	if !ok {
		return controls.Def{}, false
	}
	return controls.Find(defs, source)
}

func (d *Document) computedName(key, sourceOp, source string) string {
	if def, ok := d.control(sourceOp, source); ok && def.Name != "" {
		return def.Name
	}
	if source != "" {
		return source
	}
	return key
}

func (d *Document) entryFromDecl(text string, decl scanner.Decl) Entry {
	raw := text[decl.Start:decl.ValueEnd]
	e := Entry{
		Key:    decl.Name,
		Raw:    raw,
		Page:   d.defaultPage,
		Locked: decl.Type != instanceInput || strings.HasPrefix(decl.Name, mainInputPrefix),
	}
	if !decl.IsBlock() {
		e.ComputedName = decl.Name
		e.DisplayName = decl.Name
		e.OriginalName = decl.Name
		return e
	}

	e.SourceOp, _ = scanner.StringProperty(raw, propSourceOp)
	e.Source, _ = scanner.StringProperty(raw, propSource)
	if page, ok := scanner.StringProperty(raw, propPage); ok && strings.TrimSpace(page) != "" {
		e.Page = strings.TrimSpace(page)
	}
	if cg, ok := scanner.IntProperty(raw, propGroup); ok {
		e.ControlGroup = cg
	}

	def, hasDef := d.control(e.SourceOp, e.Source)
	kind, _ := scanner.StringProperty(raw, propControl)
	n, hasCount := scanner.IntProperty(raw, propLabelCount)
	switch {
	case hasCount || kind == controls.KindLabel:
		e.IsLabel = true
		e.LabelCount = max(n, 0)
	case hasDef && def.IsLabel:
		e.IsLabel = true
		e.LabelCount = def.LabelCount
	}

	e.ComputedName = d.computedName(e.Key, e.SourceOp, e.Source)
	if name, ok := scanner.StringProperty(raw, propName); ok {
		e.hadName = true
		e.Name = name
		e.DisplayName, e.LabelStyle = parseMarkup(name)
	} else {
		e.DisplayName = e.ComputedName
	}
	e.OriginalName = e.DisplayName
	return e
}
