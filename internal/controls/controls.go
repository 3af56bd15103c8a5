// Package controls derives the ordered list of publishable controls of a
// tool from its inline declarations and the type catalog.
package controls

import (
	"context"
	"regexp"
	"strings"

	"github.com/wizzomafizzo/setdeck/internal/catalog"
	"github.com/wizzomafizzo/setdeck/internal/locator"
	"github.com/wizzomafizzo/setdeck/internal/logging"
	"github.com/wizzomafizzo/setdeck/internal/scanner"
)

// Origin records where a control definition came from.
type Origin string

const (
	OriginInline  Origin = "inline"
	OriginUser    Origin = "user"
	OriginCatalog Origin = "catalog"
)

// Control kinds with special handling.
const (
	KindButton     = "ButtonControl"
	KindLabel      = "LabelControl"
	KindColorGroup = "ColorGroup"
)

// Def is one control of a tool. Composite colour groups carry their
// channels in Red, Green, Blue, Alpha order.
type Def struct {
	ID         string
	Name       string
	Kind       string
	Page       string
	Origin     Origin
	IsButton   bool
	IsLabel    bool
	LabelCount int
	URL        string
	Primary    bool
	Channels   []Def
}

// IsColorGroup reports whether d is a composite RGBA group.
func (d Def) IsColorGroup() bool {
	return len(d.Channels) > 0
}

// DefaultUtilityTypes are node types whose controls come only from their
// own declarations.
var DefaultUtilityTypes = []string{"PipeRouter", "Underlay", "Note", "Wireless", "Fuse.Wireless"}

// Deriver merges inline declarations with a catalog.
type Deriver struct {
	catalog *catalog.Catalog
	utility map[string]bool
}

// New creates a deriver. A nil catalog derives inline controls only.
func New(cat *catalog.Catalog, utilityTypes []string) *Deriver {
	d := &Deriver{catalog: cat, utility: make(map[string]bool, len(utilityTypes))}
	for _, t := range utilityTypes {
		d.utility[t] = true
	}
	return d
}

// IsUtility reports whether typeName is configured as a utility node.
func (d *Deriver) IsUtility(typeName string) bool {
	return d.utility[typeName]
}

// Derive returns the ordered controls of tool. The result depends only on
// the tool text and the catalog.
func (d *Deriver) Derive(ctx context.Context, tool locator.Block) []Def {
	own := declared(tool.Body)
	if d.IsUtility(tool.Type) {
		return own
	}

	merged := own
	known, matcher, ok := d.catalog.Lookup(tool.Type)
	if ok {
		logging.Get(ctx).Debug().
			Str("tool", tool.Name).
			Str("type", tool.Type).
			Str("matcher", matcher).
			Msg("catalog match")
		merged = union(known, own)
	} else {
		logging.Get(ctx).Debug().
			Str("tool", tool.Name).
			Str("type", tool.Type).
			Msg("type not in catalog, using inline controls")
	}

	merged, primary := applyOverrides(tool.Type, merged)
	return groupChannels(merged, primary)
}

// Find returns the control with id, searching composite channels too.
func Find(defs []Def, id string) (Def, bool) {
	for _, def := range defs {
		if def.ID == id {
			return def, true
		}
		for _, ch := range def.Channels {
			if ch.ID == id {
				return ch, true
			}
		}
	}
	return Def{}, false
}

var urlPattern = regexp.MustCompile(`https?://[^\s"'\\)\]]+`)

// declared parses the tool's Inputs and UserControls collections.
func declared(body string) []Def {
	wrapped := "{" + body + "}"
	var defs []Def
	index := map[string]int{}

	for _, coll := range scanner.Children(wrapped, 0) {
		if !coll.IsBlock() {
			continue
		}
		switch coll.Name {
		case "Inputs":
			for _, in := range scanner.Children(wrapped, coll.Open) {
				if _, seen := index[in.Name]; seen {
					continue
				}
				index[in.Name] = len(defs)
				defs = append(defs, Def{ID: in.Name, Name: in.Name, Origin: OriginInline})
			}
		case "UserControls":
			for _, uc := range scanner.Children(wrapped, coll.Open) {
				def := userControl(wrapped[uc.Start:uc.ValueEnd], uc.Name)
				if i, seen := index[uc.Name]; seen {
					defs[i] = def
					continue
				}
				index[uc.Name] = len(defs)
				defs = append(defs, def)
			}
		}
	}
	return defs
}

func userControl(fragment, id string) Def {
	def := Def{ID: id, Name: id, Origin: OriginUser}
	if name, ok := scanner.StringProperty(fragment, "LINKS_Name"); ok && name != "" {
		def.Name = name
	}
	if kind, ok := scanner.StringProperty(fragment, "INPID_InputControl"); ok {
		def.Kind = kind
	}
	if page, ok := scanner.StringProperty(fragment, "ICS_ControlPage"); ok {
		def.Page = page
	}
	switch def.Kind {
	case KindButton:
		def.IsButton = true
		if script, ok := scanner.StringProperty(fragment, "BTNCS_Execute"); ok {
			def.URL = urlPattern.FindString(script)
		}
	case KindLabel:
		def.IsLabel = true
		if n, ok := scanner.IntProperty(fragment, "LBLC_NumInputs"); ok && n > 0 {
			def.LabelCount = n
		}
	}
	return def
}

// union keeps catalog order, lets inline declarations refine catalog
// entries with the same id, and appends inline-only controls.
func union(known []catalog.Control, own []Def) []Def {
	ownIndex := make(map[string]int, len(own))
	for i, def := range own {
		ownIndex[def.ID] = i
	}

	used := make(map[string]bool, len(own))
	out := make([]Def, 0, len(known)+len(own))
	for _, c := range known {
		def := Def{ID: c.ID, Name: c.Name, Kind: c.Kind, Page: c.Page, Origin: OriginCatalog}
		if def.Name == "" {
			def.Name = def.ID
		}
		if i, ok := ownIndex[c.ID]; ok {
			used[c.ID] = true
			if own[i].Origin == OriginUser {
				def = own[i]
			}
		}
		out = append(out, def)
	}
	for _, def := range own {
		if !used[def.ID] {
			out = append(out, def)
		}
	}
	return out
}

func hasAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// applyOverrides applies the per-type display rules and returns the base
// name of the colour group to be shown first, if any.
func applyOverrides(typeName string, defs []Def) ([]Def, string) {
	lower := strings.ToLower(typeName)
	primary := ""

	switch {
	case hasAny(lower, "text", "background", "noise", "plasma", "mandelbrot", "daysky", "generator"):
		for i := range defs {
			if base, _, ok := splitChannel(defs[i].ID); ok && base == "TopLeft" {
				primary = base
				break
			}
		}
	case strings.Contains(lower, "dissolve"):
		defs = moveFirst(defs, "Mix")
		if len(defs) > 0 && strings.EqualFold(defs[0].ID, "Mix") {
			defs[0].Name = "Mix"
		}
	case strings.Contains(lower, "switch"):
		defs = moveFirst(defs, "Source")
	}
	return defs, primary
}

func moveFirst(defs []Def, id string) []Def {
	for i, def := range defs {
		if !strings.EqualFold(def.ID, id) {
			continue
		}
		if i == 0 {
			return defs
		}
		out := make([]Def, 0, len(defs))
		out = append(out, def)
		out = append(out, defs[:i]...)
		return append(out, defs[i+1:]...)
	}
	return defs
}
