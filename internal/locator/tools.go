package locator

import (
	"cmp"
	"slices"

	"github.com/wizzomafizzo/setdeck/internal/scanner"
)

// ModifierTypes are operator types that behave as modifiers even when they
// are declared in a group's Tools collection.
var ModifierTypes = map[string]bool{
	"BezierSpline":    true,
	"CubicSpline":     true,
	"LUTBezier":       true,
	"PolyPath":        true,
	"XYPath":          true,
	"Path":            true,
	"Perturb":         true,
	"Shake":           true,
	"Calculation":     true,
	"Expression":      true,
	"Probe":           true,
	"Offset":          true,
	"VectorResult":    true,
	"KeyStretcher":    true,
	"PublishNumber":   true,
	"PublishPoint":    true,
	"PublishText":     true,
	"PublishPolyLine": true,
	"PublishImage":    true,
	"FromImage":       true,
}

// Block is one tool or modifier declaration inside a group. Body is the
// text between its braces.
type Block struct {
	Name  string
	Type  string
	Body  string
	Start int
	Open  int
	Close int
}

// Text returns the full declaration text.
func (b Block) Text(text string) string {
	return text[b.Start : b.Close+1]
}

// ToolBodies returns the tools declared in the group's Tools collection,
// excluding modifier-typed declarations.
func ToolBodies(text string, g Group) []Block {
	var out []Block
	for _, b := range collection(text, g, "Tools") {
		if !ModifierTypes[b.Type] {
			out = append(out, b)
		}
	}
	return out
}

// ModifierBodies returns the modifiers of a group: everything in its
// Modifiers collection plus modifier-typed entries of its Tools collection,
// in source order.
func ModifierBodies(text string, g Group) []Block {
	var out []Block
	for _, b := range collection(text, g, "Tools") {
		if ModifierTypes[b.Type] {
			out = append(out, b)
		}
	}
	out = append(out, collection(text, g, "Modifiers")...)
	slices.SortStableFunc(out, func(a, b Block) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return out
}

// FindToolBody returns the named tool or modifier of the group.
func FindToolBody(text string, g Group, name string) (Block, bool) {
	for _, b := range collection(text, g, "Tools") {
		if b.Name == name {
			return b, true
		}
	}
	for _, b := range collection(text, g, "Modifiers") {
		if b.Name == name {
			return b, true
		}
	}
	return Block{}, false
}

func collection(text string, g Group, key string) []Block {
	var out []Block
	for _, d := range scanner.Children(text, g.Open) {
		if d.Name != key || !d.IsBlock() {
			continue
		}
		for _, child := range scanner.Children(text, d.Open) {
			if !child.IsBlock() || child.Type == "" {
				continue
			}
			out = append(out, Block{
				Name:  child.Name,
				Type:  child.Type,
				Body:  child.Body(text),
				Start: child.Start,
				Open:  child.Open,
				Close: child.Close,
			})
		}
	}
	return out
}
