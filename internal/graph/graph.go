// Package graph derives navigation edges between the tools of a macro:
// which tools read from a tool, and which tool parameters a modifier drives.
package graph

import (
	"regexp"
	"slices"

	"github.com/wizzomafizzo/setdeck/internal/locator"
	"github.com/wizzomafizzo/setdeck/internal/scanner"
)

const (
	backlinkKey  = "SourceOp"
	sourceKey    = "Source"
	inputType    = "Input"
	inputsKey    = "Inputs"
	outputSource = "Output"
)

// Binding is a tool parameter driven by a modifier.
type Binding struct {
	Tool  string
	Param string
}

// Graph is the dependency view of one parse.
type Graph struct {
	Downstream map[string][]string
	Bindings   map[string][]Binding
	names      []string
}

// Build derives both maps from the tool and modifier bodies.
func Build(tools, modifiers []locator.Block) *Graph {
	all := append(slices.Clone(tools), modifiers...)
	g := &Graph{
		Downstream: BuildDownstreamMap(all),
		Bindings:   BuildModifierBindings(tools, modifiers),
	}
	for _, b := range all {
		g.names = append(g.names, b.Name)
	}
	return g
}

// wrap turns a body into a parseable table.
func wrap(body string) string {
	return "{" + body + "}"
}

// backlinks collects every SourceOp value at any depth of a table.
func backlinks(text string, open int, out []string) []string {
	for _, d := range scanner.Children(text, open) {
		if d.IsBlock() {
			out = backlinks(text, d.Open, out)
			continue
		}
		if d.Name == backlinkKey && d.Quoted() {
			out = append(out, scanner.Unquote(d.Value))
		}
	}
	return out
}

// BuildDownstreamMap maps each tool to the tools that read from it, in
// tool order without duplicates.
func BuildDownstreamMap(tools []locator.Block) map[string][]string {
	out := map[string][]string{}
	for _, t := range tools {
		text := wrap(t.Body)
		for _, src := range backlinks(text, 0, nil) {
			if src == t.Name || slices.Contains(out[src], t.Name) {
				continue
			}
			out[src] = append(out[src], t.Name)
		}
	}
	return out
}

var bindingPattern = regexp.MustCompile(`(\w+)\s*=\s*Input\s*\{[^{}]*SourceOp\s*=\s*"([^"]+)"`)

// BuildModifierBindings maps each modifier to the tool parameters it
// drives. A parameter is bound when its Input block names the modifier as
// SourceOp. Without a modifier list, any non-Output backlink counts. If the
// structured scan finds nothing, a textual pass over the bodies is tried.
func BuildModifierBindings(tools, modifiers []locator.Block) map[string][]Binding {
	known := map[string]bool{}
	for _, m := range modifiers {
		known[m.Name] = true
	}
	isModifier := func(op, source string) bool {
		if len(known) > 0 {
			return known[op]
		}
		return source != "" && source != outputSource
	}

	all := append(slices.Clone(tools), modifiers...)
	out := map[string][]Binding{}
	add := func(op string, b Binding) {
		if !slices.Contains(out[op], b) {
			out[op] = append(out[op], b)
		}
	}

	for _, t := range all {
		text := wrap(t.Body)
		for _, coll := range scanner.Children(text, 0) {
			if coll.Name != inputsKey || !coll.IsBlock() {
				continue
			}
			for _, in := range scanner.Children(text, coll.Open) {
				if in.Type != inputType {
					continue
				}
				frag := text[in.Start:in.ValueEnd]
				op, ok := scanner.StringProperty(frag, backlinkKey)
				if !ok {
					continue
				}
				source, _ := scanner.StringProperty(frag, sourceKey)
				if op != t.Name && isModifier(op, source) {
					add(op, Binding{Tool: t.Name, Param: in.Name})
				}
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, t := range all {
		for _, m := range bindingPattern.FindAllStringSubmatch(t.Body, -1) {
			op := m[2]
			if op == t.Name || (len(known) > 0 && !known[op]) {
				continue
			}
			add(op, Binding{Tool: t.Name, Param: m[1]})
		}
	}
	return out
}

// JumpTargets lists where navigation can go from name: tools downstream
// of it, tools a modifier drives, and modifiers driving a tool.
func (g *Graph) JumpTargets(name string) []string {
	var out []string
	add := func(n string) {
		if n != name && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	for _, n := range g.Downstream[name] {
		add(n)
	}
	for _, b := range g.Bindings[name] {
		add(b.Tool)
	}
	for _, mod := range g.modifierNames() {
		for _, b := range g.Bindings[mod] {
			if b.Tool == name {
				add(mod)
			}
		}
	}
	return out
}

// Upstream lists the tools name reads from.
func (g *Graph) Upstream(name string) []string {
	var out []string
	for _, src := range g.names {
		if slices.Contains(g.Downstream[src], name) {
			out = append(out, src)
		}
	}
	return out
}

func (g *Graph) modifierNames() []string {
	var out []string
	for _, n := range g.names {
		if _, ok := g.Bindings[n]; ok {
			out = append(out, n)
		}
	}
	return out
}
