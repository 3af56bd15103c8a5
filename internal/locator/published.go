package locator

import (
	"strings"

	"github.com/wizzomafizzo/setdeck/internal/scanner"
)

const (
	inputsKey     = "Inputs"
	instanceInput = "InstanceInput"
)

// Strategy is one way of locating the published-inputs block. Strategies
// are tried strongest first; a weaker one only runs when every stronger one
// found nothing.
type Strategy struct {
	Name string
	Find func(text string) (Bounds, bool)
}

// Strategies lists the published-block strategies in the order they are
// tried.
var Strategies = []Strategy{
	{Name: "inputs-with-instance", Find: inputsWithInstance},
	{Name: "group-inputs", Find: groupInputs},
	{Name: "instance-backtrack", Find: instanceBacktrack},
	{Name: "any-inputs", Find: anyInputs},
}

// FindPublishedInputsBlock locates the block holding the published
// InstanceInput declarations and reports which strategy found it. When
// several blocks qualify the first one in source order wins.
func FindPublishedInputsBlock(text string) (Bounds, string, bool) {
	for _, s := range Strategies {
		if b, ok := s.Find(text); ok {
			return b, s.Name, true
		}
	}
	return Bounds{}, "", false
}

func boundsOf(d scanner.Decl) Bounds {
	return Bounds{Start: d.Start, Open: d.Open, Close: d.Close}
}

func hasInstanceChild(text string, d scanner.Decl) bool {
	for _, child := range scanner.Children(text, d.Open) {
		if child.Type == instanceInput {
			return true
		}
	}
	return false
}

func inputsWithInstance(text string) (Bounds, bool) {
	for _, d := range namedBlocks(text, inputsKey) {
		if hasInstanceChild(text, d) {
			return boundsOf(d), true
		}
	}
	return Bounds{}, false
}

// groupInputs picks the first Inputs block declared directly in a group
// body, even when it is still empty.
func groupInputs(text string) (Bounds, bool) {
	for _, d := range namedBlocks(text, inputsKey) {
		g, ok := FindEnclosingGroup(text, d.Open)
		if !ok {
			continue
		}
		for _, child := range scanner.Children(text, g.Open) {
			if child.Start == d.Start {
				return boundsOf(d), true
			}
		}
	}
	return Bounds{}, false
}

// instanceBacktrack walks forward to the first InstanceInput declaration and
// returns the block that contains it, whatever that block is called.
func instanceBacktrack(text string) (Bounds, bool) {
	var stack []int
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '"':
			end := scanner.SkipString(text, i)
			if end == scanner.NotFound {
				return Bounds{}, false
			}
			i = end
			continue
		case c == '{':
			stack = append(stack, i)
		case c == '}':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case strings.HasPrefix(text[i:], instanceInput) &&
			(i == 0 || !scanner.IsIdentPart(text[i-1])) &&
			(i+len(instanceInput) >= len(text) || !scanner.IsIdentPart(text[i+len(instanceInput)])):
			if len(stack) == 0 {
				return Bounds{}, false
			}
			open := stack[len(stack)-1]
			closeIdx := scanner.FindMatchingBrace(text, open)
			if closeIdx == scanner.NotFound {
				return Bounds{}, false
			}
			return Bounds{Start: declStartBefore(text, open), Open: open, Close: closeIdx}, true
		}
		i++
	}
	return Bounds{}, false
}

func anyInputs(text string) (Bounds, bool) {
	blocks := namedBlocks(text, inputsKey)
	if len(blocks) == 0 {
		return Bounds{}, false
	}
	return boundsOf(blocks[0]), true
}

// declStartBefore finds the start of the `Name = [Type] {` header that owns
// the brace at open, or open itself for anonymous tables.
func declStartBefore(text string, open int) int {
	ls := scanner.LineStart(text, open)
	line := text[ls:open]
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" || !strings.Contains(trimmed, "=") {
		return open
	}
	start := ls + len(line) - len(trimmed)
	if !scanner.IsIdentStart(text[start]) {
		return open
	}
	return start
}
