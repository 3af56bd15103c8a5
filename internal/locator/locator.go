// Package locator finds the structural blocks of a .setting document: the
// group (macro) enclosing a position, the published-inputs block, and the
// tool and modifier bodies inside a group.
package locator

import (
	"strings"

	"github.com/wizzomafizzo/setdeck/internal/scanner"
)

// GroupKeywords are the operator types that open a macro/group body.
var GroupKeywords = []string{"GroupOperator", "MacroOperator"}

// Group is a macro/group declaration `Name = GroupOperator { ... }`.
type Group struct {
	Name         string
	OperatorType string
	Start        int
	TypeStart    int
	Open         int
	Close        int
}

// Contains reports whether index falls inside the group's braces.
func (g Group) Contains(index int) bool {
	return g.Open < index && index <= g.Close
}

// Bounds locates a block: Start is the first byte of its declaration (the
// name, or the brace itself for anonymous blocks), Open and Close are the
// brace positions.
type Bounds struct {
	Start int
	Open  int
	Close int
}

// Inner returns the text between the braces.
func (b Bounds) Inner(text string) string {
	return text[b.Open+1 : b.Close]
}

// FindEnclosingGroup returns the innermost group whose braces span index.
// It walks backward over group keyword occurrences until one qualifies.
func FindEnclosingGroup(text string, index int) (Group, bool) {
	if index < 0 || index > len(text) {
		return Group{}, false
	}
	cursor := index
	for cursor > 0 {
		pos, kw := lastKeyword(text[:cursor])
		if pos < 0 {
			return Group{}, false
		}
		cursor = pos
		g, ok := groupAt(text, pos, kw)
		if ok && g.Contains(index) {
			return g, true
		}
	}
	return Group{}, false
}

// Groups returns every well-formed group declaration in source order.
func Groups(text string) []Group {
	var out []Group
	for i := 0; i < len(text); {
		pos, kw := firstKeyword(text, i)
		if pos < 0 {
			break
		}
		if g, ok := groupAt(text, pos, kw); ok {
			out = append(out, g)
		}
		i = pos + len(kw)
	}
	return out
}

// Root returns a pseudo-group spanning the document's outermost table, used
// when the published block is not inside any macro.
func Root(text string) (Group, bool) {
	open := scanner.FirstBrace(text)
	if open == scanner.NotFound {
		return Group{}, false
	}
	closeIdx := scanner.FindMatchingBrace(text, open)
	if closeIdx == scanner.NotFound {
		return Group{}, false
	}
	return Group{Start: open, TypeStart: open, Open: open, Close: closeIdx}, true
}

func lastKeyword(text string) (int, string) {
	best, bestKw := -1, ""
	for _, kw := range GroupKeywords {
		if p := strings.LastIndex(text, kw); p > best {
			best, bestKw = p, kw
		}
	}
	return best, bestKw
}

func firstKeyword(text string, from int) (int, string) {
	best, bestKw := -1, ""
	for _, kw := range GroupKeywords {
		p := strings.Index(text[from:], kw)
		if p >= 0 && (best < 0 || from+p < best) {
			best, bestKw = from+p, kw
		}
	}
	return best, bestKw
}

// groupAt verifies that the keyword at pos is the type of a declaration
// `Name = Keyword {` and resolves its braces.
func groupAt(text string, pos int, kw string) (Group, bool) {
	end := pos + len(kw)
	if pos > 0 && scanner.IsIdentPart(text[pos-1]) {
		return Group{}, false
	}
	if end < len(text) && scanner.IsIdentPart(text[end]) {
		return Group{}, false
	}

	j := pos - 1
	for j >= 0 && scanner.IsSpace(text[j]) {
		j--
	}
	if j < 0 || text[j] != '=' {
		return Group{}, false
	}
	j--
	for j >= 0 && scanner.IsSpace(text[j]) {
		j--
	}
	nameEnd := j + 1
	for j >= 0 && scanner.IsIdentPart(text[j]) {
		j--
	}
	nameStart := j + 1
	if nameStart >= nameEnd {
		return Group{}, false
	}

	open := scanner.SkipSpace(text, end)
	if open >= len(text) || text[open] != '{' {
		return Group{}, false
	}
	closeIdx := scanner.FindMatchingBrace(text, open)
	if closeIdx == scanner.NotFound {
		return Group{}, false
	}
	return Group{
		Name:         text[nameStart:nameEnd],
		OperatorType: kw,
		Start:        nameStart,
		TypeStart:    pos,
		Open:         open,
		Close:        closeIdx,
	}, true
}

// namedBlocks returns every block declaration called name, at any depth,
// in source order. String literals are skipped.
func namedBlocks(text, name string) []scanner.Decl {
	var out []scanner.Decl
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '"':
			end := scanner.SkipString(text, i)
			if end == scanner.NotFound {
				return out
			}
			i = end
		case scanner.IsIdentStart(c) && (i == 0 || !scanner.IsIdentPart(text[i-1])):
			ident, end := scanner.ScanIdentifier(text, i)
			if ident == name {
				if d, ok := scanner.DeclAt(text, i); ok && d.IsBlock() {
					out = append(out, d)
				}
			}
			if end <= i {
				end = i + 1
			}
			i = end
		default:
			i++
		}
	}
	return out
}
