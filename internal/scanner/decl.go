package scanner

import (
	"strconv"
	"strings"
)

// Decl is one depth-0 assignment inside a block: `Name = value`. Block
// values (`Name = Type { ... }`, `Name = ordered() { ... }`, `Name = { ... }`)
// carry the positions of their braces; scalar values have Open == NotFound.
type Decl struct {
	Name       string
	Type       string
	Value      string
	Start      int
	ValueStart int
	ValueEnd   int
	Open       int
	Close      int
}

// IsBlock reports whether the value is a brace-delimited table.
func (d Decl) IsBlock() bool {
	return d.Open != NotFound
}

// Body returns the text between the value's braces.
func (d Decl) Body(text string) string {
	if !d.IsBlock() {
		return ""
	}
	return text[d.Open+1 : d.Close]
}

// Quoted reports whether the value is a string literal.
func (d Decl) Quoted() bool {
	return strings.HasPrefix(d.Value, `"`)
}

// scanValue reads the value starting at i. It returns the end of the value
// and, for tables, the type name and brace positions.
func scanValue(text string, i int) (end int, typ string, open, closeIdx int) {
	open, closeIdx = NotFound, NotFound
	if i >= len(text) {
		return NotFound, "", open, closeIdx
	}
	switch c := text[i]; {
	case c == '"':
		return SkipString(text, i), "", open, closeIdx
	case c == '{':
		closeIdx = FindMatchingBrace(text, i)
		if closeIdx == NotFound {
			return NotFound, "", NotFound, NotFound
		}
		return closeIdx + 1, "", i, closeIdx
	case IsIdentStart(c) && c != '[':
		name, j := scanTypeName(text, i)
		k := SkipSpace(text, j)
		if k < len(text) && text[k] == '(' {
			p := strings.IndexByte(text[k:], ')')
			if p < 0 {
				return NotFound, "", open, closeIdx
			}
			k = SkipSpace(text, k+p+1)
		}
		if k < len(text) && text[k] == '{' {
			closeIdx = FindMatchingBrace(text, k)
			if closeIdx == NotFound {
				return NotFound, "", NotFound, NotFound
			}
			if name == "ordered" {
				name = ""
			}
			return closeIdx + 1, name, k, closeIdx
		}
		return j, "", open, closeIdx
	default:
		j := i
		for j < len(text) && text[j] != ',' && text[j] != '}' && text[j] != '\n' {
			j++
		}
		for j > i && IsSpace(text[j-1]) {
			j--
		}
		return j, "", open, closeIdx
	}
}

// Children enumerates the depth-0 declarations of the block whose opening
// brace is at open. Positional (unnamed) values are skipped. Scanning stops
// quietly at the first malformed value.
func Children(text string, open int) []Decl {
	closeIdx := FindMatchingBrace(text, open)
	if closeIdx == NotFound {
		return nil
	}
	return declsIn(text, open+1, closeIdx)
}

func declsIn(text string, from, to int) []Decl {
	var out []Decl
	i := from
	for i < to {
		i = SkipSpace(text, i)
		if i >= to {
			break
		}
		c := text[i]
		if c == ',' || c == ';' {
			i++
			continue
		}
		if !IsIdentStart(c) {
			end, _, _, _ := scanValue(text, i)
			if end == NotFound || end <= i {
				i++
				continue
			}
			i = end
			continue
		}

		_, j := ScanIdentifier(text, i)
		k := SkipSpace(text, j)
		if k >= to || text[k] != '=' {
			// bare positional identifier such as `true` in a list
			end, _, _, _ := scanValue(text, i)
			if end == NotFound || end <= i {
				i = j
				continue
			}
			i = end
			continue
		}

		d, ok := DeclAt(text, i)
		if !ok || d.ValueEnd > to {
			return out
		}
		out = append(out, d)
		i = d.ValueEnd
	}
	return out
}

// DeclAt parses the single declaration whose name starts at i.
func DeclAt(text string, i int) (Decl, bool) {
	name, j := ScanIdentifier(text, i)
	if name == "" {
		return Decl{}, false
	}
	k := SkipSpace(text, j)
	if k >= len(text) || text[k] != '=' {
		return Decl{}, false
	}
	vs := SkipSpace(text, k+1)
	end, typ, o, cl := scanValue(text, vs)
	if end == NotFound {
		return Decl{}, false
	}
	return Decl{
		Name:       name,
		Type:       typ,
		Value:      text[vs:end],
		Start:      i,
		ValueStart: vs,
		ValueEnd:   end,
		Open:       o,
		Close:      cl,
	}, true
}

// FirstBrace returns the index of the first '{' outside a string literal.
func FirstBrace(text string) int {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '"':
			end := SkipString(text, i)
			if end == NotFound {
				return NotFound
			}
			i = end - 1
		case '{':
			return i
		}
	}
	return NotFound
}

// FindProperty looks up a depth-0 property of the first block in fragment.
// The search never leaves that block.
func FindProperty(fragment, name string) (Decl, bool) {
	open := FirstBrace(fragment)
	if open == NotFound {
		return Decl{}, false
	}
	for _, d := range Children(fragment, open) {
		if d.Name == name {
			return d, true
		}
	}
	return Decl{}, false
}

// StringProperty returns the unquoted value of a scalar property.
func StringProperty(fragment, name string) (string, bool) {
	d, ok := FindProperty(fragment, name)
	if !ok || d.IsBlock() {
		return "", false
	}
	return Unquote(d.Value), true
}

// NumberProperty returns the numeric value of a property.
func NumberProperty(fragment, name string) (float64, bool) {
	d, ok := FindProperty(fragment, name)
	if !ok || d.IsBlock() || d.Quoted() {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(d.Value), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IntProperty returns a numeric property truncated to int.
func IntProperty(fragment, name string) (int, bool) {
	f, ok := NumberProperty(fragment, name)
	if !ok {
		return 0, false
	}
	return int(f), true
}
