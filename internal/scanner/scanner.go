// Package scanner provides brace- and string-aware primitives over the
// .setting text dialect. Nothing here returns errors: lookups that fail
// report NotFound or ok=false so callers can fall through to weaker
// strategies.
package scanner

import "strings"

// NotFound is returned by index-producing functions when the requested
// structure is absent or malformed.
const NotFound = -1

// IsSpace reports whether b is dialect whitespace.
func IsSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// IsIdentStart reports whether b may begin an identifier. Bracket
// characters start array-style keys such as ["Gamut.SLogVersion"].
func IsIdentStart(b byte) bool {
	return b == '_' || b == '[' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// IsIdentPart reports whether b may continue an identifier.
func IsIdentPart(b byte) bool {
	return IsIdentStart(b) || b == ']' || (b >= '0' && b <= '9')
}

// IsEscaped reports whether the byte at i is preceded by an odd number of
// consecutive backslashes.
func IsEscaped(text string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && text[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// SkipSpace returns the first index at or after i that is not whitespace.
func SkipSpace(text string, i int) int {
	for i < len(text) && IsSpace(text[i]) {
		i++
	}
	return i
}

// SkipString returns the index just past the closing quote of the string
// starting at text[start] == '"', or NotFound if it never terminates.
func SkipString(text string, start int) int {
	if start < 0 || start >= len(text) || text[start] != '"' {
		return NotFound
	}
	for i := start + 1; i < len(text); i++ {
		if text[i] == '"' && !IsEscaped(text, i) {
			return i + 1
		}
	}
	return NotFound
}

// FindMatchingBrace returns the index of the '}' matching the '{' at open.
// Braces inside double-quoted strings are ignored.
func FindMatchingBrace(text string, open int) int {
	if open < 0 || open >= len(text) || text[open] != '{' {
		return NotFound
	}
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '"':
			end := SkipString(text, i)
			if end == NotFound {
				return NotFound
			}
			i = end - 1
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return NotFound
}

// ScanIdentifier reads an identifier starting at i and returns it with the
// index just past it. A leading '[' consumes through the matching ']',
// quotes included. An empty string means no identifier starts at i.
func ScanIdentifier(text string, i int) (ident string, end int) {
	if i < 0 || i >= len(text) || !IsIdentStart(text[i]) {
		return "", i
	}
	start := i
	for i < len(text) {
		switch {
		case text[i] == '[':
			j := i + 1
			for j < len(text) && text[j] != ']' {
				if text[j] == '"' {
					k := SkipString(text, j)
					if k == NotFound {
						return text[start:i], i
					}
					j = k
					continue
				}
				j++
			}
			if j >= len(text) {
				return text[start:i], i
			}
			i = j + 1
		case IsIdentPart(text[i]):
			i++
		default:
			return text[start:i], i
		}
	}
	return text[start:i], i
}

// scanTypeName reads a dotted type name such as Fuse.Wireless.
func scanTypeName(text string, i int) (string, int) {
	start := i
	for i < len(text) && (IsIdentPart(text[i]) || text[i] == '.') && text[i] != '[' && text[i] != ']' {
		i++
	}
	return text[start:i], i
}

// Quote renders s as a dialect string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(s[i])
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Unquote strips the surrounding quotes of a string literal and resolves
// backslash escapes. Unquoted input is returned trimmed.
func Unquote(lit string) string {
	lit = strings.TrimSpace(lit)
	if len(lit) < 2 || lit[0] != '"' || lit[len(lit)-1] != '"' {
		return lit
	}
	inner := lit[1 : len(lit)-1]
	if !strings.Contains(inner, `\`) {
		return inner
	}
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] != '\\' || i+1 == len(inner) {
			b.WriteByte(inner[i])
			continue
		}
		i++
		switch inner[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(inner[i])
		}
	}
	return b.String()
}

// LineStart returns the index of the first byte of the line containing i.
func LineStart(text string, i int) int {
	if i > len(text) {
		i = len(text)
	}
	return strings.LastIndexByte(text[:i], '\n') + 1
}

// IndentBefore returns the run of spaces and tabs between the start of the
// line containing i and i, or "" if anything else precedes i on that line.
func IndentBefore(text string, i int) string {
	ls := LineStart(text, i)
	indent := text[ls:i]
	if strings.TrimLeft(indent, " \t") != "" {
		return ""
	}
	return indent
}
