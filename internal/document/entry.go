package document

import (
	"html"
	"regexp"
	"strings"
)

// LabelStyle is the rich-text styling of an entry name.
type LabelStyle struct {
	Bold      bool
	Italic    bool
	Underline bool
	Center    bool
	Color     string
}

// IsZero reports whether no styling is applied.
func (s LabelStyle) IsZero() bool {
	return s == LabelStyle{}
}

// Entry is one published parameter. Entries are values; the document owns
// the only mutable copy.
type Entry struct {
	Key          string
	SourceOp     string
	Source       string
	Name         string
	DisplayName  string
	ComputedName string
	OriginalName string
	Override     string
	Page         string
	ControlGroup int
	IsLabel      bool
	LabelCount   int
	LabelStyle   LabelStyle
	Raw          string
	Locked       bool
	Dirty        bool

	hadName bool
}

// Followers is the number of entries a label owns; zero for non-labels.
func (e Entry) Followers() int {
	if !e.IsLabel || e.LabelCount < 0 {
		return 0
	}
	return e.LabelCount
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	colorPattern = regexp.MustCompile(`(?i)<font[^>]*color\s*=\s*"?(#[0-9a-f]{3,8})"?[^>]*>`)
	alignPattern = regexp.MustCompile(`(?i)<p[^>]*align\s*=\s*"?center"?[^>]*>`)
)

// parseMarkup splits a Name value into plain text and style.
func parseMarkup(markup string) (string, LabelStyle) {
	if !strings.Contains(markup, "<") {
		return markup, LabelStyle{}
	}
	lower := strings.ToLower(markup)
	style := LabelStyle{
		Bold:      strings.Contains(lower, "<b>"),
		Italic:    strings.Contains(lower, "<i>"),
		Underline: strings.Contains(lower, "<u>"),
		Center:    alignPattern.MatchString(markup),
	}
	if m := colorPattern.FindStringSubmatch(markup); m != nil {
		style.Color = strings.ToLower(m[1])
	}
	plain := html.UnescapeString(tagPattern.ReplaceAllString(markup, ""))
	return strings.TrimSpace(plain), style
}

// renderMarkup is the inverse of parseMarkup. Unstyled names stay plain.
func renderMarkup(text string, style LabelStyle) string {
	if style.IsZero() {
		return text
	}
	var open, closing []string
	if style.Center {
		open = append(open, `<p align="center">`)
		closing = append(closing, `</p>`)
	}
	if style.Color != "" {
		open = append(open, `<font color="`+style.Color+`">`)
		closing = append(closing, `</font>`)
	}
	if style.Bold {
		open = append(open, `<b>`)
		closing = append(closing, `</b>`)
	}
	if style.Italic {
		open = append(open, `<i>`)
		closing = append(closing, `</i>`)
	}
	if style.Underline {
		open = append(open, `<u>`)
		closing = append(closing, `</u>`)
	}

	var b strings.Builder
	for _, tag := range open {
		b.WriteString(tag)
	}
	b.WriteString(html.EscapeString(text))
	for i := len(closing) - 1; i >= 0; i-- {
		b.WriteString(closing[i])
	}
	return b.String()
}
