package catalog

import (
	"maps"
	"slices"
	"strings"
)

// Matcher is one named strategy for resolving a tool type name to a
// catalog entry. Each is a pure function of the catalog and the name.
type Matcher struct {
	Name  string
	Match func(c *Catalog, typeName string) (Entry, bool)
}

// Matchers are tried in order; the first hit wins.
var Matchers = []Matcher{
	{Name: "exact", Match: matchExact},
	{Name: "case-insensitive", Match: matchFold},
	{Name: "declared-type", Match: matchDeclaredType},
	{Name: "alternate-type", Match: matchAltType},
	{Name: "suffix-variant", Match: matchSuffixVariant},
	{Name: "synonym", Match: matchSynonym},
	{Name: "substring", Match: matchSubstring},
}

// Synonyms maps historically renamed types to their current names. The
// table is consulted in both directions.
var Synonyms = map[string]string{
	"Text":               "TextPlus",
	"Text+":              "TextPlus",
	"ColorCorrection":    "ColorCorrector",
	"BrightContrast":     "BrightnessContrast",
	"CrossDissolve":      "Dissolve",
	"BackgroundGradient": "Background",
	"Noise":              "FastNoise",
	"Xf":                 "Transform",
}

var modifierSuffixes = []string{"Modifier", "Mod"}

func matchExact(c *Catalog, typeName string) (Entry, bool) {
	return c.exact(typeName)
}

func matchFold(c *Catalog, typeName string) (Entry, bool) {
	return c.fold(typeName)
}

func matchDeclaredType(c *Catalog, typeName string) (Entry, bool) {
	for _, e := range c.entries {
		if e.Type != "" && strings.EqualFold(e.Type, typeName) {
			return e, true
		}
	}
	return Entry{}, false
}

func matchAltType(c *Catalog, typeName string) (Entry, bool) {
	for _, e := range c.entries {
		if e.AltType != "" && strings.EqualFold(e.AltType, typeName) {
			return e, true
		}
	}
	return Entry{}, false
}

// matchSuffixVariant tries X, XMod and XModifier for the bare name X,
// stripping a modifier suffix from typeName first.
func matchSuffixVariant(c *Catalog, typeName string) (Entry, bool) {
	base := typeName
	for _, s := range modifierSuffixes {
		if trimmed, ok := strings.CutSuffix(base, s); ok && trimmed != "" {
			base = trimmed
			break
		}
	}
	candidates := []string{base, base + "Mod", base + "Modifier"}
	for _, name := range candidates {
		if name == typeName {
			continue
		}
		if e, ok := c.fold(name); ok {
			return e, true
		}
	}
	return Entry{}, false
}

func matchSynonym(c *Catalog, typeName string) (Entry, bool) {
	if to, ok := Synonyms[typeName]; ok {
		if e, ok := c.fold(to); ok {
			return e, true
		}
	}
	for _, from := range slices.Sorted(maps.Keys(Synonyms)) {
		if !strings.EqualFold(Synonyms[from], typeName) {
			continue
		}
		if e, ok := c.fold(from); ok {
			return e, true
		}
	}
	return Entry{}, false
}

// matchSubstring is the last resort: the longest entry name contained in
// typeName, or containing it. Ties go to the earlier entry.
func matchSubstring(c *Catalog, typeName string) (Entry, bool) {
	lower := strings.ToLower(typeName)
	best := -1
	bestLen := 0
	for i, e := range c.entries {
		name := strings.ToLower(e.Name)
		if name == "" {
			continue
		}
		if strings.Contains(lower, name) || strings.Contains(name, lower) {
			if len(name) > bestLen {
				best, bestLen = i, len(name)
			}
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return c.entries[best], true
}
