// Package catalog holds the external table of known controls per tool type
// and the ordered strategies used to match a tool's type name against it.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

//go:embed builtin.yml
var builtinYAML []byte

// ErrEmptyCatalog is returned when a catalog file declares no types.
var ErrEmptyCatalog = errors.New("catalog declares no types")

// Control is one known parameter of a tool type.
type Control struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
	Kind string `yaml:"kind,omitempty"`
	Page string `yaml:"page,omitempty"`
}

// Entry is the catalog record of one tool type. Type and AltType are the
// registry ids the host uses for it when they differ from Name.
type Entry struct {
	Name     string    `yaml:"name"`
	Type     string    `yaml:"type,omitempty"`
	AltType  string    `yaml:"alt_type,omitempty"`
	Controls []Control `yaml:"controls"`
}

type file struct {
	Types []Entry `yaml:"types"`
}

// Catalog is an ordered, read-only set of entries. Lookups never depend on
// map iteration order.
type Catalog struct {
	entries []Entry
	byName  map[string]int
	byLower map[string]int
}

// New builds a catalog from entries. Later duplicates of a name are
// ignored.
func New(entries []Entry) *Catalog {
	c := &Catalog{
		byName:  make(map[string]int, len(entries)),
		byLower: make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		if _, dup := c.byName[e.Name]; dup {
			continue
		}
		c.byName[e.Name] = len(c.entries)
		if _, dup := c.byLower[strings.ToLower(e.Name)]; !dup {
			c.byLower[strings.ToLower(e.Name)] = len(c.entries)
		}
		c.entries = append(c.entries, e)
	}
	return c
}

// Parse decodes catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(f.Types) == 0 {
		return nil, ErrEmptyCatalog
	}
	return New(f.Types), nil
}

// Load reads a catalog file from fs.
func Load(fs afero.Fs, path string) (*Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Builtin returns the catalog compiled into the binary.
func Builtin() *Catalog {
	c, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("builtin catalog is invalid: %v", err))
	}
	return c
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns a copy of the entries in declaration order.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	return append([]Entry(nil), c.entries...)
}

func (c *Catalog) exact(name string) (Entry, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

func (c *Catalog) fold(name string) (Entry, bool) {
	i, ok := c.byLower[strings.ToLower(name)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Lookup resolves typeName with the matchers in order and returns a copy of
// the matched controls together with the name of the matcher that hit.
func (c *Catalog) Lookup(typeName string) ([]Control, string, bool) {
	if c == nil || typeName == "" {
		return nil, "", false
	}
	for _, m := range Matchers {
		if e, ok := m.Match(c, typeName); ok {
			return append([]Control(nil), e.Controls...), m.Name, true
		}
	}
	return nil, "", false
}
