package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wizzomafizzo/setdeck/internal/locator"
)

func block(name, typ, body string) locator.Block {
	return locator.Block{Name: name, Type: typ, Body: body}
}

var (
	tools = []locator.Block{
		block("Blur1", "Blur", `
			Inputs = {
				XBlurSize = Input { SourceOp = "Perturb1", Source = "Value", },
				Input = Input { SourceOp = "Bg1", Source = "Output", },
			},`),
		block("Bg1", "Background", `Inputs = { TopLeftRed = Input { Value = 1, }, },`),
		block("Merge1", "Merge", `
			Inputs = {
				Background = Input { SourceOp = "Bg1", Source = "Output", },
				Foreground = Input { SourceOp = "Blur1", Source = "Output", },
				Extra = Input { SourceOp = "Bg1", Source = "Output", },
			},`),
	}
	modifiers = []locator.Block{
		block("Perturb1", "Perturb", `Inputs = { Strength = Input { Value = 0.5, }, },`),
	}
)

func TestBuildDownstreamMap(t *testing.T) {
	t.Parallel()

	got := BuildDownstreamMap(append(append([]locator.Block{}, tools...), modifiers...))
	assert.Equal(t, map[string][]string{
		"Perturb1": {"Blur1"},
		"Bg1":      {"Blur1", "Merge1"},
		"Blur1":    {"Merge1"},
	}, got)
}

func TestBuildDownstreamMapDeepBacklinks(t *testing.T) {
	t.Parallel()

	got := BuildDownstreamMap([]locator.Block{
		block("Xf1", "Transform", `Effect = { Mask = { Shape = { SourceOp = "Mask1", }, }, }, Note = "SourceOp = \"Fake\"",`),
	})
	assert.Equal(t, map[string][]string{"Mask1": {"Xf1"}}, got)
}

func TestBuildModifierBindings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tools     []locator.Block
		modifiers []locator.Block
		want      map[string][]Binding
	}{
		{
			name:      "known modifiers",
			tools:     tools,
			modifiers: modifiers,
			want:      map[string][]Binding{"Perturb1": {{Tool: "Blur1", Param: "XBlurSize"}}},
		},
		{
			name:  "no modifier list skips Output links",
			tools: tools,
			want:  map[string][]Binding{"Perturb1": {{Tool: "Blur1", Param: "XBlurSize"}}},
		},
		{
			name: "textual fallback",
			tools: []locator.Block{
				block("Xf1", "Transform", `Settings = { Angle = Input { SourceOp = "Shake1", Source = "Value", }, },`),
			},
			modifiers: []locator.Block{block("Shake1", "Shake", ``)},
			want:      map[string][]Binding{"Shake1": {{Tool: "Xf1", Param: "Angle"}}},
		},
		{
			name:  "nothing bound",
			tools: []locator.Block{block("Bg1", "Background", `Inputs = { },`)},
			want:  map[string][]Binding{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BuildModifierBindings(tt.tools, tt.modifiers))
		})
	}
}

func TestJumpTargets(t *testing.T) {
	t.Parallel()

	g := Build(tools, modifiers)

	assert.Equal(t, []string{"Blur1", "Merge1"}, g.JumpTargets("Bg1"))
	assert.Equal(t, []string{"Blur1"}, g.JumpTargets("Perturb1"))
	assert.Equal(t, []string{"Merge1", "Perturb1"}, g.JumpTargets("Blur1"))
	assert.Empty(t, g.JumpTargets("Merge1"))
	assert.Equal(t, []string{"Blur1", "Bg1"}, g.Upstream("Merge1"))
}
