package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMatchingBrace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		open  int
		want  int
	}{
		{name: "simple", input: "{}", open: 0, want: 1},
		{name: "nested", input: "{ a = { b = 1 } }", open: 0, want: 16},
		{name: "inner block", input: "{ a = { b = 1 } }", open: 6, want: 14},
		{name: "brace in string", input: `{ a = "}" }`, open: 0, want: 10},
		{name: "escaped quote in string", input: `{ a = "x\"}" }`, open: 0, want: 13},
		{name: "escaped backslash closes string", input: `{ a = "x\\" }`, open: 0, want: 12},
		{name: "unbalanced", input: "{ a = { }", open: 0, want: NotFound},
		{name: "unterminated string", input: `{ a = "} }`, open: 0, want: NotFound},
		{name: "not a brace", input: "abc", open: 1, want: NotFound},
		{name: "out of range", input: "{}", open: 5, want: NotFound},
		{name: "negative", input: "{}", open: -1, want: NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FindMatchingBrace(tt.input, tt.open))
		})
	}
}

func TestIsEscaped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		index int
		want  bool
	}{
		{name: "no backslash", input: `a"`, index: 1, want: false},
		{name: "one backslash", input: `a\"`, index: 2, want: true},
		{name: "two backslashes", input: `a\\"`, index: 3, want: false},
		{name: "three backslashes", input: `a\\\"`, index: 4, want: true},
		{name: "start of text", input: `"`, index: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsEscaped(tt.input, tt.index))
		})
	}
}

func TestScanIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantEnd int
	}{
		{name: "plain", input: "Blur1 = x", want: "Blur1", wantEnd: 5},
		{name: "underscore", input: "_Top_Left", want: "_Top_Left", wantEnd: 9},
		{name: "array key", input: `["Gamut.SLog"] = 1`, want: `["Gamut.SLog"]`, wantEnd: 14},
		{name: "starts with digit", input: "1abc", want: "", wantEnd: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, end := ScanIdentifier(tt.input, 0)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"plain", `with "quotes"`, `back\slash`, "tab\there", ""} {
		assert.Equal(t, s, Unquote(Quote(s)), "round trip of %q", s)
	}
	assert.Equal(t, "bare", Unquote(" bare "))
}

func TestChildren(t *testing.T) {
	t.Parallel()

	text := `Tools = ordered() {
	Blur1 = Blur {
		Inputs = { XBlurSize = Input { Value = 5, }, },
		ViewInfo = OperatorInfo { Pos = { 110, 50 } },
	},
	Wire1 = Fuse.Wireless { },
	Note = "has } brace",
	["Odd.Key"] = 3,
	Flag = true,
}`
	open := FirstBrace(text)
	require.NotEqual(t, NotFound, open)

	kids := Children(text, open)
	require.Len(t, kids, 5)

	assert.Equal(t, "Blur1", kids[0].Name)
	assert.Equal(t, "Blur", kids[0].Type)
	assert.True(t, kids[0].IsBlock())
	assert.Contains(t, kids[0].Body(text), "XBlurSize")

	assert.Equal(t, "Wire1", kids[1].Name)
	assert.Equal(t, "Fuse.Wireless", kids[1].Type)

	assert.Equal(t, "Note", kids[2].Name)
	assert.True(t, kids[2].Quoted())
	assert.Equal(t, `"has } brace"`, kids[2].Value)

	assert.Equal(t, `["Odd.Key"]`, kids[3].Name)
	assert.Equal(t, "3", kids[3].Value)

	assert.Equal(t, "Flag", kids[4].Name)
	assert.Equal(t, "true", kids[4].Value)
	assert.False(t, kids[4].IsBlock())
}

func TestChildrenOrderedWithoutType(t *testing.T) {
	t.Parallel()

	text := `{ Inputs = ordered() { Input1 = InstanceInput { SourceOp = "Blur1" } } }`
	kids := Children(text, 0)
	require.Len(t, kids, 1)
	assert.Equal(t, "Inputs", kids[0].Name)
	assert.Equal(t, "", kids[0].Type)
	assert.True(t, kids[0].IsBlock())
}

func TestChildrenMalformed(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Children("{ a = { ", 0))
}

func TestPropertyExtraction(t *testing.T) {
	t.Parallel()

	frag := `Input1 = InstanceInput {
	SourceOp = "Blur1",
	Source = "Blend",
	ControlGroup = 3,
	Default = 0.5,
	Nested = { SourceOp = "Wrong" },
}`

	op, ok := StringProperty(frag, "SourceOp")
	require.True(t, ok)
	assert.Equal(t, "Blur1", op)

	group, ok := IntProperty(frag, "ControlGroup")
	require.True(t, ok)
	assert.Equal(t, 3, group)

	def, ok := NumberProperty(frag, "Default")
	require.True(t, ok)
	assert.InDelta(t, 0.5, def, 1e-9)

	_, ok = NumberProperty(frag, "Source")
	assert.False(t, ok, "quoted values are not numbers")

	_, ok = StringProperty(frag, "Missing")
	assert.False(t, ok)

	_, ok = StringProperty(frag, "Nested")
	assert.False(t, ok, "tables are not scalar properties")
}

func TestPropertyScopedToBlock(t *testing.T) {
	t.Parallel()

	frag := `Input1 = InstanceInput { Source = "Blend" }, Input2 = InstanceInput { SourceOp = "Other" }`
	_, ok := StringProperty(frag, "SourceOp")
	assert.False(t, ok, "search must not leak into the following block")
}

func TestSetProperty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		prop    string
		literal string
		want    string
	}{
		{
			name:    "replace existing",
			input:   "Input1 = InstanceInput {\n\tSource = \"Blend\",\n\tName = \"Old\",\n}",
			prop:    "Name",
			literal: `"New"`,
			want:    "Input1 = InstanceInput {\n\tSource = \"Blend\",\n\tName = \"New\",\n}",
		},
		{
			name:    "append multiline",
			input:   "Input1 = InstanceInput {\n\t\tSource = \"Blend\",\n\t}",
			prop:    "Page",
			literal: `"Extra"`,
			want:    "Input1 = InstanceInput {\n\t\tSource = \"Blend\",\n\t\tPage = \"Extra\",\n\t}",
		},
		{
			name:    "append multiline missing trailing comma",
			input:   "Input1 = InstanceInput {\n\tSource = \"Blend\"\n}",
			prop:    "ControlGroup",
			literal: "2",
			want:    "Input1 = InstanceInput {\n\tSource = \"Blend\",\n\tControlGroup = 2,\n}",
		},
		{
			name:    "append single line",
			input:   `Input1 = InstanceInput { SourceOp="Blur1", Source="Blend" }`,
			prop:    "Name",
			literal: `"Blend"`,
			want:    `Input1 = InstanceInput { SourceOp="Blur1", Source="Blend", Name = "Blend" }`,
		},
		{
			name:    "append to empty block",
			input:   `Input1 = InstanceInput {}`,
			prop:    "Name",
			literal: `"X"`,
			want:    `Input1 = InstanceInput { Name = "X" }`,
		},
		{
			name:    "no block",
			input:   `Input1 = 5`,
			prop:    "Name",
			literal: `"X"`,
			want:    `Input1 = 5`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SetProperty(tt.input, tt.prop, tt.literal))
		})
	}
}

func TestRemoveProperty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		prop  string
		want  string
	}{
		{
			name:  "own line",
			input: "Input1 = InstanceInput {\n\tSource = \"Blend\",\n\tPage = \"Extra\",\n}",
			prop:  "Page",
			want:  "Input1 = InstanceInput {\n\tSource = \"Blend\",\n}",
		},
		{
			name:  "inline",
			input: `Input1 = InstanceInput { Page = "Extra", Source = "Blend" }`,
			prop:  "Page",
			want:  `Input1 = InstanceInput { Source = "Blend" }`,
		},
		{
			name:  "absent",
			input: `Input1 = InstanceInput { Source = "Blend" }`,
			prop:  "Page",
			want:  `Input1 = InstanceInput { Source = "Blend" }`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RemoveProperty(tt.input, tt.prop))
		})
	}
}

func TestSetThenFind(t *testing.T) {
	t.Parallel()

	frag := `Input1 = InstanceInput { SourceOp="Blur1", Source="Blend" }`
	frag = SetProperty(frag, "Name", Quote(`Say "hi"`))
	got, ok := StringProperty(frag, "Name")
	require.True(t, ok)
	assert.Equal(t, `Say "hi"`, got)
}
