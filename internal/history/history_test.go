package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wizzomafizzo/setdeck/internal/document"
	"github.com/wizzomafizzo/setdeck/internal/testutil"
)

type counter struct {
	values []int
}

func (c *counter) Snapshot() []int {
	return append([]int(nil), c.values...)
}

func (c *counter) Restore(s []int) {
	c.values = append([]int(nil), s...)
}

func TestUndoRedoStacks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := &counter{}
	h := New[[]int](c)

	assert.False(t, h.Undo(ctx))
	assert.False(t, h.Redo(ctx))

	h.Record(ctx, "add 1")
	c.values = append(c.values, 1)
	h.Record(ctx, "add 2")
	c.values = append(c.values, 2)

	assert.Equal(t, "add 2", h.UndoLabel())
	assert.Equal(t, []string{"add 1", "add 2"}, h.Labels())

	require.True(t, h.Undo(ctx))
	assert.Equal(t, []int{1}, c.values)
	assert.Equal(t, "add 2", h.RedoLabel())
	assert.True(t, h.CanRedo())

	require.True(t, h.Undo(ctx))
	assert.Empty(t, c.values)
	assert.False(t, h.CanUndo())

	require.True(t, h.Redo(ctx))
	assert.Equal(t, []int{1}, c.values)
	require.True(t, h.Redo(ctx))
	assert.Equal(t, []int{1, 2}, c.values)
	assert.False(t, h.CanRedo())
}

func TestRecordClearsFuture(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := &counter{}
	h := New[[]int](c)

	h.Record(ctx, "add 1")
	c.values = append(c.values, 1)
	h.Undo(ctx)
	require.True(t, h.CanRedo())

	h.Record(ctx, "add 9")
	c.values = append(c.values, 9)
	assert.False(t, h.CanRedo())
	assert.Empty(t, h.RedoLabel())
}

func TestDiscardRestoresFuture(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := &counter{}
	h := New[[]int](c)

	h.Record(ctx, "add 1")
	c.values = append(c.values, 1)
	h.Undo(ctx)

	h.Record(ctx, "rejected")
	h.Discard()

	assert.False(t, h.CanUndo())
	assert.Equal(t, "add 1", h.RedoLabel())
}

func TestReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := New[[]int](&counter{})
	h.Record(ctx, "a")
	h.Reset()
	assert.False(t, h.CanUndo())
	assert.Empty(t, h.UndoLabel())
}

const macro = `{
	Tools = ordered() {
		Glow1 = GroupOperator {
			Inputs = ordered() {
				Input1 = InstanceInput {
					SourceOp = "Blur1",
					Source = "XBlurSize",
				},
				Input2 = InstanceInput {
					SourceOp = "Blur1",
					Source = "Blend",
				},
				Input3 = InstanceInput {
					SourceOp = "Blur1",
					Source = "Header",
					LBLC_NumInputs = 1,
				},
			},
			Tools = ordered() {
				Blur1 = Blur { },
			},
		},
	},
}`

func TestDocumentUndoIsDeepEqual(t *testing.T) {
	t.Parallel()

	ctx, logs := testutil.NewTestContext(t)
	d, err := document.Parse(ctx, macro, document.Options{})
	require.NoError(t, err)
	h := New[document.Snapshot](d)

	mutations := []struct {
		label string
		apply func() error
	}{
		{label: "rename", apply: func() error { return d.SetEntryDisplayName("Input1", "Radius") }},
		{label: "select", apply: func() error { d.Select("Input2"); return nil }},
		{label: "move", apply: func() error { d.Drag([]string{"Input3"}, 0); return nil }},
		{label: "page", apply: func() error { return d.SetPage([]string{"Input2"}, "Look") }},
		{label: "collapse", apply: func() error { return d.ToggleLabelCollapsed("Input3") }},
		{label: "publish", apply: func() error { _, err := d.Publish("Blur1", "Filter", "", document.Meta{}); return err }},
		{label: "remove", apply: func() error { return d.Remove("Input1") }},
		{label: "macro", apply: func() error { return d.SetMacroName("Halo") }},
	}

	var before, after []document.Snapshot
	for _, m := range mutations {
		before = append(before, d.Snapshot())
		h.Record(ctx, m.label)
		require.NoError(t, m.apply(), m.label)
		after = append(after, d.Snapshot())
	}

	for i := len(mutations) - 1; i >= 0; i-- {
		require.True(t, h.Undo(ctx))
		assert.Equal(t, before[i], d.Snapshot(), "undo %s", mutations[i].label)
	}
	for i := range mutations {
		require.True(t, h.Redo(ctx))
		assert.Equal(t, after[i], d.Snapshot(), "redo %s", mutations[i].label)
	}

	assert.Contains(t, logs(), `"action":"macro"`)
}
