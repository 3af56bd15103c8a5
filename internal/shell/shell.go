// Package shell is a line-oriented editor over an editing session. It
// renders model state as text and turns commands into model operations.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/sahilm/fuzzy"
	"github.com/wizzomafizzo/setdeck/internal/document"
	"github.com/wizzomafizzo/setdeck/internal/editor"
	"github.com/wizzomafizzo/setdeck/internal/logging"
	"github.com/wizzomafizzo/setdeck/internal/prompt"
)

// ErrQuit ends Run.
var ErrQuit = errors.New("quit")

const (
	promptText = "setdeck> "
	walkChunk  = 32
	maxMatches = 10
)

type command struct {
	run   func(sh *Shell, ctx context.Context, args []string) error
	usage string
	help  string
	min   int
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"ls":       {run: (*Shell).list, usage: "ls", help: "list visible entries"},
		"tools":    {run: (*Shell).tools, usage: "tools", help: "list tools and modifiers"},
		"controls": {run: (*Shell).controls, usage: "controls TOOL", help: "list controls of a tool", min: 1},
		"publish":  {run: (*Shell).publish, usage: "publish TOOL ID [NAME]", help: "publish a control", min: 2},
		"rm":       {run: (*Shell).remove, usage: "rm KEY...", help: "remove entries", min: 1},
		"mv":       {run: (*Shell).move, usage: "mv POS KEY...", help: "move entries and their groups", min: 2},
		"up":       {run: (*Shell).up, usage: "up", help: "move the selection up"},
		"down":     {run: (*Shell).down, usage: "down", help: "move the selection down"},
		"sel":      {run: (*Shell).sel, usage: "sel KEY...", help: "select entries", min: 1},
		"desel":    {run: (*Shell).desel, usage: "desel [KEY...]", help: "deselect entries, or all"},
		"focus":    {run: (*Shell).focus, usage: "focus KEY", help: "set the detail focus", min: 1},
		"rename":   {run: (*Shell).rename, usage: "rename KEY [NAME]", help: "rename an entry, no name reverts", min: 1},
		"page":     {run: (*Shell).page, usage: "page PAGE KEY...", help: "move entries to a page", min: 2},
		"label":    {run: (*Shell).label, usage: "label KEY N", help: "set how many entries a label holds", min: 2},
		"collapse": {run: (*Shell).collapse, usage: "collapse KEY", help: "toggle a label or colour group", min: 1},
		"find":     {run: (*Shell).find, usage: "find QUERY", help: "fuzzy search entries", min: 1},
		"jump":     {run: (*Shell).jump, usage: "jump NAME", help: "show where a tool connects", min: 1},
		"undo":     {run: (*Shell).undo, usage: "undo", help: "undo the last change"},
		"redo":     {run: (*Shell).redo, usage: "redo", help: "redo the last undone change"},
		"write":    {run: (*Shell).write, usage: "write [PATH]", help: "save the document"},
		"help":     {run: (*Shell).help, usage: "help", help: "show commands"},
		"quit":     {run: func(*Shell, context.Context, []string) error { return ErrQuit }, usage: "quit", help: "leave"},
	}
}

// Shell executes commands against one session.
type Shell struct {
	session *editor.Session
	out     io.Writer
}

func New(session *editor.Session, out io.Writer) *Shell {
	return &Shell{session: session, out: out}
}

// Run reads commands from p until quit or cancellation. Command errors are
// printed and do not stop the loop.
func (sh *Shell) Run(ctx context.Context, p prompt.Prompter) error {
	for {
		line, err := p.Prompt(promptText)
		if errors.Is(err, prompt.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
		err = sh.Exec(ctx, line)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			logging.Get(ctx).Debug().Err(err).Str("line", line).Msg("command failed")
			sh.printf("%s\n", color.RedString("error: %v", err))
		}
	}
}

// Exec runs one command line.
func (sh *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := commands[fields[0]]
	if !ok {
		return fmt.Errorf("unknown command %q, try help", fields[0])
	}
	args := fields[1:]
	if len(args) < cmd.min {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	return cmd.run(sh, ctx, args)
}

// Complete offers command names for the first word and entry keys after.
func (sh *Shell) Complete(line string) []string {
	fields := strings.Fields(line)
	if len(fields) == 0 || (len(fields) == 1 && !strings.HasSuffix(line, " ")) {
		prefix := strings.TrimSpace(line)
		var out []string
		for name := range commands {
			if strings.HasPrefix(name, prefix) {
				out = append(out, name)
			}
		}
		slices.Sort(out)
		return out
	}

	head, last := line, ""
	if !strings.HasSuffix(line, " ") {
		last = fields[len(fields)-1]
		head = strings.TrimSuffix(line, last)
	}
	var out []string
	sh.session.View(func(d *document.Document) {
		for _, k := range d.Order() {
			if strings.HasPrefix(k, last) {
				out = append(out, head+k)
			}
		}
	})
	return out
}

func (sh *Shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(sh.out, format, args...)
}

// mutate runs fn as one undoable step named after the command.
func (sh *Shell) mutate(ctx context.Context, label string, fn func(*document.Document) error) error {
	return sh.session.Do(ctx, label, fn)
}

func checkKeys(d *document.Document, keys []string) error {
	for _, k := range keys {
		if _, ok := d.Entry(k); !ok {
			return fmt.Errorf("%w: no entry %s", document.ErrInvalidInput, k)
		}
	}
	return nil
}

type decoration struct {
	visible   map[string]bool
	selected  map[string]bool
	collapsed map[string]bool
	depth     map[string]int
	focus     string
	pages     []string
	active    string
}

func (sh *Shell) decorations() decoration {
	var dec decoration
	sh.session.View(func(d *document.Document) {
		dec = decoration{
			visible:   map[string]bool{},
			selected:  map[string]bool{},
			collapsed: map[string]bool{},
			depth:     map[string]int{},
			focus:     d.DetailFocus(),
			pages:     d.Pages(),
			active:    d.ActivePage(),
		}
		for _, k := range d.VisibleOrder() {
			dec.visible[k] = true
		}
		for _, k := range d.Selected() {
			dec.selected[k] = true
		}
		for _, g := range d.LabelGroups() {
			dec.collapsed[g.Key] = d.IsLabelCollapsed(g.Key)
			for _, f := range g.Followers {
				dec.depth[f]++
			}
		}
	})
	return dec
}

func (sh *Shell) list(ctx context.Context, _ []string) error {
	dec := sh.decorations()
	sh.printf("pages: %s (active %s)\n", strings.Join(dec.pages, ", "), dec.active)

	bold := color.New(color.Bold)
	return sh.session.Walk(ctx, walkChunk, func(chunk []document.Entry) error {
		for _, e := range chunk {
			if !dec.visible[e.Key] {
				continue
			}
			mark := " "
			switch {
			case e.Key == dec.focus:
				mark = ">"
			case dec.selected[e.Key]:
				mark = "*"
			}
			name := e.DisplayName
			if e.IsLabel {
				fold := "v"
				if dec.collapsed[e.Key] {
					fold = ">"
				}
				name = bold.Sprintf("%s %s (%d)", fold, name, e.LabelCount)
			}
			extra := ""
			if e.ControlGroup > 0 {
				extra += fmt.Sprintf(" [cg %d]", e.ControlGroup)
			}
			if e.Page != "" {
				extra += " {" + e.Page + "}"
			}
			if e.Locked {
				extra += " locked"
			}
			if e.Dirty {
				extra += " *"
			}
			indent := strings.Repeat("  ", dec.depth[e.Key])
			sh.printf("%s %-8s %s%s  %s.%s%s\n", mark, e.Key, indent, name, e.SourceOp, e.Source, extra)
		}
		return nil
	})
}

func (sh *Shell) tools(context.Context, []string) error {
	sh.session.View(func(d *document.Document) {
		for _, b := range d.Tools() {
			sh.printf("%s (%s)\n", b.Name, b.Type)
		}
		for _, b := range d.Modifiers() {
			sh.printf("%s (%s) modifier\n", b.Name, b.Type)
		}
	})
	return nil
}

func (sh *Shell) controls(_ context.Context, args []string) error {
	var err error
	sh.session.View(func(d *document.Document) {
		defs, ok := d.Controls(args[0])
		if !ok {
			err = fmt.Errorf("%w: no tool %s", document.ErrInvalidInput, args[0])
			return
		}
		for _, def := range defs {
			published := ""
			if _, found := d.FindBySource(args[0], def.ID); found {
				published = " published"
			}
			sh.printf("%-20s %-24s %s%s\n", def.ID, def.Name, def.Kind, published)
			for _, ch := range def.Channels {
				sh.printf("  %-18s %s\n", ch.ID, ch.Name)
			}
		}
	})
	return err
}

func (sh *Shell) publish(ctx context.Context, args []string) error {
	tool, id := args[0], args[1]
	name := strings.Join(args[2:], " ")
	var keys []string
	err := sh.mutate(ctx, "publish "+tool+"."+id, func(d *document.Document) error {
		if defs, ok := d.Controls(tool); ok {
			for _, def := range defs {
				if def.ID == id && def.IsColorGroup() {
					var err error
					keys, err = d.PublishColorGroup(tool, id, document.Meta{})
					return err
				}
			}
		}
		if _, ok := d.FindBySource(tool, id); ok {
			return editor.ErrNoChange
		}
		key, err := d.Publish(tool, id, name, document.Meta{})
		keys = []string{key}
		return err
	})
	if errors.Is(err, editor.ErrNoChange) {
		sh.printf("already published\n")
		return nil
	}
	if err != nil {
		return err
	}
	sh.printf("published %s\n", strings.Join(keys, ", "))
	return nil
}

func (sh *Shell) remove(ctx context.Context, args []string) error {
	return sh.mutate(ctx, "remove", func(d *document.Document) error {
		return d.Remove(args...)
	})
}

func (sh *Shell) move(ctx context.Context, args []string) error {
	pos, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: position %q", document.ErrInvalidInput, args[0])
	}
	keys := args[1:]
	return sh.mutate(ctx, "move", func(d *document.Document) error {
		if err := checkKeys(d, keys); err != nil {
			return err
		}
		before := d.Order()
		d.Drag(keys, pos)
		if slices.Equal(before, d.Order()) {
			return editor.ErrNoChange
		}
		return nil
	})
}

func (sh *Shell) step(ctx context.Context, delta int) error {
	err := sh.mutate(ctx, "move selection", func(d *document.Document) error {
		if !d.MoveSelection(delta) {
			return editor.ErrNoChange
		}
		return nil
	})
	if errors.Is(err, editor.ErrNoChange) {
		sh.printf("nothing to move\n")
		return nil
	}
	return err
}

func (sh *Shell) up(ctx context.Context, _ []string) error {
	return sh.step(ctx, -1)
}

func (sh *Shell) down(ctx context.Context, _ []string) error {
	return sh.step(ctx, 1)
}

func (sh *Shell) sel(ctx context.Context, args []string) error {
	return sh.mutate(ctx, "select", func(d *document.Document) error {
		if err := checkKeys(d, args); err != nil {
			return err
		}
		d.Select(args...)
		return nil
	})
}

func (sh *Shell) desel(ctx context.Context, args []string) error {
	return sh.mutate(ctx, "deselect", func(d *document.Document) error {
		if len(args) == 0 {
			d.ClearSelection()
			return nil
		}
		if err := checkKeys(d, args); err != nil {
			return err
		}
		d.Deselect(args...)
		return nil
	})
}

func (sh *Shell) focus(ctx context.Context, args []string) error {
	return sh.mutate(ctx, "focus", func(d *document.Document) error {
		return d.SetDetailFocus(args[0])
	})
}

func (sh *Shell) rename(ctx context.Context, args []string) error {
	return sh.mutate(ctx, "rename "+args[0], func(d *document.Document) error {
		return d.SetEntryDisplayName(args[0], strings.Join(args[1:], " "))
	})
}

func (sh *Shell) page(ctx context.Context, args []string) error {
	return sh.mutate(ctx, "page "+args[0], func(d *document.Document) error {
		return d.SetPage(args[1:], args[0])
	})
}

func (sh *Shell) label(ctx context.Context, args []string) error {
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: count %q", document.ErrInvalidInput, args[1])
	}
	return sh.mutate(ctx, "label "+args[0], func(d *document.Document) error {
		return d.SetLabelCount(args[0], n)
	})
}

func (sh *Shell) collapse(ctx context.Context, args []string) error {
	return sh.mutate(ctx, "collapse "+args[0], func(d *document.Document) error {
		e, ok := d.Entry(args[0])
		if !ok {
			return fmt.Errorf("%w: no entry %s", document.ErrInvalidInput, args[0])
		}
		if e.IsLabel {
			return d.ToggleLabelCollapsed(e.Key)
		}
		return d.ToggleColorGroupCollapsed(e.Key)
	})
}

func (sh *Shell) find(_ context.Context, args []string) error {
	query := strings.Join(args, " ")
	var entries []document.Entry
	sh.session.View(func(d *document.Document) {
		entries = d.Entries()
	})
	haystack := make([]string, len(entries))
	for i, e := range entries {
		haystack[i] = e.DisplayName + " " + e.SourceOp + "." + e.Source
	}
	matches := fuzzy.Find(query, haystack)
	if len(matches) == 0 {
		sh.printf("no matches\n")
		return nil
	}
	for _, m := range matches[:min(len(matches), maxMatches)] {
		e := entries[m.Index]
		sh.printf("%-8s %s\n", e.Key, e.DisplayName)
	}
	return nil
}

func (sh *Shell) jump(_ context.Context, args []string) error {
	g := sh.session.Graph()
	name := args[0]
	if up := g.Upstream(name); len(up) > 0 {
		sh.printf("reads from: %s\n", strings.Join(up, ", "))
	}
	targets := g.JumpTargets(name)
	if len(targets) == 0 {
		sh.printf("no connections from %s\n", name)
	} else {
		sh.printf("jump to: %s\n", strings.Join(targets, ", "))
	}
	for _, b := range g.Bindings[name] {
		sh.printf("drives %s.%s\n", b.Tool, b.Param)
	}
	return nil
}

func (sh *Shell) undo(ctx context.Context, _ []string) error {
	label, ok := sh.session.Undo(ctx)
	if !ok {
		sh.printf("nothing to undo\n")
		return nil
	}
	sh.printf("undid %s\n", label)
	return nil
}

func (sh *Shell) redo(ctx context.Context, _ []string) error {
	label, ok := sh.session.Redo(ctx)
	if !ok {
		sh.printf("nothing to redo\n")
		return nil
	}
	sh.printf("redid %s\n", label)
	return nil
}

func (sh *Shell) write(ctx context.Context, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	saved, err := sh.session.Save(ctx, path)
	if err != nil {
		return err
	}
	sh.printf("wrote %s\n", saved)
	return nil
}

func (sh *Shell) help(context.Context, []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		sh.printf("%-24s %s\n", commands[name].usage, commands[name].help)
	}
	return nil
}
