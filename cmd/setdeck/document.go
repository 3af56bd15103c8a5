package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wizzomafizzo/setdeck/internal/document"
	"github.com/wizzomafizzo/setdeck/internal/editor"
	"github.com/wizzomafizzo/setdeck/internal/shell"
)

func createInspectCommand(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show published entries, pages and groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := d.setup(cmd)
			if err != nil {
				return err
			}
			s, err := e.openSession(args[0])
			if err != nil {
				return err
			}
			printInspect(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func printInspect(w io.Writer, s *editor.Session) {
	s.View(func(doc *document.Document) {
		_, _ = fmt.Fprintf(w, "%s (%s), found by %s\n", doc.MacroName(), doc.OperatorType(), doc.Strategy())
		_, _ = fmt.Fprintf(w, "pages: %s\n\n", strings.Join(doc.Pages(), ", "))
		for _, en := range doc.Entries() {
			flags := ""
			if en.IsLabel {
				flags += fmt.Sprintf(" label(%d)", en.LabelCount)
			}
			if en.ControlGroup > 0 {
				flags += fmt.Sprintf(" cg=%d", en.ControlGroup)
			}
			if en.Locked {
				flags += " locked"
			}
			page := en.Page
			if page == "" {
				page = doc.DefaultPage()
			}
			_, _ = fmt.Fprintf(w, "%-10s %-24s %-28s %s%s\n",
				en.Key, en.DisplayName, en.SourceOp+"."+en.Source, page, flags)
		}

		if groups := doc.LabelGroups(); len(groups) > 0 {
			_, _ = fmt.Fprintln(w, "\nlabel groups:")
			for _, g := range groups {
				_, _ = fmt.Fprintf(w, "  %s: %s\n", g.Key, strings.Join(g.Followers, " "))
			}
		}
		if groups := doc.ColorGroups(); len(groups) > 0 {
			_, _ = fmt.Fprintln(w, "\ncolour groups:")
			for _, g := range groups {
				_, _ = fmt.Fprintf(w, "  %s #%d: %s\n", g.SourceOp, g.ControlGroup, strings.Join(g.Keys, " "))
			}
		}
	})
}

func createControlsCommand(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "controls FILE TOOL",
		Short: "Show the controls derived for a tool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := d.setup(cmd)
			if err != nil {
				return err
			}
			s, err := e.openSession(args[0])
			if err != nil {
				return err
			}
			var runErr error
			s.View(func(doc *document.Document) {
				defs, ok := doc.Controls(args[1])
				if !ok {
					runErr = fmt.Errorf("no tool named %s", args[1])
					return
				}
				w := cmd.OutOrStdout()
				for _, def := range defs {
					_, _ = fmt.Fprintf(w, "%-20s %-24s %-20s %s\n", def.ID, def.Name, def.Kind, def.Origin)
					for _, ch := range def.Channels {
						_, _ = fmt.Fprintf(w, "  %-18s %s\n", ch.ID, ch.Name)
					}
				}
			})
			return runErr
		},
	}
}

func createGraphCommand(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "graph FILE",
		Short: "Show which tools feed which, and what modifiers drive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := d.setup(cmd)
			if err != nil {
				return err
			}
			s, err := e.openSession(args[0])
			if err != nil {
				return err
			}
			g := s.Graph()
			w := cmd.OutOrStdout()
			for _, src := range slices.Sorted(maps.Keys(g.Downstream)) {
				_, _ = fmt.Fprintf(w, "%s -> %s\n", src, strings.Join(g.Downstream[src], ", "))
			}
			for _, mod := range slices.Sorted(maps.Keys(g.Bindings)) {
				for _, b := range g.Bindings[mod] {
					_, _ = fmt.Fprintf(w, "%s drives %s.%s\n", mod, b.Tool, b.Param)
				}
			}
			return nil
		},
	}
}

func createExportCommand(d *deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Parse and re-serialize a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := d.setup(cmd)
			if err != nil {
				return err
			}
			out, err := cmd.Flags().GetString("output")
			if err != nil {
				return fmt.Errorf("failed to get output flag: %w", err)
			}
			reconcile, err := cmd.Flags().GetBool("reconcile")
			if err != nil {
				return fmt.Errorf("failed to get reconcile flag: %w", err)
			}

			s, err := e.openSession(args[0])
			if err != nil {
				return err
			}
			if reconcile {
				deriver, err := e.deriver()
				if err != nil {
					return err
				}
				err = s.Do(e.ctx, "reconcile", func(doc *document.Document) error {
					if doc.Reconcile(e.ctx, deriver) == 0 {
						return editor.ErrNoChange
					}
					return nil
				})
				if err != nil && !errors.Is(err, editor.ErrNoChange) {
					return err
				}
			}

			if out == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), s.Serialize())
				return err
			}
			saved, err := s.Save(e.ctx, out)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", saved)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().Bool("reconcile", false, "Refresh names that were never edited from the catalog")
	return cmd
}

func createEditCommand(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "edit FILE",
		Short: "Edit published controls interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := d.setup(cmd)
			if err != nil {
				return err
			}
			s, err := e.openSession(args[0])
			if err != nil {
				return err
			}
			sh := shell.New(s, cmd.OutOrStdout())
			p := d.newPrompter(sh.Complete)
			defer func() { _ = p.Close() }()
			return sh.Run(e.ctx, p)
		},
	}
}
