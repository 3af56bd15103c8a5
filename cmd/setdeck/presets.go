package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/wizzomafizzo/setdeck/internal/prompt"
	"github.com/wizzomafizzo/setdeck/internal/vault"
)

// createPresetsCommand groups the bundle management commands.
func createPresetsCommand(d *deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Manage preset bundles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		createPresetsListCommand(d),
		presetsCommand(d, "toggle BUNDLE NAME", "Enable or disable one preset", cobra.ExactArgs(2),
			func(e *env, svc *vault.Service, args []string) vault.Result {
				return svc.Toggle(e.ctx, args[0], args[1])
			}),
		presetsCommand(d, "disable BUNDLE [NAME...]", "Set the full list of disabled presets", cobra.MinimumNArgs(1),
			func(e *env, svc *vault.Service, args []string) vault.Result {
				return svc.SetDisabledList(e.ctx, args[0], args[1:])
			}),
		presetsCommand(d, "delete BUNDLE NAME...", "Delete presets from a bundle for good", cobra.MinimumNArgs(2),
			func(e *env, svc *vault.Service, args []string) vault.Result {
				return svc.DeletePresets(e.ctx, args[0], args[1:])
			}),
		presetsCommand(d, "export DIR [NAME...]", "Pack a category directory into a bundle", cobra.MinimumNArgs(1),
			func(e *env, svc *vault.Service, args []string) vault.Result {
				return svc.ExportBundle(e.ctx, args[0], args[1:])
			}),
		createRemovePackCommand(d),
	)
	return cmd
}

// presetsCommand builds a subcommand that runs one archive operation and
// prints its message.
func presetsCommand(
	d *deps, use, short string, argCheck cobra.PositionalArgs,
	op func(*env, *vault.Service, []string) vault.Result,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  argCheck,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := d.setup(cmd)
			if err != nil {
				return err
			}
			svc, closeDB, err := e.openVault()
			if err != nil {
				return err
			}
			defer func() { _ = closeDB() }()
			return report(cmd, op(e, svc, args))
		},
	}
}

func report(cmd *cobra.Command, res vault.Result) error {
	if !res.OK {
		return errors.New(res.Message)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	return nil
}

func createPresetsListCommand(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list BUNDLE",
		Short: "List active and disabled presets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := d.setup(cmd)
			if err != nil {
				return err
			}
			svc, closeDB, err := e.openVault()
			if err != nil {
				return err
			}
			defer func() { _ = closeDB() }()

			listing := svc.ListPresets(e.ctx, args[0])
			if !listing.OK {
				return errors.New(listing.Message)
			}
			w := cmd.OutOrStdout()
			for _, p := range listing.Active {
				modified := ""
				if !p.Modified.IsZero() {
					modified = humanize.Time(p.Modified)
				}
				_, _ = fmt.Fprintf(w, "%-40s %10s  %s\n", p.Name, humanize.Bytes(p.Size), modified)
			}
			for _, name := range listing.Disabled {
				_, _ = fmt.Fprintf(w, "%-40s disabled\n", name)
			}
			return nil
		},
	}
}

func createRemovePackCommand(d *deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-pack BUNDLE",
		Short: "Delete a bundle with its backup and disabled list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, err := cmd.Flags().GetBool("yes")
			if err != nil {
				return fmt.Errorf("failed to get yes flag: %w", err)
			}
			e, err := d.setup(cmd)
			if err != nil {
				return err
			}
			if !yes {
				p := d.newPrompter(nil)
				ok, err := prompt.Confirm(p, fmt.Sprintf("Delete %s and its backup?", args[0]))
				_ = p.Close()
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "kept")
					return nil
				}
			}
			svc, closeDB, err := e.openVault()
			if err != nil {
				return err
			}
			defer func() { _ = closeDB() }()
			return report(cmd, svc.DeletePack(e.ctx, args[0]))
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}
