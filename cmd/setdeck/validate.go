package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// createValidateCommand creates the validate command.
func createValidateCommand(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long:  "Validate configuration file and the catalog it points to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := d.setup(cmd)
			if err != nil {
				return fmt.Errorf("validation error: %w", err)
			}
			if _, err := e.deriver(); err != nil {
				return fmt.Errorf("validation error: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	}
}
