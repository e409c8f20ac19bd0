package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCommand creates the version command.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fedsql v%s\n", Version)
			fmt.Fprintln(cmd.OutOrStdout(), "Federated query layer built with Go and DuckDB")
		},
	}
}
