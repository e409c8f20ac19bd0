package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/datastack-labs/fedsql/internal/registry"
)

// newTablesCommand creates the tables command.
func newTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables across all configured data sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			startMetrics(cfg, logger)

			ctx := context.Background()
			reg := registry.New(logger)
			defer func() { _ = reg.Close() }()

			for _, source := range cfg.Sources {
				if _, err := reg.RegisterSource(ctx, source.Name, source.HandlerConfig()); err != nil {
					return err
				}
			}

			bySource, err := reg.ListAllTables(ctx)
			if err != nil {
				return err
			}

			sources := make([]string, 0, len(bySource))
			for name := range bySource {
				sources = append(sources, name)
			}
			sort.Strings(sources)

			out := cmd.OutOrStdout()
			for _, source := range sources {
				fmt.Fprintf(out, "%s:\n", source)
				for _, table := range bySource[source] {
					fmt.Fprintf(out, "  %s", table.Name)
					if table.Kind != "" {
						fmt.Fprintf(out, " [%s]", table.Kind)
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
}
