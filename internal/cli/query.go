package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datastack-labs/fedsql/internal/registry"
)

// newQueryCommand creates the query command.
func newQueryCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "query <source> <sql>",
		Short: "Run a query against a registered data source",
		Long: `Execute raw query text against one configured data source and print
the result. The statement is passed to the backend verbatim.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			node, ok := reg.Get(args[0])
			if !ok {
				return fmt.Errorf("data source %q not found (configured: %v)", args[0], reg.List())
			}

			rows, columns, err := node.QueryNative(ctx, args[1])
			if err != nil {
				return err
			}
			return renderResult(cmd.OutOrStdout(), columns, rows, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, csv, json")
	return cmd
}
