// Package cli provides the command-line interface for fedsql.
package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/datastack-labs/fedsql/internal/config"
	"github.com/datastack-labs/fedsql/internal/metrics"
)

// Version information (set at build time).
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fedsql",
		Short: "fedsql - Federated Query Layer",
		Long: `fedsql lets a single query language address heterogeneous backends -
relational databases, object stores, and remote data APIs - through one
uniform tabular interface.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default fedsql.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(newTablesCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the layered configuration for a command invocation.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger builds the process logger from config and flags.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// startMetrics serves the Prometheus scrape endpoint in the background when
// an address is configured.
func startMetrics(cfg *config.Config, logger *slog.Logger) {
	if cfg.MetricsAddr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("metrics endpoint failed", "addr", cfg.MetricsAddr, "error", err)
		}
	}()
}
