// Package main provides the CLI entry point for fedsql.
package main

import (
	"github.com/datastack-labs/fedsql/internal/cli"
	"github.com/datastack-labs/fedsql/internal/metrics"

	// Connectors self-register on import.
	_ "github.com/datastack-labs/fedsql/internal/handlers/postgres"
	_ "github.com/datastack-labs/fedsql/internal/handlers/sqlite"
)

func main() {
	metrics.Register()
	cli.Execute()
}
