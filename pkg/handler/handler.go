// Package handler defines the contract every backend connector implements
// and a factory registry connectors self-register into. The adapter layer
// depends only on this interface, never on a concrete connector type.
package handler

import (
	"context"

	"github.com/datastack-labs/fedsql/pkg/ast"
	"github.com/datastack-labs/fedsql/pkg/resultset"
)

// Config holds connection settings for a backend.
type Config struct {
	// Type names the connector engine (e.g. "sqlite", "postgres").
	Type string

	// Path is the file path for file-based engines. ":memory:" is allowed.
	Path string

	// Network settings for server-based engines.
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Options carries additional engine-specific settings.
	Options map[string]string
}

// Handler is the backend connector contract. A connector never decides
// query semantics; it executes what it is handed and reports the outcome
// as a canonical result set. A returned error means the connector itself
// failed (network, auth, rejected syntax); a KindError result means the
// backend replied and reported the failure.
//
// Handlers are assumed safe for at most one in-flight call unless the
// concrete implementation documents otherwise.
type Handler interface {
	// Connect establishes the backend connection.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the backend connection.
	Close() error

	// Kind returns the engine identifier, used as a metrics label.
	Kind() string

	// GetTables lists the backend's tables as a KindTable result with at
	// least the columns table_name and table_type.
	GetTables(ctx context.Context) (*resultset.ResultSet, error)

	// Query executes a structured statement.
	Query(ctx context.Context, stmt ast.Stmt) (*resultset.ResultSet, error)

	// NativeQuery executes raw statement text verbatim.
	NativeQuery(ctx context.Context, query string) (*resultset.ResultSet, error)
}
