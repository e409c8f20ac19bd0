// Package sqlite binds SQLite as a backend. It is the simplest connector
// and the reference for writing new ones.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/datastack-labs/fedsql/internal/handlers/sqlhandler"
	"github.com/datastack-labs/fedsql/pkg/ast"
	"github.com/datastack-labs/fedsql/pkg/handler"
	"github.com/datastack-labs/fedsql/pkg/resultset"
)

func init() {
	handler.Register("sqlite", func(logger *slog.Logger) handler.Handler { return NewHandler(logger) })
}

const tablesQuery = `SELECT name AS table_name, type AS table_type FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'`

// Handler is the SQLite connector.
type Handler struct {
	sqlhandler.Base
}

// NewHandler creates an unconnected SQLite connector.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		Base: sqlhandler.Base{
			Logger: logger,
			Engine: "sqlite",
			Renderer: ast.Renderer{
				TypeNames: map[resultset.ColumnType]string{
					resultset.TypeFloat:    "REAL",
					resultset.TypeDateTime: "TEXT",
				},
			},
			TablesQuery: tablesQuery,
		},
	}
}

// Connect opens the database file. Use ":memory:" for an in-memory database.
func (h *Handler) Connect(ctx context.Context, cfg handler.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every pool connection to a plain :memory: DSN gets its own empty
	// database, so the pool must stay at one connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	h.DB = db
	return nil
}

var _ handler.Handler = (*Handler)(nil)
