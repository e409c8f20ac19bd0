// Package postgres binds PostgreSQL as a backend through the pgx stdlib
// driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/datastack-labs/fedsql/internal/handlers/sqlhandler"
	"github.com/datastack-labs/fedsql/pkg/ast"
	"github.com/datastack-labs/fedsql/pkg/handler"
)

func init() {
	handler.Register("postgres", func(logger *slog.Logger) handler.Handler { return NewHandler(logger) })
}

const tablesQuery = `SELECT table_name, table_type, table_schema FROM information_schema.tables WHERE table_schema NOT IN ('pg_catalog', 'information_schema')`

// Handler is the PostgreSQL connector.
type Handler struct {
	sqlhandler.Base
}

// NewHandler creates an unconnected PostgreSQL connector.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		Base: sqlhandler.Base{
			Logger:      logger,
			Engine:      "postgres",
			Renderer:    ast.Renderer{IdentQuote: `"`},
			TablesQuery: tablesQuery,
		},
	}
}

// Connect opens a connection pool to the configured server.
func (h *Handler) Connect(ctx context.Context, cfg handler.Config) error {
	db, err := sql.Open("pgx", connString(cfg))
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	h.DB = db
	return nil
}

func connString(cfg handler.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   cfg.Database,
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}

	q := u.Query()
	for key, value := range cfg.Options {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

var _ handler.Handler = (*Handler)(nil)
