// Package fallback runs queries the API table translator cannot finish
// itself. The fetched frame is loaded into an embedded DuckDB instance,
// the original statement is rewritten to point at it, and DuckDB's output
// is returned verbatim. Nothing here reimplements query semantics; the
// embedded engine is an escape hatch, not a second executor.
package fallback

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/datastack-labs/fedsql/pkg/ast"
	"github.com/datastack-labs/fedsql/pkg/resultset"
)

// insertChunk bounds how many rows one INSERT statement carries.
const insertChunk = 500

// Engine wraps an in-memory DuckDB database. One Engine can serve many
// tables; each query stages its frame under a unique name so concurrent
// calls never collide.
type Engine struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens an in-memory DuckDB instance.
func New(logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded duckdb: %w", err)
	}
	return &Engine{db: db, logger: logger}, nil
}

// Close releases the embedded database.
func (e *Engine) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Query loads the frame into a staging table, rewrites the statement's
// source-table reference to it, strips qualification prefixes and
// identifier quoting from the rewritten text, and executes it.
func (e *Engine) Query(ctx context.Context, frame *resultset.ResultSet, query *ast.Select) (*resultset.ResultSet, error) {
	staging := "df_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	if err := e.stageFrame(ctx, staging, frame); err != nil {
		return nil, err
	}
	defer func() {
		if _, err := e.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+staging); err != nil {
			e.logger.Error("failed to drop staging table", "table", staging, "error", err)
		}
	}()

	text, err := rewrite(query, staging)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("running fallback query", "sql", text)

	rows, err := e.db.QueryContext(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedded engine rejected query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRows(rows)
}

// rewrite renders the statement against the staging table. Quoting is
// stripped first so the qualification prefix matches regardless of how the
// parser spelled it.
func rewrite(query *ast.Select, staging string) (string, error) {
	source := ""
	if query.From != nil {
		source = query.From.Name()
	}

	rebased := *query
	rebased.From = ast.Ident(staging)

	var renderer ast.Renderer
	text, err := renderer.RenderSelect(&rebased)
	if err != nil {
		return "", fmt.Errorf("failed to render query for embedded engine: %w", err)
	}

	text = strings.ReplaceAll(text, "`", "")
	if source != "" {
		text = strings.ReplaceAll(text, source+".", "")
	}
	return text, nil
}

func (e *Engine) stageFrame(ctx context.Context, staging string, frame *resultset.ResultSet) error {
	types := frame.InferColumnTypes()

	var create strings.Builder
	fmt.Fprintf(&create, "CREATE TABLE %s (", staging)
	for i, col := range frame.Columns {
		if i > 0 {
			create.WriteString(", ")
		}
		columnType := col.Type
		if columnType == "" {
			columnType = types[i]
		}
		fmt.Fprintf(&create, "%q %s", col.Name, duckdbType(columnType))
	}
	create.WriteString(")")

	if _, err := e.db.ExecContext(ctx, create.String()); err != nil {
		return fmt.Errorf("failed to stage frame: %w", err)
	}

	for offset := 0; offset < len(frame.Rows); offset += insertChunk {
		end := offset + insertChunk
		if end > len(frame.Rows) {
			end = len(frame.Rows)
		}
		if err := e.insertRows(ctx, staging, frame.Rows[offset:end], len(frame.Columns)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) insertRows(ctx context.Context, staging string, rows [][]any, width int) error {
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"

	var insert strings.Builder
	fmt.Fprintf(&insert, "INSERT INTO %s VALUES ", staging)
	args := make([]any, 0, len(rows)*width)
	for i, row := range rows {
		if i > 0 {
			insert.WriteString(", ")
		}
		insert.WriteString(placeholders)
		args = append(args, row...)
	}

	if _, err := e.db.ExecContext(ctx, insert.String(), args...); err != nil {
		return fmt.Errorf("failed to stage frame rows: %w", err)
	}
	return nil
}

func scanRows(rows *sql.Rows) (*resultset.ResultSet, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	columns := make([]resultset.Column, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = resultset.Column{Name: ct.Name(), Type: columnTypeOf(ct.DatabaseTypeName())}
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}

	return resultset.Table(columns, data), nil
}

func duckdbType(t resultset.ColumnType) string {
	switch t {
	case resultset.TypeInteger:
		return "BIGINT"
	case resultset.TypeFloat:
		return "DOUBLE"
	case resultset.TypeDateTime:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

func columnTypeOf(databaseType string) resultset.ColumnType {
	switch strings.ToUpper(databaseType) {
	case "TINYINT", "SMALLINT", "INTEGER", "BIGINT", "HUGEINT", "UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT":
		return resultset.TypeInteger
	case "FLOAT", "DOUBLE", "DECIMAL":
		return resultset.TypeFloat
	case "DATE", "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP_S", "TIMESTAMP_MS", "TIMESTAMP_NS":
		return resultset.TypeDateTime
	default:
		return resultset.TypeText
	}
}
