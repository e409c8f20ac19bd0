// Package sqlhandler provides common database/sql functionality for
// connectors. Embed Base in a concrete connector to get standard Close,
// Query, NativeQuery, and GetTables implementations; the connector supplies
// the connection, the dialect renderer, and its table-listing statement.
package sqlhandler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/datastack-labs/fedsql/pkg/ast"
	"github.com/datastack-labs/fedsql/pkg/resultset"
)

// Base implements the connector contract over database/sql. A failed
// statement comes back as a KindError result — the backend replied and
// rejected it; a returned error means the connection itself is unusable.
type Base struct {
	DB     *sql.DB
	Logger *slog.Logger

	// Renderer holds the dialect quoting and type names.
	Renderer ast.Renderer

	// Engine is the kind label reported for metrics.
	Engine string

	// TablesQuery lists the backend's tables with table_name/table_type
	// columns.
	TablesQuery string

	// SupportsCreateOrReplace is false for engines without
	// CREATE OR REPLACE TABLE; replacement is emulated with a drop.
	SupportsCreateOrReplace bool
}

// Kind returns the engine identifier.
func (b *Base) Kind() string { return b.Engine }

// Close closes the database connection.
func (b *Base) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// GetTables lists the backend's tables.
func (b *Base) GetTables(ctx context.Context) (*resultset.ResultSet, error) {
	return b.NativeQuery(ctx, b.TablesQuery)
}

// Query renders a structured statement to this connector's dialect and
// executes it.
func (b *Base) Query(ctx context.Context, stmt ast.Stmt) (*resultset.ResultSet, error) {
	if create, ok := stmt.(*ast.CreateTable); ok && create.IsReplace && !b.SupportsCreateOrReplace {
		drop := &ast.DropTables{Tables: []*ast.Identifier{create.Name}, IfExists: true}
		res, err := b.Query(ctx, drop)
		if err != nil {
			return nil, err
		}
		if res.Kind == resultset.KindError {
			return res, nil
		}
		plain := *create
		plain.IsReplace = false
		stmt = &plain
	}

	text, err := b.Renderer.RenderStmt(stmt)
	if err != nil {
		return nil, err
	}
	return b.NativeQuery(ctx, text)
}

// NativeQuery executes raw statement text verbatim.
func (b *Base) NativeQuery(ctx context.Context, query string) (*resultset.ResultSet, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty statement")
	}

	if !returnsRows(query) {
		if _, err := b.DB.ExecContext(ctx, query); err != nil {
			return resultset.Error(err.Error()), nil
		}
		return resultset.OK(), nil
	}

	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return resultset.Error(err.Error()), nil
	}
	defer func() { _ = rows.Close() }()

	return ScanRows(rows)
}

// returnsRows classifies a statement by its leading keyword.
func returnsRows(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN", "VALUES":
		return true
	}
	return false
}

// ScanRows drains sql.Rows into a canonical table result. Byte slices are
// converted to strings for readability.
func ScanRows(rows *sql.Rows) (*resultset.ResultSet, error) {
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

func columnTypeOf(databaseType string) resultset.ColumnType {
	switch strings.ToUpper(databaseType) {
	case "TINYINT", "SMALLINT", "INT", "INTEGER", "BIGINT", "INT2", "INT4", "INT8", "SERIAL", "BIGSERIAL":
		return resultset.TypeInteger
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "NUMERIC", "DECIMAL":
		return resultset.TypeFloat
	case "DATE", "TIME", "DATETIME", "TIMESTAMP", "TIMESTAMPTZ":
		return resultset.TypeDateTime
	case "":
		// Some drivers report no type for expression columns; let the
		// values decide downstream.
		return ""
	default:
		return resultset.TypeText
	}
}
