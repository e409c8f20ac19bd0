// Package datanode is the backend adapter: it owns one connector handle and
// exposes statement dispatch, table lifecycle management, and metrics-wrapped
// execution over it. A DataNode holds no query-level state between calls;
// every operation either fully succeeds or fully fails from the caller's
// perspective.
package datanode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/datastack-labs/fedsql/internal/metrics"
	"github.com/datastack-labs/fedsql/pkg/ast"
	"github.com/datastack-labs/fedsql/pkg/handler"
	"github.com/datastack-labs/fedsql/pkg/resultset"
)

// TableDescriptor describes one table reported by a backend.
type TableDescriptor struct {
	Name   string
	Kind   string
	Schema string
}

// ColumnInfo is the column metadata reported alongside query rows.
type ColumnInfo struct {
	Name string
	Type resultset.ColumnType
}

// DataNode adapts one backend connector to the uniform tabular interface.
// Created at data-source registration and kept for the lifetime of that
// data source.
type DataNode struct {
	handler handler.Handler
	name    string
	kind    string
	logger  *slog.Logger
}

// New builds a DataNode around a connected handler. name is the registered
// data source name; the backend kind is taken from the handler.
func New(h handler.Handler, name string, logger *slog.Logger) *DataNode {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DataNode{
		handler: h,
		name:    name,
		kind:    h.Kind(),
		logger:  logger,
	}
}

// Name returns the registered data source name.
func (n *DataNode) Name() string { return n.name }

// Kind returns the backend kind.
func (n *DataNode) Kind() string { return n.kind }

// Close releases the underlying connector.
func (n *DataNode) Close() error { return n.handler.Close() }

// GetTables asks the connector for its table list. Anything other than a
// table result is fatal and carries the connector's error message.
func (n *DataNode) GetTables(ctx context.Context) ([]TableDescriptor, error) {
	res, err := n.handler.GetTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't get tables: %w", err)
	}
	if res.Kind != resultset.KindTable {
		return nil, fmt.Errorf("can't get tables: %s", res.ErrorMessage)
	}

	tables := make([]TableDescriptor, 0, len(res.Rows))
	for _, row := range res.Rows {
		tables = append(tables, TableDescriptor{
			Name:   cellString(res, row, "table_name"),
			Kind:   cellString(res, row, "table_type"),
			Schema: cellString(res, row, "table_schema"),
		})
	}
	return tables, nil
}

// DropTable drops the named table on the backend.
func (n *DataNode) DropTable(ctx context.Context, name *ast.Identifier, ifExists bool) error {
	res, err := n.dispatch(ctx, &ast.DropTables{Tables: []*ast.Identifier{name}, IfExists: ifExists})
	if err != nil {
		return n.wrapConnectorErr(err)
	}
	if res.Kind == resultset.KindError {
		return &ResultError{Source: n.name, Message: res.ErrorMessage}
	}
	return nil
}

// CreateTable creates and/or populates a table from a result set.
//
// isCreate issues a create-table statement with column types inferred from
// the data; isReplace first drops any existing table and forces isCreate.
// With both false the rows are just inserted into an existing table. Values
// are coerced to the inferred storage type of their column on a best-effort
// basis: a value that will not coerce is inserted as-is rather than failing
// the row. An empty result set issues no insert at all.
func (n *DataNode) CreateTable(ctx context.Context, name *ast.Identifier, rs *resultset.ResultSet, isReplace, isCreate bool) error {
	// Inferred once per column and reused for every row below.
	types := n.storageTypes(rs)

	columns := make([]ast.TableColumn, len(rs.Columns))
	for i, col := range rs.Columns {
		columns[i] = ast.TableColumn{Name: col.Name, Type: types[i]}
	}

	if isReplace {
		if err := n.DropTable(ctx, name, true); err != nil {
			return err
		}
		isCreate = true
	}

	if isCreate {
		res, err := n.dispatch(ctx, &ast.CreateTable{Name: name, Columns: columns, IsReplace: true})
		if err != nil {
			return n.wrapConnectorErr(err)
		}
		if res.Kind == resultset.KindError {
			return &ResultError{Source: n.name, Message: res.ErrorMessage}
		}
	}

	insertColumns := make([]*ast.Identifier, len(rs.Columns))
	for i, col := range rs.Columns {
		insertColumns[i] = ast.Ident(col.Name)
	}

	values := make([][]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		coerced := make([]any, len(row))
		for i, v := range row {
			c := resultset.Coerce(v, types[i])
			if !c.Coerced {
				n.logger.Debug("keeping uncoerced value",
					"column", rs.Columns[i].Name, "type", types[i])
			}
			coerced[i] = c.Value
		}
		values = append(values, coerced)
	}

	if len(values) == 0 {
		// Nothing to insert.
		return nil
	}

	res, err := n.dispatch(ctx, &ast.Insert{Table: name, Columns: insertColumns, Values: values})
	if err != nil {
		return n.wrapConnectorErr(err)
	}
	if res.Kind == resultset.KindError {
		return &ResultError{Source: n.name, Message: res.ErrorMessage}
	}
	return nil
}

// Query dispatches a structured statement and returns rows with column
// metadata.
func (n *DataNode) Query(ctx context.Context, stmt ast.Stmt) ([][]any, []ColumnInfo, error) {
	return n.run(ctx, stmt, "")
}

// QueryNative dispatches raw statement text and returns rows with column
// metadata.
func (n *DataNode) QueryNative(ctx context.Context, query string) ([][]any, []ColumnInfo, error) {
	return n.run(ctx, nil, query)
}

func (n *DataNode) run(ctx context.Context, stmt ast.Stmt, native string) ([][]any, []ColumnInfo, error) {
	queryID := uuid.NewString()
	n.logger.Debug("dispatching statement", "query_id", queryID, "source", n.name)

	var res *resultset.ResultSet
	var err error
	if stmt != nil {
		res, err = n.dispatch(ctx, stmt)
	} else {
		res, err = n.dispatchNative(ctx, native)
	}
	if err != nil {
		return nil, nil, n.wrapConnectorErr(err)
	}

	switch res.Kind {
	case resultset.KindError:
		return nil, nil, &ResultError{Source: n.name, Message: res.ErrorMessage}
	case resultset.KindOK:
		return [][]any{}, []ColumnInfo{}, nil
	}

	// One consistent null representation regardless of the connector's
	// numeric library. Misaligned rows are logged inside, never fatal.
	res.NormalizeNulls(n.logger.With("query_id", queryID))

	inferred := res.InferColumnTypes()
	columns := make([]ColumnInfo, len(res.Columns))
	for i, col := range res.Columns {
		columnType := col.Type
		if columnType == "" {
			columnType = inferred[i]
		}
		columns[i] = ColumnInfo{Name: col.Name, Type: columnType}
	}
	return res.Rows, columns, nil
}

// dispatch times a structured statement call. Latency is recorded only on
// the success path; failures propagate before any observation is made.
func (n *DataNode) dispatch(ctx context.Context, stmt ast.Stmt) (*resultset.ResultSet, error) {
	start := time.Now()
	res, err := n.handler.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	metrics.ObserveQuery(n.kind, res.Kind, time.Since(start))
	return res, nil
}

func (n *DataNode) dispatchNative(ctx context.Context, query string) (*resultset.ResultSet, error) {
	start := time.Now()
	res, err := n.handler.NativeQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	metrics.ObserveQuery(n.kind, res.Kind, time.Since(start))
	return res, nil
}

// wrapConnectorErr attaches the backend identity to a connector failure.
// An empty message falls back to the error's type name.
func (n *DataNode) wrapConnectorErr(err error) error {
	if _, ok := err.(*ConnectorError); ok {
		return err
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = fmt.Sprintf("%T", err)
	}
	return &ConnectorError{Kind: n.kind, Name: n.name, Message: msg, Err: err}
}

// storageTypes maps each column onto its storage type: integer-like values
// become Integer, other numerics Float, everything else Text. A type the
// connector already declared wins over inspection.
func (n *DataNode) storageTypes(rs *resultset.ResultSet) []resultset.ColumnType {
	inferred := rs.InferColumnTypes()
	types := make([]resultset.ColumnType, len(rs.Columns))
	for i, col := range rs.Columns {
		t := col.Type
		if t == "" {
			t = inferred[i]
		}
		if t != resultset.TypeInteger && t != resultset.TypeFloat {
			t = resultset.TypeText
		}
		types[i] = t
	}
	return types
}

func cellString(rs *resultset.ResultSet, row []any, column string) string {
	pos, ok := rs.ColumnIndex(column)
	if !ok || pos >= len(row) || row[pos] == nil {
		return ""
	}
	return fmt.Sprintf("%v", row[pos])
}
