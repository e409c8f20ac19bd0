// Package resultset defines the canonical tabular result exchanged between
// backend adapters, API table translators, and the embedded fallback engine.
// Every backend, whatever shape its native results take, is normalized into
// a ResultSet before anything downstream sees it.
package resultset

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// Kind discriminates the three shapes a backend response can take.
type Kind string

// Kind constants for backend response shapes.
const (
	// KindTable carries columns and rows.
	KindTable Kind = "table"
	// KindOK is a successful statement with no result data.
	KindOK Kind = "ok"
	// KindError carries an error message from the backend.
	KindError Kind = "error"
)

// ColumnType is the closed set of types a column can be reported as.
// Types are inferred from runtime values, never declared up front.
type ColumnType string

// ColumnType constants.
const (
	TypeInteger  ColumnType = "integer"
	TypeFloat    ColumnType = "float"
	TypeText     ColumnType = "text"
	TypeDateTime ColumnType = "datetime"
)

// Column describes one column of a result set.
type Column struct {
	Name string
	Type ColumnType
}

// ResultSet is the canonical tabular result.
//
// Invariants: every row has exactly len(Columns) values; Rows is empty
// unless Kind is KindTable; ErrorMessage is set iff Kind is KindError.
type ResultSet struct {
	Kind         Kind
	Columns      []Column
	Rows         [][]any
	ErrorMessage string
}

// Table builds a KindTable result set from columns and rows.
func Table(columns []Column, rows [][]any) *ResultSet {
	return &ResultSet{Kind: KindTable, Columns: columns, Rows: rows}
}

// OK builds a KindOK result set.
func OK() *ResultSet {
	return &ResultSet{Kind: KindOK}
}

// Error builds a KindError result set carrying the backend's message.
func Error(message string) *ResultSet {
	return &ResultSet{Kind: KindError, ErrorMessage: message}
}

// Validate checks the structural invariants of the result set.
func (rs *ResultSet) Validate() error {
	if rs.Kind != KindTable && len(rs.Rows) > 0 {
		return fmt.Errorf("result set of kind %q must not carry rows", rs.Kind)
	}
	for i, row := range rs.Rows {
		if len(row) != len(rs.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(rs.Columns))
		}
	}
	return nil
}

// ColumnNames returns the column names in declared order.
func (rs *ResultSet) ColumnNames() []string {
	names := make([]string, len(rs.Columns))
	for i, col := range rs.Columns {
		names[i] = col.Name
	}
	return names
}

// ColumnIndex returns the position of the named column. Lookup is
// case-insensitive, matching SQL identifier semantics.
func (rs *ResultSet) ColumnIndex(name string) (int, bool) {
	for i, col := range rs.Columns {
		if strings.EqualFold(col.Name, name) {
			return i, true
		}
	}
	return 0, false
}

// HasColumn reports whether the named column exists.
func (rs *ResultSet) HasColumn(name string) bool {
	_, ok := rs.ColumnIndex(name)
	return ok
}

// NormalizeNulls replaces not-a-number floating sentinels with nil so every
// backend's missing values look the same downstream. Rows that do not line
// up with the declared columns are logged and left untouched rather than
// failing the whole query.
func (rs *ResultSet) NormalizeNulls(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for i, row := range rs.Rows {
		if len(row) != len(rs.Columns) {
			logger.Error("skipping null normalization for misaligned row",
				"row", i, "values", len(row), "columns", len(rs.Columns))
			continue
		}
		for j, v := range row {
			switch f := v.(type) {
			case float64:
				if math.IsNaN(f) {
					row[j] = nil
				}
			case float32:
				if math.IsNaN(float64(f)) {
					row[j] = nil
				}
			}
		}
	}
}

// InferType maps a runtime value onto the closed column type set.
func InferType(v any) ColumnType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case float32, float64:
		return TypeFloat
	case time.Time, *time.Time:
		return TypeDateTime
	default:
		return TypeText
	}
}

// InferColumnTypes scans each column top to bottom and assigns the type of
// the first non-nil value. Columns that are entirely null come back as
// TypeText. Column declarations are not modified; the caller decides what
// to do with the inference.
func (rs *ResultSet) InferColumnTypes() []ColumnType {
	types := make([]ColumnType, len(rs.Columns))
	for i := range rs.Columns {
		types[i] = TypeText
		for _, row := range rs.Rows {
			if i < len(row) && row[i] != nil {
				types[i] = InferType(row[i])
				break
			}
		}
	}
	return types
}
