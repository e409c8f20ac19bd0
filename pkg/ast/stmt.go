package ast

import "github.com/datastack-labs/fedsql/pkg/resultset"

// ---------- Statement Types ----------

// Select represents a SELECT statement addressed at a single table.
// Cross-backend joins are out of scope, so From is a plain identifier.
type Select struct {
	Targets []Expr
	From    *Identifier
	Where   Expr
	GroupBy []*Identifier
	OrderBy []OrderBy
	Limit   *Constant
	Offset  *Constant
}

func (*Select) node()     {}
func (*Select) stmtNode() {}

// LimitValue returns the limit as an int, or -1 when no limit is set or the
// literal is not integral.
func (s *Select) LimitValue() int {
	if s.Limit == nil {
		return -1
	}
	switch n := s.Limit.Value.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return -1
}

// Insert represents a bulk INSERT of literal value tuples.
type Insert struct {
	Table   *Identifier
	Columns []*Identifier
	Values  [][]any
}

func (*Insert) node()     {}
func (*Insert) stmtNode() {}

// TableColumn declares one column of a CREATE TABLE statement. Types come
// from the canonical closed set; schemaless backends infer them from data.
type TableColumn struct {
	Name string
	Type resultset.ColumnType
}

// CreateTable represents a CREATE [OR REPLACE] TABLE statement.
type CreateTable struct {
	Name      *Identifier
	Columns   []TableColumn
	IsReplace bool
}

func (*CreateTable) node()     {}
func (*CreateTable) stmtNode() {}

// DropTables represents DROP TABLE [IF EXISTS] over one or more tables.
type DropTables struct {
	Tables   []*Identifier
	IfExists bool
}

func (*DropTables) node()     {}
func (*DropTables) stmtNode() {}

// NativeQuery carries raw statement text to be passed to a connector
// verbatim, bypassing the structured tree.
type NativeQuery struct {
	Query string
}

func (*NativeQuery) node()     {}
func (*NativeQuery) stmtNode() {}
