package ast

import (
	"fmt"
	"strings"
	"time"

	"github.com/datastack-labs/fedsql/pkg/resultset"
)

// Renderer turns statement trees back into SQL text. Connectors that speak
// a textual dialect configure quoting and type names to match their engine;
// the zero value renders MySQL-style backtick quoting, which is also what
// the embedded fallback expects to strip.
type Renderer struct {
	// IdentQuote wraps identifiers. Empty means backtick.
	IdentQuote string
	// TypeNames overrides the SQL type name used for a canonical column
	// type in CREATE TABLE. Missing entries fall back to defaults.
	TypeNames map[resultset.ColumnType]string
}

var defaultTypeNames = map[resultset.ColumnType]string{
	resultset.TypeInteger:  "INTEGER",
	resultset.TypeFloat:    "DOUBLE",
	resultset.TypeText:     "TEXT",
	resultset.TypeDateTime: "TIMESTAMP",
}

// RenderStmt renders any supported statement.
func (r *Renderer) RenderStmt(stmt Stmt) (string, error) {
	switch s := stmt.(type) {
	case *Select:
		return r.RenderSelect(s)
	case *Insert:
		return r.renderInsert(s)
	case *CreateTable:
		return r.renderCreateTable(s)
	case *DropTables:
		return r.renderDropTables(s)
	case *NativeQuery:
		return s.Query, nil
	default:
		return "", fmt.Errorf("cannot render statement of type %T", stmt)
	}
}

// RenderSelect renders a SELECT statement.
func (r *Renderer) RenderSelect(s *Select) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(s.Targets) == 0 {
		b.WriteString("*")
	}
	for i, target := range s.Targets {
		if i > 0 {
			b.WriteString(", ")
		}
		rendered, err := r.renderExpr(target)
		if err != nil {
			return "", err
		}
		b.WriteString(rendered)
	}
	if s.From != nil {
		b.WriteString(" FROM ")
		b.WriteString(r.renderIdent(s.From))
	}
	if s.Where != nil {
		cond, err := r.renderExpr(s.Where)
		if err != nil {
			return "", err
		}
		b.WriteString(" WHERE ")
		b.WriteString(cond)
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, g := range s.GroupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.renderIdent(g))
		}
	}
	if len(s.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.renderIdent(o.Field))
			if o.Desc {
				b.WriteString(" DESC")
			}
		}
	}
	if s.Limit != nil {
		b.WriteString(fmt.Sprintf(" LIMIT %v", s.Limit.Value))
	}
	if s.Offset != nil {
		b.WriteString(fmt.Sprintf(" OFFSET %v", s.Offset.Value))
	}
	return b.String(), nil
}

func (r *Renderer) renderInsert(s *Insert) (string, error) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(r.renderIdent(s.Table))
	if len(s.Columns) > 0 {
		b.WriteString(" (")
		for i, col := range s.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.renderIdent(col))
		}
		b.WriteString(")")
	}
	b.WriteString(" VALUES ")
	for i, row := range s.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, v := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(renderValue(v))
		}
		b.WriteString(")")
	}
	return b.String(), nil
}

func (r *Renderer) renderCreateTable(s *CreateTable) (string, error) {
	var b strings.Builder
	if s.IsReplace {
		b.WriteString("CREATE OR REPLACE TABLE ")
	} else {
		b.WriteString("CREATE TABLE ")
	}
	b.WriteString(r.renderIdent(s.Name))
	b.WriteString(" (")
	for i, col := range s.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.quote(col.Name))
		b.WriteString(" ")
		b.WriteString(r.typeName(col.Type))
	}
	b.WriteString(")")
	return b.String(), nil
}

func (r *Renderer) renderDropTables(s *DropTables) (string, error) {
	var b strings.Builder
	b.WriteString("DROP TABLE ")
	if s.IfExists {
		b.WriteString("IF EXISTS ")
	}
	for i, table := range s.Tables {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.renderIdent(table))
	}
	return b.String(), nil
}

func (r *Renderer) renderExpr(e Expr) (string, error) {
	switch x := e.(type) {
	case *Star:
		return "*", nil
	case *Identifier:
		rendered := r.renderIdent(x)
		if x.Alias != "" {
			rendered += " AS " + r.quote(x.Alias)
		}
		return rendered, nil
	case *Constant:
		return renderValue(x.Value), nil
	case *BinaryOperation:
		left, err := r.renderExpr(x.Left)
		if err != nil {
			return "", err
		}
		right, err := r.renderExpr(x.Right)
		if err != nil {
			return "", err
		}
		op := x.Op
		if op == OpAnd || op == OpOr {
			op = strings.ToUpper(op)
			return fmt.Sprintf("(%s %s %s)", left, op, right), nil
		}
		return fmt.Sprintf("%s %s %s", left, op, right), nil
	case *Function:
		var args string
		if x.Star {
			args = "*"
		} else {
			parts := make([]string, len(x.Args))
			for i, arg := range x.Args {
				rendered, err := r.renderExpr(arg)
				if err != nil {
					return "", err
				}
				parts[i] = rendered
			}
			args = strings.Join(parts, ", ")
		}
		rendered := fmt.Sprintf("%s(%s)", strings.ToUpper(x.Name), args)
		if x.Alias != "" {
			rendered += " AS " + r.quote(x.Alias)
		}
		return rendered, nil
	default:
		return "", fmt.Errorf("cannot render expression of type %T", e)
	}
}

func (r *Renderer) renderIdent(i *Identifier) string {
	parts := make([]string, len(i.Parts))
	for j, part := range i.Parts {
		parts[j] = r.quote(part)
	}
	return strings.Join(parts, ".")
}

func (r *Renderer) quote(name string) string {
	q := r.IdentQuote
	if q == "" {
		q = "`"
	}
	return q + name + q
}

func (r *Renderer) typeName(t resultset.ColumnType) string {
	if name, ok := r.TypeNames[t]; ok {
		return name
	}
	if name, ok := defaultTypeNames[t]; ok {
		return name
	}
	return defaultTypeNames[resultset.TypeText]
}

func renderValue(v any) string {
	switch n := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(n, "'", "''") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(n), "'", "''") + "'"
	case bool:
		if n {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return "'" + n.Format("2006-01-02 15:04:05") + "'"
	default:
		return fmt.Sprintf("%v", v)
	}
}
