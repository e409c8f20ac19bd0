package ast

import "strings"

// ---------- Expression Types ----------

// Identifier is a possibly-qualified name: column, table, or data source.
// Parts holds the qualification left to right, e.g. ["prices", "close"].
type Identifier struct {
	Parts []string
	Alias string
}

func (*Identifier) node()     {}
func (*Identifier) exprNode() {}

// Name returns the last (unqualified) part of the identifier.
func (i *Identifier) Name() string {
	if len(i.Parts) == 0 {
		return ""
	}
	return i.Parts[len(i.Parts)-1]
}

// String joins the parts with dots, without quoting.
func (i *Identifier) String() string {
	return strings.Join(i.Parts, ".")
}

// Ident builds an unqualified identifier.
func Ident(parts ...string) *Identifier {
	return &Identifier{Parts: parts}
}

// Constant is a literal value: string, integer, float, bool, or nil.
type Constant struct {
	Value any
}

func (*Constant) node()     {}
func (*Constant) exprNode() {}

// Star is the * target.
type Star struct{}

func (*Star) node()     {}
func (*Star) exprNode() {}

// Operator constants used in BinaryOperation. Comparison operators carry
// their SQL spelling; OpAnd and OpOr combine conditions.
const (
	OpEq  = "="
	OpNe  = "!="
	OpLt  = "<"
	OpGt  = ">"
	OpLte = "<="
	OpGte = ">="
	OpAnd = "and"
	OpOr  = "or"
)

// BinaryOperation applies Op to two operands. Filter trees are built from
// nested BinaryOperations with OpAnd/OpOr at the inner nodes and comparisons
// at the leaves.
type BinaryOperation struct {
	Op    string
	Left  Expr
	Right Expr
}

func (*BinaryOperation) node()     {}
func (*BinaryOperation) exprNode() {}

// Function is a function call target, e.g. AVG(price).
type Function struct {
	Name  string
	Args  []Expr
	Star  bool // COUNT(*)
	Alias string
}

func (*Function) node()     {}
func (*Function) exprNode() {}

// OrderBy is one ORDER BY item.
type OrderBy struct {
	Field *Identifier
	Desc  bool
}
