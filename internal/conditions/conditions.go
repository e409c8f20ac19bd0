// Package conditions flattens a filter-expression tree into comparison
// triples that pushdown and local filtering can consume without walking
// the tree themselves.
package conditions

import "github.com/datastack-labs/fedsql/pkg/ast"

// Condition is one flattened comparison: operator, column name, literal.
// Value is nil when the right operand is absent or a null literal.
type Condition struct {
	Op     string
	Column string
	Value  any
}

// Disjunction is the sentinel extraction result for trees containing OR.
// Callers that cannot handle disjunction must treat it as a hard failure.
var Disjunction = Condition{Op: ast.OpOr}

// Extract flattens a conjunction-only filter tree into comparison triples
// in depth-first, left-to-right order. A disjunction anywhere in the tree
// collapses the whole result to the single Disjunction sentinel: OR is not
// partially supported, it is unsupported. A nil tree extracts to nothing.
// Extract has no side effects.
func Extract(filter ast.Expr) []Condition {
	if filter == nil {
		return nil
	}
	conditions, ok := walk(filter, nil)
	if !ok {
		return []Condition{Disjunction}
	}
	return conditions
}

// walk returns ok=false as soon as it sees OR.
func walk(e ast.Expr, acc []Condition) ([]Condition, bool) {
	op, ok := e.(*ast.BinaryOperation)
	if !ok {
		return acc, true
	}
	switch op.Op {
	case ast.OpOr:
		return nil, false
	case ast.OpAnd:
		acc, ok = walk(op.Left, acc)
		if !ok {
			return nil, false
		}
		return walk(op.Right, acc)
	default:
		return append(acc, leaf(op)), true
	}
}

func leaf(op *ast.BinaryOperation) Condition {
	cond := Condition{Op: op.Op}
	if ident, ok := op.Left.(*ast.Identifier); ok {
		cond.Column = ident.Name()
	}
	if constant, ok := op.Right.(*ast.Constant); ok {
		cond.Value = constant.Value
	}
	return cond
}
