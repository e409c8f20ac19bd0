package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datastack-labs/fedsql/pkg/ast"
)

func cmp(op, column string, value any) *ast.BinaryOperation {
	return &ast.BinaryOperation{Op: op, Left: ast.Ident(column), Right: &ast.Constant{Value: value}}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		filter ast.Expr
		want   []Condition
	}{
		{
			name:   "nil filter",
			filter: nil,
			want:   nil,
		},
		{
			name:   "single comparison",
			filter: cmp(ast.OpEq, "symbol", "AAPL"),
			want:   []Condition{{Op: ast.OpEq, Column: "symbol", Value: "AAPL"}},
		},
		{
			name: "nested conjunctions flatten depth-first",
			filter: &ast.BinaryOperation{
				Op: ast.OpAnd,
				Left: &ast.BinaryOperation{
					Op:    ast.OpAnd,
					Left:  cmp(ast.OpEq, "symbol", "AAPL"),
					Right: cmp(ast.OpGt, "date", "2023-01-01"),
				},
				Right: cmp(ast.OpLte, "close", 150.0),
			},
			want: []Condition{
				{Op: ast.OpEq, Column: "symbol", Value: "AAPL"},
				{Op: ast.OpGt, Column: "date", Value: "2023-01-01"},
				{Op: ast.OpLte, Column: "close", Value: 150.0},
			},
		},
		{
			name: "right-leaning conjunction keeps left-to-right order",
			filter: &ast.BinaryOperation{
				Op:   ast.OpAnd,
				Left: cmp(ast.OpNe, "a", 1),
				Right: &ast.BinaryOperation{
					Op:    ast.OpAnd,
					Left:  cmp(ast.OpGte, "b", 2),
					Right: cmp(ast.OpLt, "c", 3),
				},
			},
			want: []Condition{
				{Op: ast.OpNe, Column: "a", Value: 1},
				{Op: ast.OpGte, Column: "b", Value: 2},
				{Op: ast.OpLt, Column: "c", Value: 3},
			},
		},
		{
			name:   "top-level disjunction",
			filter: &ast.BinaryOperation{Op: ast.OpOr, Left: cmp(ast.OpEq, "a", 1), Right: cmp(ast.OpEq, "b", 2)},
			want:   []Condition{Disjunction},
		},
		{
			name: "disjunction buried under conjunctions",
			filter: &ast.BinaryOperation{
				Op:   ast.OpAnd,
				Left: cmp(ast.OpEq, "symbol", "AAPL"),
				Right: &ast.BinaryOperation{
					Op:    ast.OpOr,
					Left:  cmp(ast.OpEq, "a", 1),
					Right: cmp(ast.OpEq, "b", 2),
				},
			},
			want: []Condition{Disjunction},
		},
		{
			name:   "null literal extracts nil value",
			filter: cmp(ast.OpEq, "note", nil),
			want:   []Condition{{Op: ast.OpEq, Column: "note", Value: nil}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.filter))
		})
	}
}

func TestExtractDoesNotMutateTree(t *testing.T) {
	filter := &ast.BinaryOperation{
		Op:    ast.OpAnd,
		Left:  cmp(ast.OpEq, "symbol", "AAPL"),
		Right: cmp(ast.OpGt, "close", 100),
	}

	first := Extract(filter)
	second := Extract(filter)
	assert.Equal(t, first, second)
}
