package ast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastack-labs/fedsql/pkg/resultset"
)

func TestRenderSelect(t *testing.T) {
	r := &Renderer{}

	tests := []struct {
		name string
		stmt *Select
		want string
	}{
		{
			name: "bare select",
			stmt: &Select{From: Ident("prices")},
			want: "SELECT * FROM `prices`",
		},
		{
			name: "targets where order limit",
			stmt: &Select{
				Targets: []Expr{Ident("symbol"), Ident("close")},
				From:    Ident("prices"),
				Where: &BinaryOperation{
					Op:    OpAnd,
					Left:  &BinaryOperation{Op: OpEq, Left: Ident("symbol"), Right: &Constant{Value: "AAPL"}},
					Right: &BinaryOperation{Op: OpGt, Left: Ident("close"), Right: &Constant{Value: 100}},
				},
				OrderBy: []OrderBy{{Field: Ident("close"), Desc: true}},
				Limit:   &Constant{Value: 5},
			},
			want: "SELECT `symbol`, `close` FROM `prices` WHERE (`symbol` = 'AAPL' AND `close` > 100) ORDER BY `close` DESC LIMIT 5",
		},
		{
			name: "aggregate with alias and group by",
			stmt: &Select{
				Targets: []Expr{
					Ident("symbol"),
					&Function{Name: "avg", Args: []Expr{Ident("close")}, Alias: "avg_close"},
				},
				From:    Ident("prices"),
				GroupBy: []*Identifier{Ident("symbol")},
			},
			want: "SELECT `symbol`, AVG(`close`) AS `avg_close` FROM `prices` GROUP BY `symbol`",
		},
		{
			name: "qualified identifier with alias",
			stmt: &Select{
				Targets: []Expr{&Identifier{Parts: []string{"t", "close"}, Alias: "c"}},
				From:    Ident("t"),
			},
			want: "SELECT `t`.`close` AS `c` FROM `t`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.RenderSelect(tt.stmt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderStmt(t *testing.T) {
	r := &Renderer{}

	insert, err := r.RenderStmt(&Insert{
		Table:   Ident("prices"),
		Columns: []*Identifier{Ident("symbol"), Ident("close"), Ident("traded_at")},
		Values: [][]any{
			{"o'hare", 1.5, time.Date(2023, 5, 1, 10, 30, 0, 0, time.UTC)},
			{nil, 2, true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO `prices` (`symbol`, `close`, `traded_at`) VALUES ('o''hare', 1.5, '2023-05-01 10:30:00'), (NULL, 2, TRUE)",
		insert)

	create, err := r.RenderStmt(&CreateTable{
		Name: Ident("prices"),
		Columns: []TableColumn{
			{Name: "symbol", Type: resultset.TypeText},
			{Name: "close", Type: resultset.TypeFloat},
		},
		IsReplace: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "CREATE OR REPLACE TABLE `prices` (`symbol` TEXT, `close` DOUBLE)", create)

	drop, err := r.RenderStmt(&DropTables{Tables: []*Identifier{Ident("prices")}, IfExists: true})
	require.NoError(t, err)
	assert.Equal(t, "DROP TABLE IF EXISTS `prices`", drop)

	native, err := r.RenderStmt(&NativeQuery{Query: "PRAGMA table_info(prices)"})
	require.NoError(t, err)
	assert.Equal(t, "PRAGMA table_info(prices)", native)
}

func TestRendererDialectOverrides(t *testing.T) {
	r := &Renderer{
		IdentQuote: `"`,
		TypeNames:  map[resultset.ColumnType]string{resultset.TypeFloat: "REAL"},
	}

	got, err := r.RenderStmt(&CreateTable{
		Name:    Ident("t"),
		Columns: []TableColumn{{Name: "x", Type: resultset.TypeFloat}, {Name: "y", Type: resultset.TypeInteger}},
	})
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE "t" ("x" REAL, "y" INTEGER)`, got)
}
