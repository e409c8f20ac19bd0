package apitable

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastack-labs/fedsql/pkg/ast"
	"github.com/datastack-labs/fedsql/pkg/resultset"
)

// stubBackend scripts the remote call and records what it was invoked with.
type stubBackend struct {
	calls []map[string]any
	resp  *Response
	err   error
}

func (b *stubBackend) invoke(ctx context.Context, params map[string]any) (*Response, error) {
	b.calls = append(b.calls, params)
	if b.err != nil {
		return nil, b.err
	}
	return b.resp, nil
}

type stubFallback struct {
	calls  int
	frame  *resultset.ResultSet
	query  *ast.Select
	result *resultset.ResultSet
	err    error
}

func (f *stubFallback) Query(ctx context.Context, frame *resultset.ResultSet, query *ast.Select) (*resultset.ResultSet, error) {
	f.calls++
	f.frame = frame
	f.query = query
	return f.result, f.err
}

func priceFrame() *resultset.ResultSet {
	return resultset.Table(
		[]resultset.Column{
			{Name: "date", Type: resultset.TypeDateTime},
			{Name: "close", Type: resultset.TypeFloat},
		},
		[][]any{
			{time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), 130.0},
			{time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC), 125.5},
			{time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC), 126.4},
		},
	)
}

func priceDefinition(b *stubBackend) Definition {
	return Definition{
		Name: "stock_prices",
		Params: ParamsSchema{
			"symbol":     {Required: true, Type: "str", Description: "Ticker symbol."},
			"start_date": {Type: "date"},
			"end_date":   {Type: "date"},
			"limit":      {Type: "int"},
		},
		Response: []ResponseField{
			{Name: "date", Type: "datetime"},
			{Name: "close", Type: "float"},
			{Name: "symbol", Type: "str"},
		},
		Invoke:  b.invoke,
		DocsURL: "https://example.com/docs/stock_prices",
	}
}

func eq(column string, value any) *ast.BinaryOperation {
	return &ast.BinaryOperation{Op: ast.OpEq, Left: ast.Ident(column), Right: &ast.Constant{Value: value}}
}

func and(left, right ast.Expr) *ast.BinaryOperation {
	return &ast.BinaryOperation{Op: ast.OpAnd, Left: left, Right: right}
}

func selectAll(where ast.Expr) *ast.Select {
	return &ast.Select{Targets: []ast.Expr{&ast.Star{}}, From: ast.Ident("stock_prices"), Where: where}
}

func TestSelectPushdownAndPostProcess(t *testing.T) {
	backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
	table := New(priceDefinition(backend), nil, nil)

	query := selectAll(and(
		eq("symbol", "AAPL"),
		&ast.BinaryOperation{Op: ast.OpGte, Left: ast.Ident("date"), Right: &ast.Constant{Value: "2023-01-01"}},
	))
	query.OrderBy = []ast.OrderBy{{Field: ast.Ident("date"), Desc: true}}
	query.Limit = &ast.Constant{Value: 2}

	result, err := table.Select(context.Background(), query)
	require.NoError(t, err)

	require.Len(t, backend.calls, 1)
	assert.Equal(t, map[string]any{
		"symbol":     "AAPL",
		"start_date": "2022-12-31",
		"limit":      2,
	}, backend.calls[0])

	// Sorted newest first, truncated, with the pushed constant re-attached.
	require.Len(t, result.Rows, 2)
	assert.Equal(t, time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC), result.Rows[0][0])
	symPos, ok := result.ColumnIndex("symbol")
	require.True(t, ok)
	assert.Equal(t, "AAPL", result.Rows[0][symPos])
	assert.Equal(t, "AAPL", result.Rows[1][symPos])
}

func TestTimeRangeWindows(t *testing.T) {
	tests := []struct {
		name string
		op   string
		want map[string]string
	}{
		{"strictly after", ast.OpGt, map[string]string{"start_date": "2023-05-01"}},
		{"strictly before", ast.OpLt, map[string]string{"end_date": "2023-05-01"}},
		{"on or after", ast.OpGte, map[string]string{"start_date": "2023-04-30"}},
		{"on or before", ast.OpLte, map[string]string{"end_date": "2023-05-02"}},
		{"equals widens both bounds", ast.OpEq, map[string]string{"start_date": "2023-04-30", "end_date": "2023-05-02"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
			table := New(priceDefinition(backend), nil, nil)

			query := selectAll(and(
				eq("symbol", "AAPL"),
				&ast.BinaryOperation{Op: tt.op, Left: ast.Ident("date"), Right: &ast.Constant{Value: "2023-05-01"}},
			))
			_, err := table.Select(context.Background(), query)
			require.NoError(t, err)

			require.Len(t, backend.calls, 1)
			params := backend.calls[0]
			for name, want := range tt.want {
				assert.Equal(t, want, params[name])
			}
			assert.NotContains(t, params, "date", "time conditions never forward the raw column")
		})
	}
}

func TestIntervalDirective(t *testing.T) {
	backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
	table := New(priceDefinition(backend), nil, nil)

	query := selectAll(and(
		and(eq("symbol", "AAPL"), eq("interval", "2d")),
		&ast.BinaryOperation{Op: ast.OpGte, Left: ast.Ident("date"), Right: &ast.Constant{Value: "2023-05-01"}},
	))
	_, err := table.Select(context.Background(), query)
	require.NoError(t, err)

	params := backend.calls[0]
	assert.Equal(t, "2023-04-29", params["start_date"])
	assert.NotContains(t, params, "interval", "directives are consumed, never forwarded")
}

func TestMissingRequiredParam(t *testing.T) {
	backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
	table := New(priceDefinition(backend), nil, nil)

	_, err := table.Select(context.Background(), selectAll(nil))

	var unsupported *UnsupportedQueryError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, []string{"symbol"}, unsupported.Missing)
	assert.Contains(t, err.Error(), "you must specify the following arguments in the WHERE statement: symbol")
	assert.Contains(t, err.Error(), "Docstring:")
	assert.Contains(t, err.Error(), "* symbol: str")
	assert.Contains(t, err.Error(), "* start_date (optional): date")
	assert.Contains(t, err.Error(), "For more information check https://example.com/docs/stock_prices")
	assert.Empty(t, backend.calls, "the remote function is never invoked")
}

func TestDisjunctionRejected(t *testing.T) {
	backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
	table := New(priceDefinition(backend), nil, nil)

	query := selectAll(&ast.BinaryOperation{
		Op:    ast.OpOr,
		Left:  eq("symbol", "AAPL"),
		Right: eq("symbol", "MSFT"),
	})
	_, err := table.Select(context.Background(), query)

	var unsupported *UnsupportedQueryError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, err.Error(), "OR is not supported")
	assert.Empty(t, backend.calls)
}

func TestStrictFilterKeepsUnknownEqualityLocal(t *testing.T) {
	frame := priceFrame()
	frame.SetConstant("venue", "nyse")
	frame.Rows[1][2] = "nasdaq"
	backend := &stubBackend{resp: &Response{Frame: frame}}
	table := New(priceDefinition(backend), nil, nil)

	query := selectAll(and(
		and(eq("symbol", "AAPL"), eq("strict_filter", true)),
		eq("venue", "nyse"),
	))
	result, err := table.Select(context.Background(), query)
	require.NoError(t, err)

	assert.NotContains(t, backend.calls[0], "venue", "non-parameter equality stays local under strict_filter")
	require.Len(t, result.Rows, 2)
	for _, row := range result.Rows {
		assert.Equal(t, "nyse", row[2])
	}
}

func TestLooseFilterForwardsUnknownEquality(t *testing.T) {
	backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
	table := New(priceDefinition(backend), nil, nil)

	query := selectAll(and(eq("symbol", "AAPL"), eq("venue", "nyse")))
	result, err := table.Select(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, "nyse", backend.calls[0]["venue"])
	pos, ok := result.ColumnIndex("venue")
	require.True(t, ok)
	assert.Equal(t, "nyse", result.Rows[0][pos])
}

func TestLocalFilterOnAbsentColumnSkipped(t *testing.T) {
	backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
	table := New(priceDefinition(backend), nil, nil)

	query := selectAll(and(
		and(eq("symbol", "AAPL"), eq("strict_filter", true)),
		&ast.BinaryOperation{Op: ast.OpGt, Left: ast.Ident("volume"), Right: &ast.Constant{Value: 1000}},
	))
	result, err := table.Select(context.Background(), query)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 3, "a filter on a column the frame lacks is ignored")
}

func TestLocalFilterOnTimeColumn(t *testing.T) {
	// "updated" is temporal but has no start_updated parameter, so under
	// strict_filter the equality must be applied to the fetched frame.
	backend := &stubBackend{resp: &Response{Frame: resultset.Table(
		[]resultset.Column{
			{Name: "close", Type: resultset.TypeFloat},
			{Name: "updated", Type: resultset.TypeDateTime},
		},
		[][]any{
			{130.0, time.Date(2023, 5, 1, 0, 0, 0, 0, time.Local)},
			{134.0, time.Date(2023, 5, 2, 0, 0, 0, 0, time.Local)},
		},
	)}}
	def := priceDefinition(backend)
	def.Response = append(def.Response, ResponseField{Name: "updated", Type: "datetime"})
	table := New(def, nil, nil)

	query := selectAll(and(
		and(eq("symbol", "AAPL"), eq("strict_filter", true)),
		eq("updated", "2023-05-02"),
	))
	result, err := table.Select(context.Background(), query)
	require.NoError(t, err)

	assert.NotContains(t, backend.calls[0], "updated")
	require.Len(t, result.Rows, 1)
	assert.Equal(t, 134.0, result.Rows[0][0])
}

func TestAggregateDelegatesToFallback(t *testing.T) {
	backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
	fallback := &stubFallback{
		result: resultset.Table([]resultset.Column{{Name: "avg_close"}}, [][]any{{127.3}}),
	}
	table := New(priceDefinition(backend), fallback, nil)

	query := &ast.Select{
		Targets: []ast.Expr{&ast.Function{Name: "avg", Args: []ast.Expr{ast.Ident("close")}, Alias: "avg_close"}},
		From:    ast.Ident("stock_prices"),
		Where:   eq("symbol", "AAPL"),
	}
	result, err := table.Select(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, 1, fallback.calls, "the embedded engine is consulted exactly once")
	assert.Same(t, fallback.result, result, "the fallback result is returned verbatim")
	assert.Same(t, query, fallback.query)
}

func TestAggregateOverUnknownColumn(t *testing.T) {
	backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
	fallback := &stubFallback{}
	table := New(priceDefinition(backend), fallback, nil)

	query := &ast.Select{
		Targets: []ast.Expr{&ast.Function{Name: "avg", Args: []ast.Expr{ast.Ident("volume")}}},
		From:    ast.Ident("stock_prices"),
		Where:   eq("symbol", "AAPL"),
	}
	_, err := table.Select(context.Background(), query)

	var unsupported *UnsupportedQueryError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, err.Error(), `unknown column "volume" in field list`)
	assert.Zero(t, fallback.calls)
}

func TestFallbackNotConfigured(t *testing.T) {
	backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
	table := New(priceDefinition(backend), nil, nil)

	query := &ast.Select{
		Targets: []ast.Expr{&ast.Function{Name: "count", Star: true}},
		From:    ast.Ident("stock_prices"),
		Where:   eq("symbol", "AAPL"),
	}
	_, err := table.Select(context.Background(), query)

	var unsupported *UnsupportedQueryError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, err.Error(), "embedded engine")
}

func TestUnknownProjectionColumn(t *testing.T) {
	backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
	table := New(priceDefinition(backend), nil, nil)

	query := &ast.Select{
		Targets: []ast.Expr{ast.Ident("volume")},
		From:    ast.Ident("stock_prices"),
		Where:   eq("symbol", "AAPL"),
	}
	_, err := table.Select(context.Background(), query)
	assert.ErrorContains(t, err, `unknown column "volume" in field list`)
}

func TestProjection(t *testing.T) {
	backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
	table := New(priceDefinition(backend), nil, nil)

	query := &ast.Select{
		Targets: []ast.Expr{ast.Ident("close")},
		From:    ast.Ident("stock_prices"),
		Where:   eq("symbol", "AAPL"),
	}
	result, err := table.Select(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, []string{"close"}, result.ColumnNames())
	assert.Equal(t, 130.0, result.Rows[0][0])
}

func TestEmptyAfterLimit(t *testing.T) {
	empty := resultset.Table(priceFrame().Columns, nil)
	backend := &stubBackend{resp: &Response{Frame: empty}}
	table := New(priceDefinition(backend), nil, nil)

	query := selectAll(eq("symbol", "AAPL"))
	query.Limit = &ast.Constant{Value: 10}

	_, err := table.Select(context.Background(), query)
	var shape *DataShapeError
	require.ErrorAs(t, err, &shape)
	assert.Contains(t, err.Error(), "no rows")
}

func TestNilResponseFrame(t *testing.T) {
	backend := &stubBackend{resp: &Response{}}
	table := New(priceDefinition(backend), nil, nil)

	_, err := table.Select(context.Background(), selectAll(eq("symbol", "AAPL")))
	var shape *DataShapeError
	require.ErrorAs(t, err, &shape)
	assert.Contains(t, err.Error(), "returned no data")
}

func TestTimeIndexMaterialized(t *testing.T) {
	backend := &stubBackend{resp: &Response{
		Frame: resultset.Table([]resultset.Column{{Name: "close"}}, [][]any{{130.0}, {125.5}}),
		TimeIndex: []time.Time{
			time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC),
		},
	}}
	table := New(priceDefinition(backend), nil, nil)

	result, err := table.Select(context.Background(), selectAll(eq("symbol", "AAPL")))
	require.NoError(t, err)
	assert.Equal(t, "date", result.Columns[0].Name)
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), result.Rows[0][0])
	assert.Equal(t, 130.0, result.Rows[0][1])
}

func TestRemoteErrorRemediation(t *testing.T) {
	tests := []struct {
		name     string
		remote   error
		contains string
	}{
		{
			name:     "missing extension",
			remote:   errors.New("Table not found: obb.equity.price"),
			contains: "extension may need to be installed",
		},
		{
			name:     "missing credential",
			remote:   errors.New("Missing credential fmp_api_key"),
			contains: "Configure access credentials",
		},
		{
			name:     "anything else gets the docstring",
			remote:   errors.New("rate limit exceeded"),
			contains: "Docstring:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{err: tt.remote}
			table := New(priceDefinition(backend), nil, nil)

			_, err := table.Select(context.Background(), selectAll(eq("symbol", "AAPL")))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.remote)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestProviderInjected(t *testing.T) {
	backend := &stubBackend{resp: &Response{Frame: priceFrame()}}
	def := priceDefinition(backend)
	def.Provider = "fmp"
	table := New(def, nil, nil)

	_, err := table.Select(context.Background(), selectAll(eq("symbol", "AAPL")))
	require.NoError(t, err)
	assert.Equal(t, "fmp", backend.calls[0]["provider"])
}
