// Package apitable translates SELECT statements into keyword parameters for
// remote function calls. Whatever part of the query the remote call cannot
// satisfy is finished locally, and whatever local post-processing cannot
// express is handed to the embedded relational fallback.
package apitable

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/datastack-labs/fedsql/internal/conditions"
	"github.com/datastack-labs/fedsql/pkg/ast"
	"github.com/datastack-labs/fedsql/pkg/resultset"
)

// Auxiliary directive names recognized as equality conditions and consumed
// before pushdown. They steer the translator and are never forwarded.
const (
	directiveStrictFilter = "strict_filter"
	directiveInterval     = "interval"
)

// Fallback finishes a query the translator cannot: it executes the original
// statement against the already-fetched frame.
type Fallback interface {
	Query(ctx context.Context, frame *resultset.ResultSet, query *ast.Select) (*resultset.ResultSet, error)
}

// Table translates queries against one virtual table backed by a remote
// function. Immutable after construction; concurrent Select calls share no
// mutable state.
type Table struct {
	def      Definition
	fallback Fallback
	logger   *slog.Logger

	required        []string
	responseColumns []string
}

// New builds a Table from a definition. The fallback may be nil, in which
// case queries needing it fail outright.
func New(def Definition, fallback Fallback, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	required := make([]string, 0)
	for name, spec := range def.Params {
		if spec.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	responseColumns := make([]string, len(def.Response))
	for i, field := range def.Response {
		responseColumns[i] = field.Name
	}

	return &Table{
		def:             def,
		fallback:        fallback,
		logger:          logger,
		required:        required,
		responseColumns: responseColumns,
	}
}

// Name returns the virtual table name.
func (t *Table) Name() string { return t.def.Name }

// Columns returns the declared response field names.
func (t *Table) Columns() []string { return append([]string(nil), t.responseColumns...) }

// Select runs a SELECT against the remote function: pushes down what the
// function's parameters can express, invokes it, finishes the rest locally,
// and falls back to the embedded engine for anything beyond that.
func (t *Table) Select(ctx context.Context, query *ast.Select) (*resultset.ResultSet, error) {
	conds := conditions.Extract(query.Where)
	if len(conds) == 1 && conds[0].Op == ast.OpOr {
		return nil, &UnsupportedQueryError{Reason: "OR is not supported", Docs: t.docstring()}
	}

	// Auxiliary directives ride in as equality conditions.
	argParams := map[string]any{}
	for _, cond := range conds {
		if cond.Op == ast.OpEq {
			argParams[cond.Column] = cond.Value
		}
	}
	strictFilter := boolValue(argParams[directiveStrictFilter])
	interval := parseInterval(stringValue(argParams[directiveInterval], "1d"))

	params := map[string]any{}
	if t.def.Provider != "" {
		params["provider"] = t.def.Provider
	}

	mandatorySet := make(map[string]bool, len(t.required))
	for _, name := range t.required {
		mandatorySet[name] = false
	}

	var localFilters []conditions.Condition
	var constantColumns []string
	constants := map[string]any{}

	for _, cond := range conds {
		if cond.Column == directiveStrictFilter || cond.Column == directiveInterval {
			continue
		}
		if _, ok := mandatorySet[cond.Column]; ok {
			mandatorySet[cond.Column] = true
		}

		switch {
		case t.timeParam(cond) && cond.Value != nil:
			date, err := parseLocalDate(cond.Value)
			if err != nil {
				return nil, &UnsupportedQueryError{Reason: err.Error(), Docs: t.docstring()}
			}
			// Calendar-day windowing: inclusive bounds shift one interval
			// outwards, and equality becomes "within one interval of this
			// instant". Approximate on purpose.
			start, end := "start_"+cond.Column, "end_"+cond.Column
			switch cond.Op {
			case ast.OpGt:
				params[start] = formatDay(date)
			case ast.OpLt:
				params[end] = formatDay(date)
			case ast.OpGte:
				params[start] = formatDay(date.Add(-interval))
			case ast.OpLte:
				params[end] = formatDay(date.Add(interval))
			case ast.OpEq:
				params[start] = formatDay(date.Add(-interval))
				params[end] = formatDay(date.Add(interval))
			default:
				localFilters = append(localFilters, cond)
			}

		case cond.Op == ast.OpEq && (t.isParam(cond.Column) || !strictFilter):
			params[cond.Column] = cond.Value
			// The remote call may not echo constant filter columns back;
			// stage them for re-attachment.
			if _, seen := constants[cond.Column]; !seen {
				constantColumns = append(constantColumns, cond.Column)
			}
			constants[cond.Column] = cond.Value

		default:
			localFilters = append(localFilters, cond)
		}
	}

	var missing []string
	for _, name := range t.required {
		if !mandatorySet[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &UnsupportedQueryError{Missing: missing, Docs: t.docstring()}
	}

	// LIMIT can't be phrased as an equality filter, so it gets its own
	// pushdown when the schema declares a limit parameter.
	limit := query.LimitValue()
	if limit >= 0 && t.isParam("limit") {
		params["limit"] = limit
	}

	resp, err := t.def.Invoke(ctx, params)
	if err != nil {
		return nil, t.wrapRemoteError(err)
	}

	frame, err := t.postProcess(resp, query, limit, constantColumns, constants, localFilters)
	if err != nil {
		return nil, err
	}

	return t.projectTargets(ctx, frame, query)
}

func (t *Table) postProcess(resp *Response, query *ast.Select, limit int, constantColumns []string, constants map[string]any, localFilters []conditions.Condition) (*resultset.ResultSet, error) {
	if resp == nil || resp.Frame == nil {
		return nil, &DataShapeError{Reason: "remote call returned no data", Docs: t.docstring()}
	}
	frame := resp.Frame

	if len(resp.TimeIndex) > 0 {
		frame = materializeTimeIndex(resp)
	}

	if len(query.OrderBy) > 0 {
		keys := make([]resultset.SortKey, len(query.OrderBy))
		for i, item := range query.OrderBy {
			keys[i] = resultset.SortKey{Column: item.Field.Name(), Desc: item.Desc}
		}
		if err := frame.SortBy(keys); err != nil {
			return nil, &UnsupportedQueryError{Reason: err.Error(), Docs: t.docstring()}
		}
	}

	// Remote calls are not trusted to honor the limit parameter.
	if limit >= 0 {
		frame.Limit(limit)
		if len(frame.Rows) == 0 {
			return nil, &DataShapeError{Reason: "query produced no rows after limiting", Docs: t.docstring()}
		}
	}

	for _, name := range constantColumns {
		frame.SetConstant(name, constants[name])
	}

	for _, cond := range localFilters {
		pos, ok := frame.ColumnIndex(cond.Column)
		if !ok {
			t.logger.Debug("skipping local filter on absent column", "column", cond.Column)
			continue
		}
		cond := cond
		frame.FilterRows(func(row []any) bool {
			return matchCondition(row[pos], cond.Op, cond.Value)
		})
	}

	return frame, nil
}

// projectTargets validates the SELECT list against the union of declared
// response fields and columns actually present. Bare identifiers it can
// project itself; function calls and anything more exotic go through the
// fallback engine with the fetched frame as the source table.
func (t *Table) projectTargets(ctx context.Context, frame *resultset.ResultSet, query *ast.Select) (*resultset.ResultSet, error) {
	known := map[string]bool{}
	for _, name := range t.responseColumns {
		known[strings.ToLower(name)] = true
	}
	for _, name := range frame.ColumnNames() {
		known[strings.ToLower(name)] = true
	}

	needFallback := false
	for _, target := range query.Targets {
		switch target := target.(type) {
		case *ast.Star:
			continue
		case *ast.Identifier:
			if !known[strings.ToLower(target.Name())] {
				return nil, &UnsupportedQueryError{
					Reason: fmt.Sprintf("unknown column %q in field list", target.Name()),
					Docs:   t.docstring(),
				}
			}
		case *ast.Function:
			for _, arg := range target.Args {
				if ident, ok := arg.(*ast.Identifier); ok && !known[strings.ToLower(ident.Name())] {
					return nil, &UnsupportedQueryError{
						Reason: fmt.Sprintf("unknown column %q in field list", ident.Name()),
						Docs:   t.docstring(),
					}
				}
			}
			needFallback = true
		default:
			// A window function or some other shape this translator has no
			// idea about. Defer the whole projection.
			return t.delegate(ctx, frame, query)
		}
	}

	if needFallback {
		return t.delegate(ctx, frame, query)
	}

	names := make([]string, 0, len(query.Targets))
	for _, target := range query.Targets {
		switch target := target.(type) {
		case *ast.Star:
			names = append(names, frame.ColumnNames()...)
		case *ast.Identifier:
			names = append(names, target.Name())
		}
	}
	if len(names) == 0 {
		return frame, nil
	}

	projected, err := frame.Project(names)
	if err != nil {
		// A validated target the frame still can't serve, e.g. a declared
		// response field the remote call never produced.
		return t.delegate(ctx, frame, query)
	}
	return projected, nil
}

func (t *Table) delegate(ctx context.Context, frame *resultset.ResultSet, query *ast.Select) (*resultset.ResultSet, error) {
	if t.fallback == nil {
		return nil, &UnsupportedQueryError{
			Reason: "query needs the embedded engine, which is not configured for this table",
			Docs:   t.docstring(),
		}
	}
	result, err := t.fallback.Query(ctx, frame, query)
	if err != nil {
		return nil, t.wrapRemoteError(err)
	}
	return result, nil
}

// timeParam reports whether a condition is eligible for time-range
// pushdown: the column is a declared temporal response field with a
// matching start_ parameter.
func (t *Table) timeParam(cond conditions.Condition) bool {
	if !t.isParam("start_" + cond.Column) {
		return false
	}
	for _, field := range t.def.Response {
		if field.Name == cond.Column {
			return isTemporal(field.Type)
		}
	}
	return false
}

func (t *Table) isParam(name string) bool {
	_, ok := t.def.Params[name]
	return ok
}

func materializeTimeIndex(resp *Response) *resultset.ResultSet {
	name := resp.TimeIndexName
	if name == "" {
		name = "date"
	}
	columns := append([]resultset.Column{{Name: name, Type: resultset.TypeDateTime}}, resp.Frame.Columns...)
	rows := make([][]any, len(resp.Frame.Rows))
	for i, row := range resp.Frame.Rows {
		var indexValue any
		if i < len(resp.TimeIndex) {
			indexValue = resp.TimeIndex[i]
		}
		rows[i] = append([]any{indexValue}, row...)
	}
	return resultset.Table(columns, rows)
}

// matchCondition evaluates one retained filter against a cell. A string
// literal compared against a time cell is parsed the same way pushdown
// literals are, so it compares as an instant rather than as text.
func matchCondition(cell any, op string, value any) bool {
	if _, isTime := cell.(time.Time); isTime {
		if _, alsoTime := value.(time.Time); !alsoTime {
			if parsed, err := parseLocalDate(value); err == nil {
				value = parsed
			}
		}
	}
	cmp := resultset.CompareValues(cell, value)
	switch op {
	case ast.OpEq:
		return cmp == 0
	case ast.OpNe:
		return cmp != 0
	case ast.OpLt:
		return cmp < 0
	case ast.OpGt:
		return cmp > 0
	case ast.OpLte:
		return cmp <= 0
	case ast.OpGte:
		return cmp >= 0
	}
	return true
}

func boolValue(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true") || b == "1"
	case int:
		return b != 0
	case int64:
		return b != 0
	}
	return false
}

func stringValue(v any, fallback string) string {
	if v == nil {
		return fallback
	}
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fmt.Sprintf("%v", v)
}
