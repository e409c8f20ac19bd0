package resultset

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortKey names a column and a direction for ordering.
type SortKey struct {
	Column string
	Desc   bool
}

// SortBy orders rows by the given keys, earlier keys taking precedence.
// The sort is stable so ties preserve backend order. Unknown columns are
// an error: ordering by something that does not exist is a caller bug.
func (rs *ResultSet) SortBy(keys []SortKey) error {
	idx := make([]int, len(keys))
	for i, key := range keys {
		pos, ok := rs.ColumnIndex(key.Column)
		if !ok {
			return fmt.Errorf("unknown column %q in order by", key.Column)
		}
		idx[i] = pos
	}
	sort.SliceStable(rs.Rows, func(a, b int) bool {
		for i, pos := range idx {
			cmp := CompareValues(rs.Rows[a][pos], rs.Rows[b][pos])
			if cmp == 0 {
				continue
			}
			if keys[i].Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return nil
}

// Limit truncates the row list to at most n rows.
func (rs *ResultSet) Limit(n int) {
	if n >= 0 && len(rs.Rows) > n {
		rs.Rows = rs.Rows[:n]
	}
}

// FilterRows keeps only the rows the predicate accepts.
func (rs *ResultSet) FilterRows(keep func(row []any) bool) {
	filtered := rs.Rows[:0:0]
	for _, row := range rs.Rows {
		if keep(row) {
			filtered = append(filtered, row)
		}
	}
	rs.Rows = filtered
}

// SetConstant sets every value of the named column to v, appending a new
// column when none exists. Used to re-attach filter constants the remote
// call did not echo back.
func (rs *ResultSet) SetConstant(name string, v any) {
	if pos, ok := rs.ColumnIndex(name); ok {
		for _, row := range rs.Rows {
			row[pos] = v
		}
		return
	}
	rs.Columns = append(rs.Columns, Column{Name: name, Type: InferType(v)})
	for i, row := range rs.Rows {
		rs.Rows[i] = append(row, v)
	}
}

// Project returns a new result set containing only the named columns, in
// the requested order.
func (rs *ResultSet) Project(names []string) (*ResultSet, error) {
	idx := make([]int, len(names))
	columns := make([]Column, len(names))
	for i, name := range names {
		pos, ok := rs.ColumnIndex(name)
		if !ok {
			return nil, fmt.Errorf("unknown column %q in field list", name)
		}
		idx[i] = pos
		columns[i] = rs.Columns[pos]
	}
	rows := make([][]any, len(rs.Rows))
	for i, row := range rs.Rows {
		projected := make([]any, len(idx))
		for j, pos := range idx {
			projected[j] = row[pos]
		}
		rows[i] = projected
	}
	return Table(columns, rows), nil
}

// CompareValues orders two cell values: nil first, then numerics by value,
// times chronologically, everything else as strings. Mixed numeric kinds
// compare through float64.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			return at.Compare(bt)
		}
	}
	return strings.Compare(toText(a), toText(b))
}
