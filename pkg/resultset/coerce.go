package resultset

import (
	"fmt"
	"strconv"
	"time"
)

// Coercion is the outcome of a best-effort value conversion. When Coerced is
// false the original value was kept because no sensible conversion exists;
// that is a supported outcome, not an error.
type Coercion struct {
	Value   any
	Coerced bool
}

// Coerce converts a value to the storage representation of the target column
// type. Nil passes through untouched. A value that cannot be converted is
// returned as-is with Coerced=false so a single stubborn cell never sinks
// the row it belongs to.
func Coerce(v any, target ColumnType) Coercion {
	if v == nil {
		return Coercion{Value: nil, Coerced: true}
	}
	switch target {
	case TypeInteger:
		if n, ok := toInt64(v); ok {
			return Coercion{Value: n, Coerced: true}
		}
	case TypeFloat:
		if f, ok := toFloat64(v); ok {
			return Coercion{Value: f, Coerced: true}
		}
	case TypeText, TypeDateTime:
		return Coercion{Value: toText(v), Coerced: true}
	}
	return Coercion{Value: v, Coerced: false}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i, _ := toInt64(n)
		return float64(i), true
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func toText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}
