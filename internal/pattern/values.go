package pattern

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Normalize maps the assorted Go numeric types onto the canonical leaf
// types used throughout inference: int64 for integers, float64 for reals.
// Everything else passes through untouched.
func Normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

// less is a total order over the scalar leaf types (and, as a last resort,
// anything else by formatted value) used to sort multiset keys for order
// statistics.
func less(a, b any) bool {
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return av < bv
		case float64:
			return float64(av) < bv
		}
	case float64:
		switch bv := b.(type) {
		case float64:
			return av < bv
		case int64:
			return av < float64(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return !av && bv
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

// cmpValues returns -1, 0 or +1 under the same order as less.
func cmpValues(a, b any) int {
	switch {
	case less(a, b):
		return -1
	case less(b, a):
		return 1
	default:
		return 0
	}
}

// inRange reports min <= v <= max under the scalar order.
func inRange(v, min, max any) bool {
	return !less(v, min) && !less(max, v)
}

// runeLen is the length measure for strings: code points, not bytes.
func runeLen(s string) int { return utf8.RuneCountInString(s) }
