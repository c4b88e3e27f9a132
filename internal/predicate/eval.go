package predicate

import (
	"strings"

	"github.com/fathurwithyou/silberdb/internal/index"
)

// compareOp evaluates one simple comparison. Per spec.md §9 open question
// #4, predicate equality/ordering on floats uses plain Go semantics (NaN
// never equals or orders against anything), unlike the B+-tree index's
// IEEE-754 total order.
func compareOp(lhs any, op string, rhs any) bool {
	switch op {
	case "=":
		return equalLoose(lhs, rhs)
	case "!=", "<>":
		return !equalLoose(lhs, rhs)
	case "<":
		return lhs != nil && rhs != nil && looseLess(lhs, rhs)
	case "<=":
		return lhs != nil && rhs != nil && (looseLess(lhs, rhs) || equalLoose(lhs, rhs))
	case ">":
		return lhs != nil && rhs != nil && looseLess(rhs, lhs)
	case ">=":
		return lhs != nil && rhs != nil && (looseLess(rhs, lhs) || equalLoose(lhs, rhs))
	case "IS NULL":
		return lhs == nil
	case "IS NOT NULL":
		return lhs != nil
	case "LIKE":
		pattern, _ := rhs.(string)
		s, _ := lhs.(string)
		return likeMatch(s, pattern)
	case "IN":
		vals, _ := rhs.([]any)
		for _, v := range vals {
			if equalLoose(lhs, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func equalLoose(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func looseLess(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af < bf
	}
	as, aok2 := a.(string)
	bs, bok2 := b.(string)
	if aok2 && bok2 {
		return as < bs
	}
	return index.Compare(a, b) < 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// likeMatch implements the SQL LIKE subset the cardinality table documents:
// "%x%" (contains), "x" (equals), with "%" elsewhere treated as a wildcard
// boundary marker only at the pattern's ends.
func likeMatch(s, pattern string) bool {
	if pattern == "" {
		return s == ""
	}
	prefix := strings.HasPrefix(pattern, "%")
	suffix := strings.HasSuffix(pattern, "%")
	core := strings.Trim(pattern, "%")
	switch {
	case prefix && suffix:
		return strings.Contains(s, core)
	case prefix:
		return strings.HasSuffix(s, core)
	case suffix:
		return strings.HasPrefix(s, core)
	default:
		return s == core
	}
}
