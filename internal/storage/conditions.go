package storage

import "github.com/fathurwithyou/silberdb/internal/index"

// matches reports whether row satisfies every condition in conds.
func matches(row map[string]any, conds []Condition) bool {
	for _, c := range conds {
		v, ok := row[c.Column]
		if !ok {
			return false
		}
		if !matchOne(v, c.Op, c.Value) {
			return false
		}
	}
	return true
}

func matchOne(v any, op string, target any) bool {
	switch op {
	case "=":
		return equalScalar(v, target)
	case "!=", "<>":
		return !equalScalar(v, target)
	case "<":
		return v != nil && index.Compare(v, target) < 0
	case "<=":
		return v != nil && index.Compare(v, target) <= 0
	case ">":
		return v != nil && index.Compare(v, target) > 0
	case ">=":
		return v != nil && index.Compare(v, target) >= 0
	default:
		return false
	}
}

// equalScalar follows spec.md §9 open question #4: predicate equality on
// floats uses plain Go `==` (so NaN != NaN), unlike index ordering which
// uses the IEEE-754 total order from the index package.
func equalScalar(a, b any) bool {
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

// indexableCondition returns the first condition in conds whose column has
// an index on table, or ok=false.
func (m *Manager) indexableCondition(table string, conds []Condition) (Condition, bool) {
	idxs := m.indexes[table]
	if idxs == nil {
		return Condition{}, false
	}
	for _, c := range conds {
		if _, ok := idxs[c.Column]; ok {
			return c, true
		}
	}
	return Condition{}, false
}

// candidateRIDs probes the (table, column) index for c, returning the
// candidate row-ids for the remaining predicates to filter.
func (m *Manager) candidateRIDs(table string, c Condition) []index.RID {
	idx := m.indexes[table][c.Column]
	switch c.Op {
	case "=":
		return idx.tree.Search(c.Value)
	case ">":
		return idx.tree.Range(nextAfter(c.Value), nil)
	case ">=":
		return idx.tree.Range(c.Value, nil)
	case "<":
		return idx.tree.Range(nil, prevBefore(c.Value))
	case "<=":
		return idx.tree.Range(nil, c.Value)
	default:
		return nil
	}
}

// nextAfter/prevBefore give a conservative exclusive bound for a strict
// inequality by probing the inclusive range and letting the residual
// predicate re-check strictness; this keeps the index contract (inclusive
// Range) simple while still narrowing the candidate set.
func nextAfter(v any) any  { return v }
func prevBefore(v any) any { return v }
