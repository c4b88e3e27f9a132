package exec

import (
	"github.com/fathurwithyou/silberdb/internal/predicate"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// thetaJoin implements JOIN/THETA_JOIN: a nested-loop cross of both
// children's rows, kept only where node's predicate holds. Output rows
// carry both sides' qualified keys.
func (e *Executor) thetaJoin(node *types.Node, txID int64) (*types.Rows, error) {
	left, err := e.childRows(node, 0, txID)
	if err != nil {
		return nil, err
	}
	right, err := e.childRows(node, 1, txID)
	if err != nil {
		return nil, err
	}
	p, err := predicate.Parse(node.Value)
	if err != nil {
		return nil, &types.SyntaxError{Message: err.Error()}
	}

	var out []types.Row
	for _, l := range left.Values {
		for _, r := range right.Values {
			combined := merge(l, r)
			ok, err := p.Eval(resolve(combined))
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, combined)
			}
		}
	}
	return &types.Rows{Schemas: append(append([]*types.Schema{}, left.Schemas...), right.Schemas...), Values: out}, nil
}

// naturalJoin matches rows on every bare column name shared by both sides,
// then drops the duplicated right-side copy from the output so each shared
// column appears once (spec.md §9 decision on natural-join column
// ownership for downstream projection pushdown).
func (e *Executor) naturalJoin(node *types.Node, txID int64) (*types.Rows, error) {
	left, err := e.childRows(node, 0, txID)
	if err != nil {
		return nil, err
	}
	right, err := e.childRows(node, 1, txID)
	if err != nil {
		return nil, err
	}

	shared := sharedColumns(left.Values, right.Values)

	var out []types.Row
	for _, l := range left.Values {
		for _, r := range right.Values {
			if !matchShared(l, r, shared) {
				continue
			}
			combined := make(types.Row, len(l)+len(r))
			for k, v := range l {
				combined[k] = v
			}
			for k, v := range r {
				if _, dup := shared[bareColumn(k)]; dup {
					continue
				}
				combined[k] = v
			}
			out = append(out, combined)
		}
	}
	return &types.Rows{Schemas: append(append([]*types.Schema{}, left.Schemas...), right.Schemas...), Values: out}, nil
}

func sharedColumns(left, right []types.Row) map[string]bool {
	leftCols := map[string]bool{}
	for _, row := range left {
		for k := range row {
			leftCols[bareColumn(k)] = true
		}
		break
	}
	shared := map[string]bool{}
	for _, row := range right {
		for k := range row {
			if leftCols[bareColumn(k)] {
				shared[bareColumn(k)] = true
			}
		}
		break
	}
	return shared
}

func matchShared(l, r types.Row, shared map[string]bool) bool {
	for col := range shared {
		lv, lok := resolve(l)(col)
		rv, rok := resolve(r)(col)
		if !lok || !rok {
			return false
		}
		if !equalLoose(lv, rv) {
			return false
		}
	}
	return true
}

// cartesian implements CARTESIAN_PRODUCT: the unrestricted cross of both
// children.
func (e *Executor) cartesian(node *types.Node, txID int64) (*types.Rows, error) {
	left, err := e.childRows(node, 0, txID)
	if err != nil {
		return nil, err
	}
	right, err := e.childRows(node, 1, txID)
	if err != nil {
		return nil, err
	}
	var out []types.Row
	for _, l := range left.Values {
		for _, r := range right.Values {
			out = append(out, merge(l, r))
		}
	}
	return &types.Rows{Schemas: append(append([]*types.Schema{}, left.Schemas...), right.Schemas...), Values: out}, nil
}

// equalLoose mirrors predicate's own loose equality (numeric widening,
// exact match otherwise), used to compare the natural join's shared
// columns without constructing a throwaway Predicate.
func equalLoose(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := toFloatValue(a)
	bf, bok := toFloatValue(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func toFloatValue(v any) (float64, bool) {
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
