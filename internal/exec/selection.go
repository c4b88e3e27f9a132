package exec

import (
	"github.com/fathurwithyou/silberdb/internal/predicate"
	"github.com/fathurwithyou/silberdb/internal/storage"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// selection filters its child's rows by node's predicate. When the child
// is a single TABLE scan, every conjunct that is a simple "column op
// literal" comparison on that table's own columns is translated into a
// storage.Condition and pushed into the scan, so an index on that column
// can narrow the read; any remaining conjuncts are evaluated row-by-row
// afterward.
func (e *Executor) selection(node *types.Node, txID int64) (*types.Rows, error) {
	p, err := predicate.Parse(node.Value)
	if err != nil {
		return nil, &types.SyntaxError{Message: err.Error()}
	}

	scanNode := child(node, 0)
	if scanNode != nil && scanNode.Type == types.NodeTable {
		table, alias := tableAndAlias(scanNode.Value)
		pushed, residual := splitPushable(p, table, alias)
		rows, err := e.scanWith(scanNode, txID, pushed)
		if err != nil {
			return nil, err
		}
		return filterRows(rows, residual)
	}

	rows, err := e.childRows(node, 0, txID)
	if err != nil {
		return nil, err
	}
	return filterRows(rows, p)
}

// splitPushable separates p's AND-conjuncts into ones that can be pushed
// down as a storage.Condition against table/alias and the remaining
// predicate (nil when everything was pushed).
func splitPushable(p *predicate.Predicate, table, alias string) ([]storage.Condition, *predicate.Predicate) {
	conjuncts := p.SplitAnd()
	var pushed []storage.Condition
	var keep []*predicate.Predicate
	for _, c := range conjuncts {
		if cond, ok := pushableCondition(c, table, alias); ok {
			pushed = append(pushed, cond)
			continue
		}
		keep = append(keep, c)
	}
	if len(keep) == 0 {
		return pushed, nil
	}
	residual := keep[0]
	for _, k := range keep[1:] {
		residual = &predicate.Predicate{Kind: predicate.And, Children: []*predicate.Predicate{residual, k}}
	}
	return pushed, residual
}

func pushableCondition(p *predicate.Predicate, table, alias string) (storage.Condition, bool) {
	if p.Kind != predicate.Simple || p.RHSCol != "" {
		return storage.Condition{}, false
	}
	switch p.Op {
	case "=", "!=", "<>", "<", "<=", ">", ">=":
	default:
		return storage.Condition{}, false
	}
	qualifier, col := splitQualifier(p.Column)
	if qualifier != "" && qualifier != table && qualifier != alias {
		return storage.Condition{}, false
	}
	return storage.Condition{Column: col, Op: p.Op, Value: p.RHSLit}, true
}

func splitQualifier(ref string) (qualifier, column string) {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '.' {
			return ref[:i], ref[i+1:]
		}
	}
	return "", ref
}

func filterRows(rows *types.Rows, p *predicate.Predicate) (*types.Rows, error) {
	if p == nil {
		return rows, nil
	}
	var out []types.Row
	for _, row := range rows.Values {
		ok, err := p.Eval(resolve(row))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return &types.Rows{Schemas: rows.Schemas, Values: out}, nil
}
