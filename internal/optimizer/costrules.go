package optimizer

import (
	"github.com/fathurwithyou/silberdb/internal/rules"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// costBasedFixedPoint applies the cost-based rules of spec.md §4.9
// (cost-based projection pushdown, cost-based join reordering, early
// projection) bottom-up for up to maxIter passes, installing a rewrite
// only when it strictly lowers EstimateTree(...).Cost for the subtree it
// replaces.
func (o *Optimizer) costBasedFixedPoint(tree *types.Node, maxIter int) *types.Node {
	cur := tree
	for i := 0; i < maxIter; i++ {
		next, changed := o.costBasedPass(cur)
		cur = next
		if !changed {
			break
		}
	}
	return cur
}

func (o *Optimizer) costBasedPass(n *types.Node) (*types.Node, bool) {
	if n == nil {
		return nil, false
	}
	changed := false
	newChildren := make([]*types.Node, len(n.Children))
	for i, c := range n.Children {
		nc, ch := o.costBasedPass(c)
		newChildren[i] = nc
		changed = changed || ch
	}
	cur := &types.Node{Type: n.Type, Value: n.Value, Children: newChildren, Meta: n.Meta}
	types.RelinkParents(cur)

	if better, ok := o.tryJoinReordering(cur); ok {
		cur = better
		changed = true
	}
	if better, ok := o.tryCostBasedProjectionPushdown(cur); ok {
		cur = better
		changed = true
	}
	if better, ok := o.tryEarlyProjection(cur); ok {
		cur = better
		changed = true
	}
	return cur, changed
}

// tryJoinReordering swaps a join's two children and keeps the cheaper
// orientation.
func (o *Optimizer) tryJoinReordering(n *types.Node) (*types.Node, bool) {
	swap := rules.JoinCommutativity{}
	if !swap.IsApplicable(n) {
		return nil, false
	}
	candidate := swap.Apply(n)
	if candidate == nil {
		return nil, false
	}
	if o.TotalCost(candidate) < o.TotalCost(n) {
		return candidate, true
	}
	return nil, false
}

// tryCostBasedProjectionPushdown re-applies the logical projection-pushdown
// rewrite (it is idempotent to re-derive) and keeps it only when strictly
// cheaper than the un-pushed form.
func (o *Optimizer) tryCostBasedProjectionPushdown(n *types.Node) (*types.Node, bool) {
	rule := rules.ProjectionPushdownRule(o.Lookup)
	if !rule.IsApplicable(n) {
		return nil, false
	}
	candidate := rule.Apply(n)
	if candidate == nil {
		return nil, false
	}
	if o.TotalCost(candidate) < o.TotalCost(n) {
		return candidate, true
	}
	return nil, false
}

// tryEarlyProjection inserts a projection onto the columns n itself
// references (requiredColumnsAbove) beneath a selection/join, keeping the
// insertion only when it lowers estimated cost. It does not check that
// those columns are a strict subset of the child's output columns.
func (o *Optimizer) tryEarlyProjection(n *types.Node) (*types.Node, bool) {
	if n.Type != types.NodeSelection && !isJoinType(n.Type) {
		return nil, false
	}
	if len(n.Children) == 0 {
		return nil, false
	}
	child := n.Children[0]
	if child.Type == types.NodeProjection || child.Type == types.NodeTable {
		return nil, false
	}

	cols := requiredColumnsAbove(n)
	if len(cols) == 0 {
		return nil, false
	}
	projValue := joinColumnList(cols)
	newChild := types.NewNode(types.NodeProjection, projValue, child)
	candidate := types.NewNode(n.Type, n.Value, append([]*types.Node{newChild}, n.Children[1:]...)...)

	if o.TotalCost(candidate) < o.TotalCost(n) {
		return candidate, true
	}
	return nil, false
}

func isJoinType(t types.NodeType) bool {
	return t == types.NodeJoin || t == types.NodeThetaJoin || t == types.NodeNaturalJoin
}

// requiredColumnsAbove returns the predicate/projection columns n itself
// references, a conservative stand-in for "columns needed above n" used to
// decide whether an early projection would actually narrow anything.
func requiredColumnsAbove(n *types.Node) []string {
	switch n.Type {
	case types.NodeSelection:
		p, err := parsePredicateSafe(n.Value)
		if err != nil || p == nil {
			return nil
		}
		return p.Columns()
	default:
		p, err := parsePredicateSafe(n.Value)
		if err != nil || p == nil {
			return nil
		}
		return p.Columns()
	}
}

func joinColumnList(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
