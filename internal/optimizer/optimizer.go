package optimizer

import (
	"github.com/fathurwithyou/silberdb/internal/cost"
	"github.com/fathurwithyou/silberdb/internal/rules"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// Optimizer runs the logical rule set to a fixed point (up to 10
// iterations) and then the cost-based rule set (up to 3 iterations,
// installing a candidate only when its estimated cost strictly decreases),
// per spec.md §4.9.
type Optimizer struct {
	Lookup rules.SchemaLookup
	Stats  StatLookup
	Model  *cost.Model
}

// New returns an Optimizer wired to the storage manager's schema/statistic
// lookups and a cost model built from the engine's configuration.
func New(lookup rules.SchemaLookup, stats StatLookup, model *cost.Model) *Optimizer {
	return &Optimizer{Lookup: lookup, Stats: stats, Model: model}
}

// Optimize returns the optimized tree; tree itself is left untouched
// (every rule allocates a fresh subtree).
func (o *Optimizer) Optimize(tree *types.Node) *types.Node {
	cur := rules.FixedPoint(tree, rules.LogicalRules(o.Lookup), 10)
	cur = o.costBasedFixedPoint(cur, 3)
	return cur
}

// TotalCost returns EstimateTree(n).Cost, the single number spec.md's
// cost-monotonicity property compares across a transformation.
func (o *Optimizer) TotalCost(n *types.Node) float64 {
	return EstimateTree(n, o.Stats, o.Model).Cost
}
