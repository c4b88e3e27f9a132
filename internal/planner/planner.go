// Package planner implements spec.md §4.10: the candidate plan generator
// and the weighted plan scorer.
package planner

import (
	"math"

	"github.com/fathurwithyou/silberdb/internal/optimizer"
	"github.com/fathurwithyou/silberdb/internal/rules"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// Weights are the plan scorer's default weighting (spec.md §4.10); they
// are also exposed on EngineConfig so a deployment can retune them.
type Weights struct {
	SelectivityDepth float64
	JoinOrder        float64
	IntermediateSize float64
	Complexity       float64
}

// DefaultWeights matches spec.md's documented defaults.
func DefaultWeights() Weights {
	return Weights{SelectivityDepth: 0.30, JoinOrder: 0.35, IntermediateSize: 0.25, Complexity: 0.10}
}

// Generator produces and scores candidate plans for one query tree.
type Generator struct {
	Lookup rules.SchemaLookup
	Stats  optimizer.StatLookup
	Opt    *optimizer.Optimizer
	Weight Weights
}

// New returns a Generator bound to opt's schema/statistic collaborators.
func New(opt *optimizer.Optimizer, weight Weights) *Generator {
	return &Generator{Lookup: opt.Lookup, Stats: opt.Stats, Opt: opt, Weight: weight}
}

// Candidates returns up to 5 structurally distinct candidate plans derived
// from tree (spec.md §4.10): the original, a selection-pushed variant, a
// small-tables-first left-deep variant, a most-selective-filter-first
// variant, and a bushy variant — deduplicated by structural equality.
func (g *Generator) Candidates(tree *types.Node) []*types.Node {
	var out []*types.Node
	add := func(n *types.Node) {
		if n == nil {
			return
		}
		for _, existing := range out {
			if types.StructurallyEqual(existing, n) {
				return
			}
		}
		out = append(out, n)
	}

	add(tree)
	add(rules.FixedPoint(tree, rules.LogicalRules(g.Lookup), 10))

	hasJoinPredicate := treeHasJoinPredicate(tree)
	if !hasJoinPredicate {
		add(g.smallTablesFirst(tree))
	}
	add(g.mostSelectiveFilterFirst(tree))
	if !hasJoinPredicate {
		add(g.bushyVariant(tree))
	}

	return out
}

// Best runs the optimizer over every candidate and returns the one with
// the lowest score.
func (g *Generator) Best(tree *types.Node) *types.Node {
	candidates := g.Candidates(tree)
	var best *types.Node
	bestScore := math.Inf(1)
	for _, c := range candidates {
		optimized := g.Opt.Optimize(c)
		score := g.Score(optimized)
		if score < bestScore {
			bestScore = score
			best = optimized
		}
	}
	return best
}

func treeHasJoinPredicate(n *types.Node) bool {
	found := false
	types.Walk(n, func(node *types.Node) {
		if node.Type == types.NodeJoin || node.Type == types.NodeThetaJoin {
			found = true
		}
	})
	return found
}

// smallTablesFirst reshapes a left-deep cartesian chain so the smallest
// table (by estimated cardinality) is the outermost left operand.
func (g *Generator) smallTablesFirst(tree *types.Node) *types.Node {
	leaves, rebuild, ok := joinChain(tree)
	if !ok || len(leaves) < 2 {
		return nil
	}
	sorted := append([]*types.Node(nil), leaves...)
	sortByCardinality(sorted, g.Stats)
	if types.StructurallyEqual(leaves[0], sorted[0]) && sameOrder(leaves, sorted) {
		return nil
	}
	return rebuild(sorted)
}

// mostSelectiveFilterFirst reorders the SELECTION chain directly above a
// scan so the most selective predicate (lowest selectivity estimate)
// filters first.
func (g *Generator) mostSelectiveFilterFirst(tree *types.Node) *types.Node {
	chain, base, ok := selectionChain(tree)
	if !ok || len(chain) < 2 {
		return nil
	}
	sorted := append([]*types.Node(nil), chain...)
	sortBySelectivity(sorted, g.Stats)
	if sameOrder(chain, sorted) {
		return nil
	}
	cur := base
	for i := len(sorted) - 1; i >= 0; i-- {
		cur = types.NewNode(types.NodeSelection, sorted[i].Value, cur)
	}
	return cur
}

// bushyVariant applies join associativity once at the tree root, producing
// a right-deep/bushy reshape candidate (skipped upstream when join
// predicates exist, since the naive reorder cannot verify predicates still
// bind).
func (g *Generator) bushyVariant(tree *types.Node) *types.Node {
	r := rules.JoinAssociativity{Lookup: g.Lookup}
	if !r.IsApplicable(tree) {
		return nil
	}
	return r.Apply(tree)
}
