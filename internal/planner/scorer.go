package planner

import (
	"math"

	"github.com/fathurwithyou/silberdb/internal/optimizer"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// Score implements spec.md §4.10's weighted plan score (lower is better):
// selectivity-depth · w1 + join-order · w2 + intermediate-size · w3 +
// complexity · w4.
func (g *Generator) Score(tree *types.Node) float64 {
	w := g.Weight
	return w.SelectivityDepth*g.selectivityDepthScore(tree) +
		w.JoinOrder*g.joinOrderScore(tree) +
		w.IntermediateSize*g.intermediateSizeScore(tree) +
		w.Complexity*complexityScore(tree)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// selectivityDepthScore averages the depth of every SELECTION node,
// normalized by the tree's max depth.
func (g *Generator) selectivityDepthScore(tree *types.Node) float64 {
	maxDepth := float64(types.Depth(tree))
	if maxDepth == 0 {
		return 0
	}
	var total, count float64
	depthOf(tree, 0, func(n *types.Node, depth int) {
		if n.Type == types.NodeSelection {
			total += float64(depth)
			count++
		}
	})
	if count == 0 {
		return 0
	}
	return clamp01((total / count) / maxDepth)
}

func depthOf(n *types.Node, depth int, visit func(*types.Node, int)) {
	if n == nil {
		return
	}
	visit(n, depth)
	for _, c := range n.Children {
		depthOf(c, depth+1, visit)
	}
}

// joinOrderScore averages, over every JOIN/THETA_JOIN/NATURAL_JOIN pair
// observed, log10(|L|·|R|)/10 + log10(max(|L|,|R|)/min(|L|,|R|))/5.
func (g *Generator) joinOrderScore(tree *types.Node) float64 {
	var total float64
	var count float64
	types.Walk(tree, func(n *types.Node) {
		if len(n.Children) != 2 {
			return
		}
		if n.Type != types.NodeJoin && n.Type != types.NodeThetaJoin && n.Type != types.NodeNaturalJoin {
			return
		}
		left := optimizer.EstimateTree(n.Children[0], g.Stats, g.Opt.Model).Card
		right := optimizer.EstimateTree(n.Children[1], g.Stats, g.Opt.Model).Card
		if left <= 0 || right <= 0 {
			return
		}
		lo, hi := left, right
		if lo > hi {
			lo, hi = hi, lo
		}
		ratio := hi
		if lo > 0 {
			ratio = hi / lo
		}
		total += math.Log10(left*right)/10 + math.Log10(ratio)/5
		count++
	})
	if count == 0 {
		return 0
	}
	return total / count
}

// intermediateSizeScore is log10(max estimated intermediate cardinality)/10,
// clamped to 1.
func (g *Generator) intermediateSizeScore(tree *types.Node) float64 {
	maxCard := 1.0
	types.Walk(tree, func(n *types.Node) {
		switch n.Type {
		case types.NodeJoin, types.NodeThetaJoin, types.NodeNaturalJoin, types.NodeCartesianProduct:
			card := optimizer.EstimateTree(n, g.Stats, g.Opt.Model).Card
			if card > maxCard {
				maxCard = card
			}
		}
	})
	return clamp01(math.Log10(maxCard) / 10)
}

// complexityScore is nodes/20 + depth/10, clamped to 1.
func complexityScore(tree *types.Node) float64 {
	n := float64(types.CountNodes(tree))
	d := float64(types.Depth(tree))
	return clamp01(n/20 + d/10)
}
