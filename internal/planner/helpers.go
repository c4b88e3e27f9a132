package planner

import (
	"sort"
	"strings"

	"github.com/fathurwithyou/silberdb/internal/optimizer"
	"github.com/fathurwithyou/silberdb/internal/predicate"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// joinChain locates the topmost CARTESIAN_PRODUCT subtree reachable by
// descending through single-child wrapper nodes, flattens its left-deep
// leaf chain, and returns a rebuild function that splices a reordered leaf
// list back into the full tree.
func joinChain(tree *types.Node) (leaves []*types.Node, rebuild func([]*types.Node) *types.Node, ok bool) {
	cpNode, found, rebuildOuter := locateCartesian(tree)
	if !found {
		return nil, nil, false
	}
	leaves = flattenCartesian(cpNode)
	rebuild = func(newLeaves []*types.Node) *types.Node {
		return rebuildOuter(buildLeftDeepCartesian(newLeaves))
	}
	return leaves, rebuild, true
}

func locateCartesian(n *types.Node) (*types.Node, bool, func(*types.Node) *types.Node) {
	if n == nil {
		return nil, false, nil
	}
	if n.Type == types.NodeCartesianProduct {
		return n, true, func(repl *types.Node) *types.Node { return repl }
	}
	if len(n.Children) == 1 {
		sub, ok, rebuildSub := locateCartesian(n.Children[0])
		if ok {
			return sub, true, func(repl *types.Node) *types.Node {
				return types.NewNode(n.Type, n.Value, rebuildSub(repl))
			}
		}
	}
	return nil, false, nil
}

func flattenCartesian(n *types.Node) []*types.Node {
	if n.Type != types.NodeCartesianProduct || len(n.Children) != 2 {
		return []*types.Node{n}
	}
	return append(flattenCartesian(n.Children[0]), n.Children[1])
}

func buildLeftDeepCartesian(leaves []*types.Node) *types.Node {
	cur := leaves[0]
	for _, l := range leaves[1:] {
		cur = types.NewNode(types.NodeCartesianProduct, "", cur, l)
	}
	return cur
}

func sortByCardinality(nodes []*types.Node, stats optimizer.StatLookup) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return estimatedCard(nodes[i], stats) < estimatedCard(nodes[j], stats)
	})
}

func estimatedCard(n *types.Node, stats optimizer.StatLookup) float64 {
	if n.Type != types.NodeTable {
		return 1e12 // unknown-shaped subtree: sort last, never ahead of a plain scan
	}
	table := strings.Fields(n.Value)[0]
	stat := stats(table)
	if stat == nil {
		return 1000
	}
	return float64(stat.NRows)
}

func sameOrder(a, b []*types.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || a[i].Value != b[i].Value {
			return false
		}
	}
	return true
}

// selectionChain returns the stack of SELECTION nodes directly at tree's
// root (outermost first) and the first non-SELECTION node beneath them.
func selectionChain(tree *types.Node) (chain []*types.Node, base *types.Node, ok bool) {
	cur := tree
	for cur != nil && cur.Type == types.NodeSelection && len(cur.Children) == 1 {
		chain = append(chain, cur)
		cur = cur.Children[0]
	}
	if len(chain) == 0 {
		return nil, nil, false
	}
	return chain, cur, true
}

func sortBySelectivity(nodes []*types.Node, stats optimizer.StatLookup) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return syntacticSelectivity(nodes[i].Value) < syntacticSelectivity(nodes[j].Value)
	})
}

// syntacticSelectivity mirrors the rule engine's commutativity heuristic
// (spec.md §4.9): "=" : 0.1, range : 0.3, "!=" : 0.9, else 0.5.
func syntacticSelectivity(value string) float64 {
	p, err := predicate.Parse(value)
	if err != nil || p == nil || p.Kind != predicate.Simple {
		return 0.5
	}
	switch p.Op {
	case "=":
		return 0.1
	case "<", "<=", ">", ">=":
		return 0.3
	case "!=", "<>":
		return 0.9
	default:
		return 0.5
	}
}
