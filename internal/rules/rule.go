// Package rules implements the relational-algebra tree transformations of
// spec.md §4.9: a rule is a pure function pair (is_applicable, apply) that
// returns a freshly allocated subtree or nil, per design note §9.3 ("Each
// rule is a distinct value implementing {is_applicable, apply, name}").
package rules

import "github.com/fathurwithyou/silberdb/internal/types"

// Rule is one named tree transformation.
type Rule interface {
	Name() string
	IsApplicable(n *types.Node) bool
	Apply(n *types.Node) *types.Node
}

// SchemaLookup resolves a table name to its schema, the way the storage
// manager exposes GetTableSchema; selection/join distribution needs it to
// route unqualified column references to the side that owns them.
type SchemaLookup func(table string) (*types.Schema, bool)

// applyBottomUp tries every rule in order against every node of the tree
// rooted at n, bottom-up (children before parents), returning a
// freshly-relinked tree and whether any rule fired.
func applyBottomUp(n *types.Node, rs []Rule) (*types.Node, bool) {
	if n == nil {
		return nil, false
	}
	changed := false
	newChildren := make([]*types.Node, len(n.Children))
	for i, c := range n.Children {
		nc, ch := applyBottomUp(c, rs)
		newChildren[i] = nc
		changed = changed || ch
	}
	cur := &types.Node{Type: n.Type, Value: n.Value, Children: newChildren, Meta: n.Meta}

	for _, r := range rs {
		if r.IsApplicable(cur) {
			if out := r.Apply(cur); out != nil {
				cur = out
				changed = true
			}
		}
	}
	types.RelinkParents(cur)
	return cur, changed
}

// FixedPoint applies rs to tree bottom-up, repeating until no rule fires or
// maxIter passes have run (spec.md §4.9: "fixed-point bottom-up up to 10
// iterations" for logical rules, "up to 3 iterations" for cost-based ones).
func FixedPoint(tree *types.Node, rs []Rule, maxIter int) *types.Node {
	cur := tree
	for i := 0; i < maxIter; i++ {
		next, changed := applyBottomUp(cur, rs)
		cur = next
		if !changed {
			break
		}
	}
	return cur
}
