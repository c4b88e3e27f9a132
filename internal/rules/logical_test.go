package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathurwithyou/silberdb/internal/types"
)

func tableNode(value string) *types.Node {
	return types.NewNode(types.NodeTable, value)
}

func TestSelectionDecompositionSplitsTopLevelAnd(t *testing.T) {
	r := selectionDecomposition{}
	n := types.NewNode(types.NodeSelection, "a = 1 AND b = 2", tableNode("t"))
	require.True(t, r.IsApplicable(n))
	out := r.Apply(n)
	require.Equal(t, types.NodeSelection, out.Type)
	require.Equal(t, types.NodeSelection, out.Children[0].Type)
}

func TestSelectionOverCartesianBecomesThetaJoin(t *testing.T) {
	r := selectionOverCartesianToThetaJoin{}
	cp := types.NewNode(types.NodeCartesianProduct, "", tableNode("r"), tableNode("s"))
	n := types.NewNode(types.NodeSelection, "r.id = s.id", cp)
	require.True(t, r.IsApplicable(n))
	out := r.Apply(n)
	assert.Equal(t, types.NodeThetaJoin, out.Type)
	assert.Equal(t, "r.id = s.id", out.Value)
}

func TestSelectionJoinDistributionPushesToOwningSide(t *testing.T) {
	lookup := func(string) (*types.Schema, bool) { return nil, false }
	r := newSelectionJoinDistribution(lookup)
	join := types.NewNode(types.NodeThetaJoin, "e.dept = d.id", tableNode("e"), tableNode("d"))
	n := types.NewNode(types.NodeSelection, "d.region = 'NA'", join)
	require.True(t, r.IsApplicable(n))
	out := r.Apply(n)
	require.Equal(t, types.NodeThetaJoin, out.Type)
	// Pushed to the right child (d), not left.
	assert.Equal(t, types.NodeSelection, out.Children[1].Type)
	assert.Equal(t, types.NodeTable, out.Children[0].Type)
}

func TestSelectionJoinDistributionLeavesCrossColumnAbove(t *testing.T) {
	lookup := func(string) (*types.Schema, bool) { return nil, false }
	r := newSelectionJoinDistribution(lookup)
	join := types.NewNode(types.NodeThetaJoin, "", tableNode("e"), tableNode("d"))
	n := types.NewNode(types.NodeSelection, "e.dept = d.id", join)
	require.True(t, r.IsApplicable(n))
	out := r.Apply(n)
	assert.Nil(t, out)
}

func TestProjectionEliminationSubsetDropsInner(t *testing.T) {
	r := projectionElimination{}
	inner := types.NewNode(types.NodeProjection, "a, b, c", tableNode("t"))
	outer := types.NewNode(types.NodeProjection, "a, b", inner)
	require.True(t, r.IsApplicable(outer))
	out := r.Apply(outer)
	assert.Equal(t, "a, b", out.Value)
	assert.Equal(t, types.NodeTable, out.Children[0].Type)
}

func TestFixedPointEndToEndPushdown(t *testing.T) {
	lookup := func(string) (*types.Schema, bool) { return nil, false }
	join := types.NewNode(types.NodeThetaJoin, "e.dept = d.id", tableNode("e"), tableNode("d"))
	tree := types.NewNode(types.NodeSelection, "d.region = 'NA' AND e.salary > 50000", join)

	out := FixedPoint(tree, LogicalRules(lookup), 10)

	// No SELECTION should remain directly above the join once both
	// predicates are routed to their owning side.
	found := false
	types.Walk(out, func(n *types.Node) {
		if n.Type == types.NodeSelection && len(n.Children) == 1 && isJoinLike(n.Children[0].Type) {
			found = true
		}
	})
	assert.False(t, found)
}
