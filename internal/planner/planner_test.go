package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathurwithyou/silberdb/internal/config"
	"github.com/fathurwithyou/silberdb/internal/cost"
	"github.com/fathurwithyou/silberdb/internal/optimizer"
	"github.com/fathurwithyou/silberdb/internal/types"
)

func noSchema(string) (*types.Schema, bool) { return nil, false }

func statsFor(rows map[string]int) optimizer.StatLookup {
	return func(table string) *types.Stat {
		n, ok := rows[table]
		if !ok {
			return nil
		}
		return &types.Stat{NRows: n, NBlocks: n/100 + 1, Blocking: 100}
	}
}

func newGenerator(stats optimizer.StatLookup) *Generator {
	o := optimizer.New(noSchema, stats, cost.New(config.Default()))
	return New(o, DefaultWeights())
}

func TestCandidatesDedupesStructurallyEqualPlans(t *testing.T) {
	g := newGenerator(statsFor(nil))
	tree := types.NewNode(types.NodeTable, "employees")
	candidates := g.Candidates(tree)
	require.NotEmpty(t, candidates)
	for i := range candidates {
		for j := range candidates {
			if i == j {
				continue
			}
			assert.False(t, types.StructurallyEqual(candidates[i], candidates[j]),
				"candidates[%d] and candidates[%d] are structurally equal", i, j)
		}
	}
}

func TestCandidatesSkipsBushyAndSmallTablesFirstWhenJoinPredicateExists(t *testing.T) {
	g := newGenerator(statsFor(map[string]int{"employees": 100000, "departments": 5}))
	join := types.NewNode(types.NodeThetaJoin, "e.dept = d.id",
		types.NewNode(types.NodeTable, "employees e"),
		types.NewNode(types.NodeTable, "departments d"))
	candidates := g.Candidates(join)
	assert.LessOrEqual(t, len(candidates), 3)
}

func TestSmallTablesFirstReordersCartesianChain(t *testing.T) {
	g := newGenerator(statsFor(map[string]int{"employees": 100000, "departments": 5}))
	tree := types.NewNode(types.NodeCartesianProduct, "",
		types.NewNode(types.NodeTable, "employees"),
		types.NewNode(types.NodeTable, "departments"))
	out := g.smallTablesFirst(tree)
	require.NotNil(t, out)
	assert.Equal(t, "departments", out.Children[0].Value)
}

func TestMostSelectiveFilterFirstReordersSelectionChain(t *testing.T) {
	g := newGenerator(statsFor(nil))
	tree := types.NewNode(types.NodeSelection, "name != 'x'",
		types.NewNode(types.NodeSelection, "id = 1", types.NewNode(types.NodeTable, "t")))
	out := g.mostSelectiveFilterFirst(tree)
	require.NotNil(t, out)
	assert.Equal(t, "id = 1", out.Value)
}

func TestBestPicksLowerScoringCandidate(t *testing.T) {
	g := newGenerator(statsFor(map[string]int{"employees": 100000, "departments": 5}))
	tree := types.NewNode(types.NodeCartesianProduct, "",
		types.NewNode(types.NodeTable, "employees"),
		types.NewNode(types.NodeTable, "departments"))

	best := g.Best(tree)
	require.NotNil(t, best)
	bestScore := g.Score(best)
	for _, c := range g.Candidates(tree) {
		optimized := g.Opt.Optimize(c)
		assert.LessOrEqual(t, bestScore, g.Score(optimized)+1e-9)
	}
}

func TestScoreIsDeterministicForEqualTrees(t *testing.T) {
	g := newGenerator(statsFor(map[string]int{"t": 1000}))
	a := types.NewNode(types.NodeSelection, "id = 1", types.NewNode(types.NodeTable, "t"))
	b := types.NewNode(types.NodeSelection, "id = 1", types.NewNode(types.NodeTable, "t"))
	assert.InDelta(t, g.Score(a), g.Score(b), 1e-9)
}
