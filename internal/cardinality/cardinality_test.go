package cardinality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathurwithyou/silberdb/internal/predicate"
	"github.com/fathurwithyou/silberdb/internal/types"
)

func TestSelectivityEqualsUsesDistinctAndRowCount(t *testing.T) {
	p, err := predicate.Parse("id = 1")
	require.NoError(t, err)
	stat := &types.Stat{NRows: 100, Distinct: map[string]int{"id": 100}}
	assert.InDelta(t, 0.01, Selectivity(p, stat), 1e-9)
}

func TestSelectivityEqualsFallbackWithoutStats(t *testing.T) {
	p, err := predicate.Parse("id = 1")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, Selectivity(p, nil), 1e-9)
}

func TestSelectivityRangeInterpolatesMinMax(t *testing.T) {
	p, err := predicate.Parse("salary > 50000")
	require.NoError(t, err)
	stat := &types.Stat{Min: map[string]float64{"salary": 0}, Max: map[string]float64{"salary": 100000}}
	sel := Selectivity(p, stat)
	assert.InDelta(t, 0.5, sel, 1e-9)
}

func TestSelectivityConjunctionMultiplies(t *testing.T) {
	p, err := predicate.Parse("a = 1 AND b = 2")
	require.NoError(t, err)
	stat := &types.Stat{NRows: 1000, Distinct: map[string]int{"a": 10, "b": 10}}
	sel := Selectivity(p, stat)
	assert.InDelta(t, 0.1*0.1, sel, 1e-9)
}

func TestEquijoinCardinalityBounded(t *testing.T) {
	c := EquijoinCardinality(100000, 5, 5, 5)
	assert.GreaterOrEqual(t, c, 100000.0)
	assert.LessOrEqual(t, c, 100000.0*5)
}

func TestIsEquijoin(t *testing.T) {
	p, err := predicate.Parse("e.dept = d.id")
	require.NoError(t, err)
	assert.True(t, IsEquijoin(p))

	p2, err := predicate.Parse("e.salary > 1")
	require.NoError(t, err)
	assert.False(t, IsEquijoin(p2))
}
