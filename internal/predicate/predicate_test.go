package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(m map[string]any) func(string) (any, bool) {
	return func(ref string) (any, bool) {
		v, ok := m[ref]
		return v, ok
	}
}

func TestParseSimple(t *testing.T) {
	p, err := Parse("id = 5")
	require.NoError(t, err)
	require.Equal(t, Simple, p.Kind)
	assert.Equal(t, "id", p.Column)
	assert.Equal(t, "=", p.Op)
	assert.Equal(t, int64(5), p.RHSLit)
}

func TestParseAndOrPrecedence(t *testing.T) {
	p, err := Parse("a = 1 AND b = 2 OR c = 3")
	require.NoError(t, err)
	require.Equal(t, Or, p.Kind)
	require.Len(t, p.Children, 2)
	assert.Equal(t, And, p.Children[0].Kind)
}

func TestParseQuotedStringWithParens(t *testing.T) {
	p, err := Parse("name = '(not a paren)'")
	require.NoError(t, err)
	assert.Equal(t, "(not a paren)", p.RHSLit)
}

func TestSplitAndTopLevelOnly(t *testing.T) {
	p, err := Parse("a = 1 AND (b = 2 OR c = 3)")
	require.NoError(t, err)
	parts := p.SplitAnd()
	require.Len(t, parts, 2)
	assert.Equal(t, Or, parts[1].Kind)
}

func TestEvalDotted(t *testing.T) {
	p, err := Parse("e.salary > 50000")
	require.NoError(t, err)
	ok, err := p.Eval(row(map[string]any{"e.salary": int64(60000)}))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalJoinPredicate(t *testing.T) {
	p, err := Parse("e.dept = d.id")
	require.NoError(t, err)
	ok, err := p.Eval(row(map[string]any{"e.dept": int64(1), "d.id": int64(1)}))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalIsNull(t *testing.T) {
	p, err := Parse("mgr IS NULL")
	require.NoError(t, err)
	ok, _ := p.Eval(row(map[string]any{"mgr": nil}))
	assert.True(t, ok)
}

func TestEvalIn(t *testing.T) {
	p, err := Parse("id IN (1, 2, 3)")
	require.NoError(t, err)
	ok, _ := p.Eval(row(map[string]any{"id": int64(2)}))
	assert.True(t, ok)
	ok, _ = p.Eval(row(map[string]any{"id": int64(9)}))
	assert.False(t, ok)
}

func TestEvalLike(t *testing.T) {
	p, err := Parse("name LIKE '%an%'")
	require.NoError(t, err)
	ok, _ := p.Eval(row(map[string]any{"name": "sandy"}))
	assert.True(t, ok)
}

func TestColumnsIncludesBothSidesOfJoin(t *testing.T) {
	p, err := Parse("e.dept = d.id AND d.region = 'NA'")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"e.dept", "d.id", "d.region"}, p.Columns())
}
