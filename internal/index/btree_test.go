package index

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertSearch(t *testing.T) {
	idx := New()
	idx.Insert(int64(5), 1)
	idx.Insert(int64(5), 2)
	idx.Insert(int64(3), 3)

	assert.Equal(t, []RID{1, 2}, idx.Search(int64(5)))
	assert.Equal(t, []RID{3}, idx.Search(int64(3)))
	assert.Empty(t, idx.Search(int64(99)))
}

func TestInsertDuplicateCoalesced(t *testing.T) {
	idx := New()
	idx.Insert(int64(1), 10)
	idx.Insert(int64(1), 10)
	assert.Equal(t, []RID{10}, idx.Search(int64(1)))
}

func TestRangeInclusiveBothEnds(t *testing.T) {
	idx := New()
	for i := int64(0); i < 10; i++ {
		idx.Insert(i, RID(i))
	}
	got := idx.Range(int64(3), int64(6))
	assert.ElementsMatch(t, []RID{3, 4, 5, 6}, got)
}

func TestRangeOpenSentinels(t *testing.T) {
	idx := New()
	for i := int64(0); i < 5; i++ {
		idx.Insert(i, RID(i))
	}
	got := idx.Range(nil, int64(1))
	assert.ElementsMatch(t, []RID{0, 1}, got)

	got = idx.Range(int64(3), nil)
	assert.ElementsMatch(t, []RID{3, 4}, got)
}

func TestRangeLoGreaterThanHiEmpty(t *testing.T) {
	idx := New()
	idx.Insert(int64(1), 1)
	idx.Insert(int64(2), 2)
	assert.Empty(t, idx.Range(int64(2), int64(1)))
}

func TestDeleteNoop(t *testing.T) {
	idx := New()
	idx.Insert(int64(1), 1)
	idx.Delete(int64(99), 99)
	assert.Equal(t, []RID{1}, idx.Search(int64(1)))

	idx.Delete(int64(1), 1)
	assert.Empty(t, idx.Search(int64(1)))
	assert.Equal(t, 0, idx.Len())
}

func TestPersistLoad(t *testing.T) {
	idx := New()
	idx.Insert(int64(3), 1)
	idx.Insert(int64(1), 2)
	idx.Insert("b", 3)
	idx.Insert("a", 4)

	path := filepath.Join(t.TempDir(), "idx.json")
	require.NoError(t, idx.Persist(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []RID{1}, loaded.Search(int64(3)))
	assert.Equal(t, []RID{2}, loaded.Search(int64(1)))
	assert.Equal(t, []RID{3}, loaded.Search("b"))
	assert.Equal(t, []RID{4}, loaded.Search("a"))
	assert.Equal(t, 4, loaded.Len())
}

func TestCompareNaNGreaterThanAnyNumber(t *testing.T) {
	nan := math.NaN()
	assert.Equal(t, 1, Compare(nan, int64(100)))
	assert.Equal(t, -1, Compare(int64(100), nan))
	assert.Equal(t, 0, Compare(nan, nan))
}

func TestCompareStringsLexicographic(t *testing.T) {
	assert.Equal(t, -1, Compare("apple", "banana"))
	assert.Equal(t, 1, Compare("banana", "apple"))
	assert.Equal(t, 0, Compare("same", "same"))
}
