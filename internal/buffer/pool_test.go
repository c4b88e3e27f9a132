package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPageHitAndMiss(t *testing.T) {
	p := New(2)
	loads := 0
	loader := func(id string) ([]byte, error) {
		loads++
		return []byte(id), nil
	}

	data, err := p.GetPage("a", loader)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)
	assert.Equal(t, 1, loads)

	_, err = p.GetPage("a", loader)
	require.NoError(t, err)
	assert.Equal(t, 1, loads, "second get should hit, not reload")

	stats := p.Stats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestEvictionFailsWhenAllPinned(t *testing.T) {
	p := New(1)
	loader := func(id string) ([]byte, error) { return []byte(id), nil }

	_, err := p.GetPage("a", loader)
	require.NoError(t, err)

	_, err = p.GetPage("b", loader)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no unpinned page available")
}

func TestEvictionSucceedsAfterUnpin(t *testing.T) {
	p := New(1)
	loader := func(id string) ([]byte, error) { return []byte(id), nil }

	_, err := p.GetPage("a", loader)
	require.NoError(t, err)
	p.UnpinPage("a")

	data, err := p.GetPage("b", loader)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), data)
	assert.Equal(t, 1, p.Len())
}

func TestFlushPageWritesThroughAndClearsDirty(t *testing.T) {
	p := New(2)
	require.NoError(t, p.PutPage("a", []byte("v1"), true))

	var written []byte
	writer := func(id string, data []byte) error {
		written = data
		return nil
	}
	require.NoError(t, p.FlushPage("a", writer))
	assert.Equal(t, []byte("v1"), written)

	stats := p.Stats()
	assert.Equal(t, 0, stats.Dirty)
}

func TestFlushAllOnlyWritesDirty(t *testing.T) {
	p := New(3)
	require.NoError(t, p.PutPage("a", []byte("1"), true))
	require.NoError(t, p.PutPage("b", []byte("2"), false))

	var flushed []string
	writer := func(id string, data []byte) error {
		flushed = append(flushed, id)
		return nil
	}
	require.NoError(t, p.FlushAll(writer))
	assert.Equal(t, []string{"a"}, flushed)
}
