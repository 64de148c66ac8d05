package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorCache_PutGet(t *testing.T) {
	cache, err := NewVectorCache(8)
	require.NoError(t, err)

	cache.Put("blue pottery", []float32{1, 2, 3})

	vector, ok := cache.Get("blue pottery")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, vector)

	_, ok = cache.Get("unknown")
	assert.False(t, ok)
}

func TestVectorCache_KeyNormalization(t *testing.T) {
	cache, err := NewVectorCache(8)
	require.NoError(t, err)

	cache.Put("  Blue Pottery ", []float32{1})

	vector, ok := cache.Get("blue pottery")
	require.True(t, ok)
	assert.Equal(t, []float32{1}, vector)
	assert.Equal(t, 1, cache.Len())
}

func TestVectorCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewVectorCache(2)
	require.NoError(t, err)

	cache.Put("a", []float32{1})
	cache.Put("b", []float32{2})

	// Touch "a" so "b" is the eviction candidate.
	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Put("c", []float32{3})

	_, ok = cache.Get("b")
	assert.False(t, ok)
	_, ok = cache.Get("a")
	assert.True(t, ok)
	_, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestVectorCache_BoundedSize(t *testing.T) {
	cache, err := NewVectorCache(4)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		cache.Put(fmt.Sprintf("text-%d", i), []float32{float32(i)})
	}

	assert.Equal(t, 4, cache.Len())
}

func TestVectorCache_DefaultSizeForInvalidInput(t *testing.T) {
	cache, err := NewVectorCache(-1)
	require.NoError(t, err)

	cache.Put("a", []float32{1})
	assert.Equal(t, 1, cache.Len())
}

func TestVectorCache_Purge(t *testing.T) {
	cache, err := NewVectorCache(8)
	require.NoError(t, err)

	cache.Put("a", []float32{1})
	cache.Purge()
	assert.Zero(t, cache.Len())
}
