package cache

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultVectorCacheSize bounds the embedding cache when no size is configured.
const DefaultVectorCacheSize = 4096

// VectorCache is a bounded, concurrency-safe cache of embedding vectors keyed
// by normalized text. It is constructed once and injected into the embedding
// service, so cache lifetime matches process lifetime and tests can use
// isolated instances.
type VectorCache struct {
	entries *lru.Cache[string, []float32]
}

// NewVectorCache creates a vector cache holding at most size entries.
func NewVectorCache(size int) (*VectorCache, error) {
	if size <= 0 {
		size = DefaultVectorCacheSize
	}
	entries, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &VectorCache{entries: entries}, nil
}

// Key normalizes text into its cache key.
func Key(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Get returns the cached vector for text, if present.
func (c *VectorCache) Get(text string) ([]float32, bool) {
	return c.entries.Get(Key(text))
}

// Put stores a vector for text.
func (c *VectorCache) Put(text string, vector []float32) {
	c.entries.Add(Key(text), vector)
}

// Len returns the number of cached vectors.
func (c *VectorCache) Len() int {
	return c.entries.Len()
}

// Purge empties the cache.
func (c *VectorCache) Purge() {
	c.entries.Purge()
}
