package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// embeddingCache is a bounded map from a content hash to a previously
// computed embedding. Keys are sha256 digests of the exact input text so the
// cache memory stays bounded for large inputs. When full, the oldest inserted
// entry is evicted; recency is deliberately not tracked.
type embeddingCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string][]float32
	order    []string // insertion order, oldest first
}

func newEmbeddingCache(capacity int) *embeddingCache {
	if capacity < 1 {
		capacity = 1000
	}
	return &embeddingCache{
		capacity: capacity,
		entries:  make(map[string][]float32, capacity),
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *embeddingCache) get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.entries[cacheKey(text)]
	return vec, ok
}

func (c *embeddingCache) put(text string, embedding []float32) {
	key := cacheKey(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = embedding
}

func (c *embeddingCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
