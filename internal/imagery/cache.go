package imagery

import (
	"context"
	"strings"
	"sync"
)

// maxKeyRunes bounds the length of a cache key.
const maxKeyRunes = 30

// Cache stores resolved image URLs by CacheKey. An empty URL records a search that found
// nothing. Get reports found=false for keys never stored.
type Cache interface {
	Get(ctx context.Context, key string) (imageURL string, found bool, err error)
	Set(ctx context.Context, key, imageURL string) error
}

// CacheKey normalizes a query: lower-cased, runs of whitespace collapsed to one space,
// truncated to 30 runes.
func CacheKey(query string) string {
	key := strings.Join(strings.Fields(strings.ToLower(query)), " ")

	runes := []rune(key)
	if len(runes) > maxKeyRunes {
		key = strings.TrimSpace(string(runes[:maxKeyRunes]))
	}
	return key
}

// MemoryCache is an unbounded in-process Cache that lives as long as the process.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryCache constructs an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	imageURL, ok := c.entries[key]
	return imageURL, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key, imageURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = imageURL
	return nil
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
