// Package memory provides an in-memory chunk-result cache.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/inquest-cli/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.ResultCache = (*Cache)(nil)

// Cache is a process-local result cache. Entries are lost when the
// process exits; useful for tests and one-shot sessions.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]driven.CachedResult
}

// NewCache creates an empty in-memory cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]driven.CachedResult),
	}
}

// Get retrieves a cached result. The second return is false on a cache
// miss.
func (c *Cache) Get(_ context.Context, key string) (driven.CachedResult, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.entries[key]
	return result, ok, nil
}

// Put stores a result under the key, overwriting any existing entry.
func (c *Cache) Put(_ context.Context, key string, result driven.CachedResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
	return nil
}

// Clear removes all entries.
func (c *Cache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]driven.CachedResult)
	return nil
}

// Len returns the number of entries in the cache.
func (c *Cache) Len(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

// Close releases resources.
func (c *Cache) Close() error {
	return nil
}
