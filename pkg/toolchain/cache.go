package toolchain

import (
	"context"
	"sync"
)

// MemoryCache keeps artifacts in process memory.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string][]byte)}
}

// Get returns a copy of the artifact stored under digest.
func (c *MemoryCache) Get(_ context.Context, digest string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.items[digest]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Put stores a copy of artifact under digest.
func (c *MemoryCache) Put(_ context.Context, digest string, artifact []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[digest] = append([]byte(nil), artifact...)
	return nil
}

// Len returns the number of stored artifacts.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
