package store

import (
	"context"
	"sync"
)

// MemoryCache is an in-process ResultCache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*Entry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	cp := *e
	return &cp, nil
}

func (c *MemoryCache) Set(_ context.Context, e *Entry) error {
	cp := *e
	c.mu.Lock()
	c.entries[e.Key] = &cp
	c.mu.Unlock()
	return nil
}

// Len reports the number of entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
