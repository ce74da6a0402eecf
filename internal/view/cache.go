// Package view retrieves view templates by id and memoizes them for the
// life of the process.
package view

import (
	"slices"
	"sync"
)

// Cache maps view ids to template content. Entries are written once and
// never replaced or invalidated.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Get returns the content cached for id.
func (c *Cache) Get(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	content, ok := c.entries[id]
	return content, ok
}

// Store records content for id unless an entry already exists. It returns
// the content that is cached after the call and whether this call wrote it.
func (c *Cache) Store(id, content string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[id]; ok {
		return existing, false
	}
	c.entries[id] = content
	return content, true
}

// Len returns the number of cached views.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// IDs returns the cached view ids in sorted order.
func (c *Cache) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	slices.Sort(ids)
	return ids
}
