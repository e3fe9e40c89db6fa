package services

import (
	"strings"
	"sync"

	"github.com/janovincze/icecat/internal/api/models"
)

// TableResponseCache is a process-local cache of the last materialized load
// envelope per table, keyed by the dotted namespace path plus table name. It
// exists only to give conditional GETs a body: entries are idempotent
// snapshots (last writer wins) and staleness is tolerable because the
// response path overlays fresh config and credentials before returning.
type TableResponseCache struct {
	mu      sync.RWMutex
	entries map[string]models.LoadTableResult
}

// NewTableResponseCache creates an empty cache.
func NewTableResponseCache() *TableResponseCache {
	return &TableResponseCache{entries: make(map[string]models.LoadTableResult)}
}

func cacheKey(namespace []string, table string) string {
	return strings.Join(namespace, ".") + "." + table
}

// Put stores the envelope for a table.
func (c *TableResponseCache) Put(namespace []string, table string, result models.LoadTableResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(namespace, table)] = result
}

// Get returns the stored envelope for a table, if any.
func (c *TableResponseCache) Get(namespace []string, table string) (models.LoadTableResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.entries[cacheKey(namespace, table)]
	return result, ok
}

// Invalidate drops the entry for a table.
func (c *TableResponseCache) Invalidate(namespace []string, table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(namespace, table))
}
