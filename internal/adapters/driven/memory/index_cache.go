// Package memory provides in-process implementations of the driven ports for
// single-node deployments and tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IndexCache = (*IndexCache)(nil)

type cacheEntry struct {
	value   []byte
	expires time.Time
}

// IndexCache is a map-backed IndexCache with lazy expiry
type IndexCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewIndexCache creates an empty cache
func NewIndexCache() *IndexCache {
	return &IndexCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *IndexCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (c *IndexCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := cacheEntry{value: make([]byte, len(value))}
	copy(e.value, value)
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

func (c *IndexCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *IndexCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n, nil
}

func (c *IndexCache) Ping(ctx context.Context) error {
	return nil
}
