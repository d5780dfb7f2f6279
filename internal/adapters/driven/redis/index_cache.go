package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IndexCache = (*IndexCache)(nil)

const (
	defaultNamespace = "sercha-fuzzy:"
	scanBatch        = 500
)

// IndexCache implements driven.IndexCache on plain Redis strings.
// Every key is stored under a namespace so instances sharing a Redis can be separated.
type IndexCache struct {
	client    *redis.Client
	namespace string
}

// NewIndexCache creates a Redis-backed IndexCache. An empty namespace uses the default.
func NewIndexCache(client *redis.Client, namespace string) *IndexCache {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &IndexCache{client: client, namespace: namespace}
}

func (c *IndexCache) key(k string) string {
	return c.namespace + k
}

// Get returns the stored value or domain.ErrNotFound
func (c *IndexCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Set stores value with a TTL; a non-positive TTL stores without expiry
func (c *IndexCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys
func (c *IndexCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

// DeletePrefix removes every key under prefix using SCAN, never KEYS
func (c *IndexCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	pattern := escapeGlob(c.key(prefix)) + "*"
	removed := 0
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("scan %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("delete prefix %s: %w", prefix, err)
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// Ping checks if the Redis backend is healthy.
func (c *IndexCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
