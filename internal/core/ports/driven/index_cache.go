package driven

import (
	"context"
	"time"
)

// IndexCache is the key-value store with TTL that shares index snapshots and
// suggestion lists between instances (Redis, or in-memory for single nodes).
type IndexCache interface {
	// Get returns the value stored at key, or domain.ErrNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeletePrefix removes every key starting with prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
