package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates periodic maintenance (log archival) across
// instances so only one of them runs a given cycle.
type DistributedLock interface {
	// Acquire attempts to take a named lock for ttl.
	// Returns false without error when another instance holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock held by this instance.
	// Safe to call when the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a lock held by this instance.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
