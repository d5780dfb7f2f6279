package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestNewLock_OwnerIDs(t *testing.T) {
	client, _ := setupTestRedis(t)

	a, b := NewLock(client, ""), NewLock(client, "")
	if a.OwnerID() == "" {
		t.Fatal("expected non-empty owner ID")
	}
	if a.OwnerID() == b.OwnerID() {
		t.Errorf("expected unique owner IDs, got %s twice", a.OwnerID())
	}
}

func TestLock_AcquireRelease(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client, "")

	ok, err := lock.Acquire(ctx, "archive-search-logs", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected to acquire lock, got %v, %v", ok, err)
	}

	got, err := mr.Get(defaultNamespace + "lock:" + "archive-search-logs")
	if err != nil || got != lock.OwnerID() {
		t.Errorf("expected owner id stored in redis, got %q (%v)", got, err)
	}

	// Not reentrant
	ok, _ = lock.Acquire(ctx, "archive-search-logs", time.Minute)
	if ok {
		t.Error("expected second acquire to fail")
	}

	if err := lock.Release(ctx, "archive-search-logs"); err != nil {
		t.Fatalf("unexpected release error: %v", err)
	}
	if mr.Exists(defaultNamespace + "lock:" + "archive-search-logs") {
		t.Error("expected lock key to be deleted")
	}
}

func TestLock_OtherInstance(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	mine, theirs := NewLock(client, ""), NewLock(client, "")

	if ok, _ := mine.Acquire(ctx, "archive", time.Minute); !ok {
		t.Fatal("expected to acquire lock")
	}
	if ok, _ := theirs.Acquire(ctx, "archive", time.Minute); ok {
		t.Error("expected other instance to be refused")
	}

	// Another owner can neither release nor extend
	if err := theirs.Release(ctx, "archive"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mr.Exists(defaultNamespace + "lock:" + "archive") {
		t.Error("lock must survive release by another owner")
	}
	if err := theirs.Extend(ctx, "archive", time.Hour); !errors.Is(err, domain.ErrLockNotHeld) {
		t.Errorf("expected ErrLockNotHeld for another owner, got %v", err)
	}
}

func TestLock_Expiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	mine, theirs := NewLock(client, ""), NewLock(client, "")

	_, _ = mine.Acquire(ctx, "archive", 10*time.Second)
	mr.FastForward(11 * time.Second)

	if ok, _ := theirs.Acquire(ctx, "archive", 10*time.Second); !ok {
		t.Error("expected lock to be free after ttl")
	}
	// Releasing an expired and re-taken lock is a no-op
	if err := mine.Release(ctx, "archive"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mr.Exists(defaultNamespace + "lock:" + "archive") {
		t.Error("expected new owner to keep the lock")
	}
}

func TestLock_Extend(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client, "")

	if err := lock.Extend(ctx, "archive", time.Minute); !errors.Is(err, domain.ErrLockNotHeld) {
		t.Errorf("expected ErrLockNotHeld, got %v", err)
	}

	_, _ = lock.Acquire(ctx, "archive", 10*time.Second)
	if err := lock.Extend(ctx, "archive", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ttl := mr.TTL(defaultNamespace + "lock:" + "archive"); ttl < 50*time.Second {
		t.Errorf("expected extended ttl, got %v", ttl)
	}

	if err := lock.Extend(ctx, "archive", time.Microsecond); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for sub-millisecond ttl, got %v", err)
	}
	if !mr.Exists(defaultNamespace + "lock:" + "archive") {
		t.Error("rejected extend must not drop the lock")
	}
}

func TestLock_Namespaces(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	blue, green := NewLock(client, "blue:"), NewLock(client, "green:")

	a, _ := blue.Acquire(ctx, "archive-search-logs", time.Minute)
	b, _ := green.Acquire(ctx, "archive-search-logs", time.Minute)
	if !a || !b {
		t.Errorf("expected separate namespaces not to contend, got %v %v", a, b)
	}
	if !mr.Exists("blue:lock:archive-search-logs") || !mr.Exists("green:lock:archive-search-logs") {
		t.Error("expected namespaced lock keys")
	}
}

func TestLock_IndependentNames(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client, "")

	a, _ := lock.Acquire(ctx, "archive", time.Minute)
	b, _ := lock.Acquire(ctx, "rebuild", time.Minute)
	if !a || !b {
		t.Errorf("expected both locks, got %v %v", a, b)
	}
}

func TestLock_Ping(t *testing.T) {
	client, mr := setupTestRedis(t)
	lock := NewLock(client, "")

	if err := lock.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}

	mr.Close()
	if err := lock.Ping(context.Background()); err == nil {
		t.Error("expected ping to fail after redis shutdown")
	}
}
