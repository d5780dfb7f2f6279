package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driving"
)

// countingAnalytics wraps an AnalyticsService and counts archive calls
type countingAnalytics struct {
	driving.AnalyticsService
	mu       sync.Mutex
	archives []int
	removed  int64
	delay    time.Duration
}

func (c *countingAnalytics) ArchiveLogs(ctx context.Context, daysToKeep int) int64 {
	time.Sleep(c.delay)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.archives = append(c.archives, daysToKeep)
	return c.removed
}

func (c *countingAnalytics) calls() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.archives...)
}

func TestNewArchiveScheduler_Defaults(t *testing.T) {
	s := NewArchiveScheduler(ArchiveSchedulerConfig{Analytics: &countingAnalytics{}})

	if s.interval != 24*time.Hour {
		t.Errorf("expected 24h interval, got %v", s.interval)
	}
	if s.lockTTL != 10*time.Minute {
		t.Errorf("expected 10m lock ttl, got %v", s.lockTTL)
	}
	if s.runWithoutLock {
		t.Error("expected lock failures to skip the cycle by default")
	}
}

func TestArchiveScheduler_RunOnce_NoLock(t *testing.T) {
	analytics := &countingAnalytics{removed: 5}
	s := NewArchiveScheduler(ArchiveSchedulerConfig{Analytics: analytics, RetentionDays: 90})

	if got := s.RunOnce(context.Background()); got != 5 {
		t.Errorf("expected 5 removed, got %d", got)
	}
	if calls := analytics.calls(); len(calls) != 1 || calls[0] != 90 {
		t.Errorf("expected one archive call with 90 days, got %v", calls)
	}
}

func TestArchiveScheduler_RunOnce_WithLock(t *testing.T) {
	analytics := &countingAnalytics{}
	lock := mocks.NewMockDistributedLock()
	s := NewArchiveScheduler(ArchiveSchedulerConfig{Analytics: analytics, Lock: lock, RetentionDays: 30})

	s.RunOnce(context.Background())

	acquired, released := lock.Counts()
	if acquired != 1 || released != 1 {
		t.Errorf("expected lock acquired and released once, got %d/%d", acquired, released)
	}
	if lock.IsHeld(archiveLockName) {
		t.Error("expected lock to be released")
	}
	if len(analytics.calls()) != 1 {
		t.Errorf("expected one archive call, got %d", len(analytics.calls()))
	}
}

func TestArchiveScheduler_RunOnce_LockHeldElsewhere(t *testing.T) {
	analytics := &countingAnalytics{}
	lock := mocks.NewMockDistributedLock()
	lock.Hold(archiveLockName, time.Minute)
	s := NewArchiveScheduler(ArchiveSchedulerConfig{Analytics: analytics, Lock: lock})

	if got := s.RunOnce(context.Background()); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if len(analytics.calls()) != 0 {
		t.Error("expected archive to be skipped")
	}
}

func TestArchiveScheduler_RunOnce_LockError(t *testing.T) {
	analytics := &countingAnalytics{}
	lock := mocks.NewMockDistributedLock()
	lock.AcquireFn = func(name string, ttl time.Duration) (bool, error) {
		return false, errors.New("redis down")
	}
	s := NewArchiveScheduler(ArchiveSchedulerConfig{Analytics: analytics, Lock: lock})

	s.RunOnce(context.Background())

	if len(analytics.calls()) != 0 {
		t.Error("expected archive to be skipped when the lock backend fails")
	}
}

func TestArchiveScheduler_RunOnce_LockErrorRunWithoutLock(t *testing.T) {
	analytics := &countingAnalytics{removed: 2}
	lock := mocks.NewMockDistributedLock()
	lock.AcquireFn = func(name string, ttl time.Duration) (bool, error) {
		return false, errors.New("redis down")
	}
	s := NewArchiveScheduler(ArchiveSchedulerConfig{Analytics: analytics, Lock: lock, RunWithoutLock: true})

	if got := s.RunOnce(context.Background()); got != 2 {
		t.Errorf("expected 2 removed, got %d", got)
	}
	if len(analytics.calls()) != 1 {
		t.Error("expected archive to run without the lock")
	}
	if _, released := lock.Counts(); released != 0 {
		t.Error("expected no release for a lock never acquired")
	}
}

func TestArchiveScheduler_RunOnce_HeldElsewhereIgnoresRunWithoutLock(t *testing.T) {
	analytics := &countingAnalytics{}
	lock := mocks.NewMockDistributedLock()
	lock.Hold(archiveLockName, time.Minute)
	s := NewArchiveScheduler(ArchiveSchedulerConfig{Analytics: analytics, Lock: lock, RunWithoutLock: true})

	s.RunOnce(context.Background())

	if len(analytics.calls()) != 0 {
		t.Error("expected archive to be skipped while another instance holds the lock")
	}
}

func TestArchiveScheduler_RunOnce_ExtendsLockDuringLongPass(t *testing.T) {
	analytics := &countingAnalytics{delay: 100 * time.Millisecond}
	lock := mocks.NewMockDistributedLock()
	s := NewArchiveScheduler(ArchiveSchedulerConfig{Analytics: analytics, Lock: lock, LockTTL: 20 * time.Millisecond})

	s.RunOnce(context.Background())

	if n := lock.Extensions(); n < 2 {
		t.Errorf("expected the lock to be extended during the pass, got %d extensions", n)
	}
	if lock.IsHeld(archiveLockName) {
		t.Error("expected lock to be released after the pass")
	}
	extended := lock.Extensions()
	time.Sleep(30 * time.Millisecond)
	if lock.Extensions() != extended {
		t.Error("expected the heartbeat to stop with the pass")
	}
}

func TestArchiveScheduler_StartStop(t *testing.T) {
	analytics := &countingAnalytics{}
	s := NewArchiveScheduler(ArchiveSchedulerConfig{
		Analytics: analytics,
		Interval:  10 * time.Millisecond,
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Second start is a no-op
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsRunning() {
		t.Error("expected scheduler to be running")
	}

	deadline := time.Now().Add(time.Second)
	for len(analytics.calls()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	s.Stop()
	s.Stop()

	if s.IsRunning() {
		t.Error("expected scheduler to be stopped")
	}
	if n := len(analytics.calls()); n < 2 {
		t.Errorf("expected at least 2 archive runs, got %d", n)
	}
}

func TestArchiveScheduler_StopsOnContextCancel(t *testing.T) {
	analytics := &countingAnalytics{}
	s := NewArchiveScheduler(ArchiveSchedulerConfig{Analytics: analytics, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	_ = s.Start(ctx)
	cancel()

	select {
	case <-s.doneCh:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

// Archive against the real analytics service through the scheduler
func TestArchiveScheduler_WithAnalyticsService(t *testing.T) {
	store := new(mocks.MockSearchLogStore)
	store.On("DeleteOlderThan", context.Background(), mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	s := NewArchiveScheduler(ArchiveSchedulerConfig{
		Analytics:     NewAnalyticsService(store, nil),
		RetentionDays: domain.DefaultSearchConfig().LogRetentionDays,
	})

	if got := s.RunOnce(context.Background()); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	store.AssertExpectations(t)
}
