package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driving"
)

const archiveLockName = "archive-search-logs"

// ArchiveScheduler periodically removes search logs past the retention window.
//
// For multi-instance deployments, configure a DistributedLock so only one
// instance archives per cycle.
type ArchiveScheduler struct {
	analytics     driving.AnalyticsService
	lock          driven.DistributedLock
	logger        *slog.Logger
	retentionDays int

	// Internal state
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	lockTTL        time.Duration
	runWithoutLock bool
}

// ArchiveSchedulerConfig holds configuration for the archive scheduler.
type ArchiveSchedulerConfig struct {
	Analytics     driving.AnalyticsService
	Lock          driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Logger        *slog.Logger
	RetentionDays int
	Interval      time.Duration // How often to archive (default: 24h)
	LockTTL       time.Duration // TTL for the distributed lock (default: 10m)

	// RunWithoutLock archives anyway when the lock backend fails.
	// A lock held by another instance still skips the cycle.
	RunWithoutLock bool
}

// NewArchiveScheduler creates a new archive scheduler.
func NewArchiveScheduler(cfg ArchiveSchedulerConfig) *ArchiveScheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = 24 * time.Hour
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}

	return &ArchiveScheduler{
		analytics:     cfg.Analytics,
		lock:          cfg.Lock,
		logger:        logger,
		retentionDays: cfg.RetentionDays,
		interval:      interval,
		lockTTL:        lockTTL,
		runWithoutLock: cfg.RunWithoutLock,
	}
}

// Start begins the archive loop.
// It runs until Stop is called or context is cancelled.
func (s *ArchiveScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("archive scheduler starting", "interval", s.interval, "retention_days", s.retentionDays)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *ArchiveScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("archive scheduler stopped")
}

// IsRunning reports whether the loop is active
func (s *ArchiveScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *ArchiveScheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("archive scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one archive cycle and returns the number of logs removed.
// When a lock is configured and held elsewhere, the cycle is skipped. While
// the pass runs the lock is extended every half TTL so a slow delete cannot
// outlive it.
func (s *ArchiveScheduler) RunOnce(ctx context.Context) int64 {
	if s.lock == nil {
		return s.analytics.ArchiveLogs(ctx, s.retentionDays)
	}

	acquired, err := s.lock.Acquire(ctx, archiveLockName, s.lockTTL)
	switch {
	case err != nil && s.runWithoutLock:
		s.logger.Warn("failed to acquire archive lock, archiving without it", "error", err)
		return s.analytics.ArchiveLogs(ctx, s.retentionDays)
	case err != nil:
		s.logger.Warn("failed to acquire archive lock, skipping cycle", "error", err)
		return 0
	case !acquired:
		s.logger.Debug("archive lock held by another instance, skipping cycle")
		return 0
	}

	stop := s.keepLock(ctx)
	defer func() {
		stop()
		if err := s.lock.Release(ctx, archiveLockName); err != nil {
			s.logger.Warn("failed to release archive lock", "error", err)
		}
	}()

	return s.analytics.ArchiveLogs(ctx, s.retentionDays)
}

// keepLock extends the archive lock until the returned func is called or the
// lock is lost.
func (s *ArchiveScheduler) keepLock(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(max(s.lockTTL/2, time.Millisecond))
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := s.lock.Extend(ctx, archiveLockName, s.lockTTL)
				if errors.Is(err, domain.ErrLockNotHeld) {
					s.logger.Warn("archive lock lost during archive pass", "error", err)
					return
				}
				if err != nil {
					s.logger.Warn("failed to extend archive lock", "error", err)
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}
