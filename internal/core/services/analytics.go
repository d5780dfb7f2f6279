package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driving"
)

// Ensure analyticsService implements AnalyticsService
var _ driving.AnalyticsService = (*analyticsService)(nil)

// analyticsService implements the AnalyticsService interface
type analyticsService struct {
	store  driven.SearchLogStore
	logger *slog.Logger
	now    func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(store driven.SearchLogStore, logger *slog.Logger) driving.AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &analyticsService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// LogQuery writes one query log. Failures are logged and returned in the outcome.
func (s *analyticsService) LogQuery(ctx context.Context, query string, resultCount int, executionTimeMs float64, meta domain.QueryMetadata) domain.AnalyticsOutcome {
	id := meta.ID
	if id == "" {
		id = uuid.New().String()
	}
	out := domain.AnalyticsOutcome{Operation: "log_query", LogID: id}

	searchType := meta.SearchType
	if searchType == "" {
		searchType = domain.SearchTypeStandard
	}
	entry := &domain.SearchQueryLog{
		ID:              id,
		Query:           strings.TrimSpace(query),
		ResultCount:     max(resultCount, 0),
		ExecutionTimeMs: max(executionTimeMs, 0),
		SearchType:      searchType,
		FuzzyEnabled:    meta.FuzzyEnabled,
		Threshold:       meta.Threshold,
		Filters:         meta.Filters,
		UserID:          meta.Client.UserID,
		IPAddress:       meta.Client.IPAddress,
		UserAgent:       meta.Client.UserAgent,
		CreatedAt:       s.now(),
	}
	if entry.Filters == nil {
		entry.Filters = map[string]string{}
	}

	if err := s.store.SaveQuery(ctx, entry); err != nil {
		out.Err = fmt.Errorf("save query log: %w", err)
		s.logger.Error("failed to log search query", "search_id", id, "error", err)
		return out
	}
	out.Affected = 1
	return out
}

// LogClick records a result selection. Unknown or malformed log ids are
// reported in the outcome, never returned as errors.
func (s *analyticsService) LogClick(ctx context.Context, searchLogID string, recordID int64, position int) domain.AnalyticsOutcome {
	out := domain.AnalyticsOutcome{Operation: "log_click", LogID: searchLogID}

	if _, err := uuid.Parse(searchLogID); err != nil {
		out.Err = fmt.Errorf("%w: malformed search log id %q", domain.ErrInvalidInput, searchLogID)
		s.logger.Warn("rejected click", "search_id", searchLogID, "error", out.Err)
		return out
	}
	if position < 1 {
		out.Err = fmt.Errorf("%w: position must be at least 1, got %d", domain.ErrInvalidInput, position)
		s.logger.Warn("rejected click", "search_id", searchLogID, "error", out.Err)
		return out
	}

	click := &domain.SearchClickEvent{
		SearchLogID: searchLogID,
		RecordID:    recordID,
		Position:    position,
		CreatedAt:   s.now(),
	}
	if err := s.store.SaveClick(ctx, click); err != nil {
		out.Err = fmt.Errorf("save click: %w", err)
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("click references unknown search", "search_id", searchLogID, "record_id", recordID)
		} else {
			s.logger.Error("failed to log click", "search_id", searchLogID, "error", err)
		}
		return out
	}
	out.Affected = 1
	return out
}

// TopQueries returns the most frequent queries in the period
func (s *analyticsService) TopQueries(ctx context.Context, limit int, period domain.Period) ([]domain.QueryCount, error) {
	return s.store.TopQueries(ctx, period.Since(s.now()), reportLimit(limit), false)
}

// NoResultQueries returns the most frequent zero-result queries of all time
func (s *analyticsService) NoResultQueries(ctx context.Context, limit int) ([]domain.QueryCount, error) {
	return s.store.TopQueries(ctx, time.Time{}, reportLimit(limit), true)
}

// PerformanceMetrics returns rounded execution statistics; zeros when no logs exist
func (s *analyticsService) PerformanceMetrics(ctx context.Context, period domain.Period) (*domain.PerformanceMetrics, error) {
	m, err := s.store.PerformanceStats(ctx, period.Since(s.now()))
	if err != nil {
		return nil, err
	}
	m.Finalize()
	return m, nil
}

// ClickThroughRate returns the percentage of searches with at least one click
func (s *analyticsService) ClickThroughRate(ctx context.Context, period domain.Period) (float64, error) {
	total, clicked, err := s.store.ClickThroughCounts(ctx, period.Since(s.now()))
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return domain.Round2(float64(clicked) / float64(total) * 100), nil
}

// MostClickedPosts ranks records by clicks on searches made in the period
func (s *analyticsService) MostClickedPosts(ctx context.Context, limit int, period domain.Period) ([]domain.ClickedRecord, error) {
	return s.store.MostClicked(ctx, period.Since(s.now()), reportLimit(limit))
}

// ArchiveLogs removes logs older than daysToKeep days. Returns 0 on failure.
func (s *analyticsService) ArchiveLogs(ctx context.Context, daysToKeep int) int64 {
	if daysToKeep < 0 {
		s.logger.Warn("refusing to archive with negative retention", "days_to_keep", daysToKeep)
		return 0
	}
	cutoff := s.now().AddDate(0, 0, -daysToKeep)
	n, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to archive search logs", "cutoff", cutoff, "error", err)
		return 0
	}
	if n > 0 {
		s.logger.Info("archived search logs", "removed", n, "cutoff", cutoff)
	}
	return n
}

func reportLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	return limit
}
