package driving

import (
	"context"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
)

// AnalyticsService records searches and clicks and reports on them.
// Write operations never fail the caller; they report through AnalyticsOutcome.
type AnalyticsService interface {
	// LogQuery records one search execution
	LogQuery(ctx context.Context, query string, resultCount int, executionTimeMs float64, meta domain.QueryMetadata) domain.AnalyticsOutcome

	// LogClick records a result selection for a logged search
	LogClick(ctx context.Context, searchLogID string, recordID int64, position int) domain.AnalyticsOutcome

	// TopQueries returns the most frequent queries in the period
	TopQueries(ctx context.Context, limit int, period domain.Period) ([]domain.QueryCount, error)

	// NoResultQueries returns the most frequent queries that returned nothing
	NoResultQueries(ctx context.Context, limit int) ([]domain.QueryCount, error)

	// PerformanceMetrics aggregates execution statistics for the period
	PerformanceMetrics(ctx context.Context, period domain.Period) (*domain.PerformanceMetrics, error)

	// ClickThroughRate is the percentage of searches in the period with at least one click
	ClickThroughRate(ctx context.Context, period domain.Period) (float64, error)

	// MostClickedPosts ranks records by clicks on searches in the period
	MostClickedPosts(ctx context.Context, limit int, period domain.Period) ([]domain.ClickedRecord, error)

	// ArchiveLogs deletes logs older than daysToKeep days and returns how many were removed.
	// Returns 0 on failure.
	ArchiveLogs(ctx context.Context, daysToKeep int) int64
}
