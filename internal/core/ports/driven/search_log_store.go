package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
)

// SearchLogStore persists query logs and click events and answers the
// aggregate questions asked by reporting surfaces.
type SearchLogStore interface {
	// SaveQuery inserts a query log. The log's ID is assigned by the caller.
	SaveQuery(ctx context.Context, log *domain.SearchQueryLog) error

	// SaveClick inserts a click event and assigns its ID.
	// Returns domain.ErrNotFound when the referenced query log does not exist.
	SaveClick(ctx context.Context, click *domain.SearchClickEvent) error

	// TopQueries groups logs created at or after since by normalized query
	// text, most frequent first. noResultsOnly restricts to result_count = 0.
	TopQueries(ctx context.Context, since time.Time, limit int, noResultsOnly bool) ([]domain.QueryCount, error)

	// PerformanceStats aggregates logs created at or after since.
	// Returned averages are not rounded.
	PerformanceStats(ctx context.Context, since time.Time) (*domain.PerformanceMetrics, error)

	// ClickThroughCounts returns the number of logs created at or after since
	// and how many of them have at least one click.
	ClickThroughCounts(ctx context.Context, since time.Time) (total, clicked int64, err error)

	// MostClicked counts clicks per record over logs created at or after since.
	MostClicked(ctx context.Context, since time.Time, limit int) ([]domain.ClickedRecord, error)

	// DeleteOlderThan removes logs created before cutoff, with their clicks,
	// and returns how many logs were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
