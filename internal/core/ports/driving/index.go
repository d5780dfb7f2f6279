package driving

import (
	"context"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
)

// IndexService maintains the cached search indexes
type IndexService interface {
	// BuildIndex rebuilds the posts index and returns the number of records
	BuildIndex(ctx context.Context) (int, error)

	// GetIndex returns the snapshot for an index type, rebuilding it when absent or expired
	GetIndex(ctx context.Context, indexType domain.IndexType) ([]*domain.SearchableRecord, error)

	// IndexRecord adds or replaces an eligible item; ineligible items are ignored
	IndexRecord(ctx context.Context, item *domain.ContentItem) error

	// UpdateRecord re-evaluates eligibility, removing or upserting the item
	UpdateRecord(ctx context.Context, item *domain.ContentItem) error

	// RemoveRecord deletes a record; absent records are not an error
	RemoveRecord(ctx context.Context, indexType domain.IndexType, id int64) error

	// IndexPost, UpdatePost and RemovePost are the post-typed forms of the record operations
	IndexPost(ctx context.Context, post *domain.ContentItem) error
	UpdatePost(ctx context.Context, post *domain.ContentItem) error
	RemovePost(ctx context.Context, id int64) error

	// RebuildIndex rebuilds one index type
	RebuildIndex(ctx context.Context, indexType domain.IndexType) (int, error)

	// InvalidateSearchCaches drops every index snapshot and suggestion list
	InvalidateSearchCaches(ctx context.Context) error

	// ClearSuggestionCache drops the cached suggestions for one prefix
	ClearSuggestionCache(ctx context.Context, prefix string) error

	// GetIndexStats reports size and cache state per index type
	GetIndexStats(ctx context.Context) (map[domain.IndexType]domain.IndexStats, error)
}
