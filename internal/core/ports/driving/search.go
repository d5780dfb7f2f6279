package driving

import (
	"context"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
)

// SearchService runs fuzzy searches over the cached indexes
type SearchService interface {
	// Search scores every record of opts.Type against query, keeps those at or
	// above the threshold that pass opts.Filters, and ranks them.
	// Returns *domain.InvalidQueryError before touching any index when the query is rejected.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)

	// SearchPosts is Search restricted to the posts index
	SearchPosts(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)

	// MultiFieldSearch scores each named field separately and combines them
	// into a weighted average using the configured field weights.
	MultiFieldSearch(ctx context.Context, query string, fields []string, opts domain.SearchOptions) (*domain.SearchResponse, error)

	// Suggestions returns up to limit distinct titles/terms for autocomplete
	Suggestions(ctx context.Context, prefix string, limit int) ([]string, error)

	// IsEnabled reports whether fuzzy matching is active for an index type
	IsEnabled(indexType domain.IndexType) bool
}
