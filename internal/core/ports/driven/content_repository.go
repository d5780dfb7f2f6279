package driven

import (
	"context"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
)

// ContentRepository reads CMS content. The search core never writes to it.
type ContentRepository interface {
	// ListPublished returns every item of the given type that is eligible for
	// public display. Implementations may return extra items; the index store
	// re-checks eligibility.
	ListPublished(ctx context.Context, indexType domain.IndexType) ([]*domain.ContentItem, error)

	// Get retrieves a single item regardless of its status.
	// Returns domain.ErrNotFound when the item does not exist.
	Get(ctx context.Context, indexType domain.IndexType, id int64) (*domain.ContentItem, error)
}
