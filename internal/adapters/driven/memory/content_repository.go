package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ContentRepository = (*ContentRepository)(nil)

// ContentRepository holds CMS content in memory. It is used by the one-shot
// CLI modes when no database is configured and by seeding tools.
type ContentRepository struct {
	mu    sync.RWMutex
	items map[domain.IndexType]map[int64]*domain.ContentItem
	now   func() time.Time
}

// NewContentRepository creates a repository seeded with items
func NewContentRepository(items ...*domain.ContentItem) *ContentRepository {
	r := &ContentRepository{
		items: make(map[domain.IndexType]map[int64]*domain.ContentItem),
		now:   time.Now,
	}
	r.Save(items...)
	return r
}

// Save stores or replaces items by type and id
func (r *ContentRepository) Save(items ...*domain.ContentItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		if item == nil {
			continue
		}
		if r.items[item.Type] == nil {
			r.items[item.Type] = make(map[int64]*domain.ContentItem)
		}
		r.items[item.Type][item.ID] = cloneItem(item)
	}
}

// Delete removes an item
func (r *ContentRepository) Delete(indexType domain.IndexType, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items[indexType], id)
}

// ListPublished returns eligible items ordered by id
func (r *ContentRepository) ListPublished(ctx context.Context, indexType domain.IndexType) ([]*domain.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	out := make([]*domain.ContentItem, 0, len(r.items[indexType]))
	for _, item := range r.items[indexType] {
		if item.IsEligible(now) {
			out = append(out, cloneItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ContentRepository) Get(ctx context.Context, indexType domain.IndexType, id int64) (*domain.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[indexType][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneItem(item), nil
}

func cloneItem(item *domain.ContentItem) *domain.ContentItem {
	cp := *item
	cp.Tags = append([]string(nil), item.Tags...)
	return &cp
}
