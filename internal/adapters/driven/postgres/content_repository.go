package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ContentRepository = (*ContentRepository)(nil)

// postSelect denormalizes a post with its category, author and tag names
const postSelect = `
	SELECT p.id, p.title, COALESCE(p.excerpt, ''), COALESCE(p.content, ''), p.status,
	       p.published_at, p.deleted_at, COALESCE(c.name, ''), COALESCE(u.name, ''),
	       COALESCE(array_agg(t.name ORDER BY t.name) FILTER (WHERE t.name IS NOT NULL), '{}')
	FROM posts p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN users u ON u.id = p.user_id
	LEFT JOIN post_tag pt ON pt.post_id = p.id
	LEFT JOIN tags t ON t.id = pt.tag_id
`

const postGroupBy = ` GROUP BY p.id, c.name, u.name `

// termSelect reads tags or categories with their soft-delete marker
func termSelect(indexType domain.IndexType) string {
	return `SELECT id, name, deleted_at FROM ` + string(indexType)
}

// ContentRepository reads CMS posts, tags and categories. It never writes.
type ContentRepository struct {
	db *DB
}

// NewContentRepository creates a new ContentRepository
func NewContentRepository(db *DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// ListPublished returns eligible items ordered by id
func (r *ContentRepository) ListPublished(ctx context.Context, indexType domain.IndexType) ([]*domain.ContentItem, error) {
	switch indexType {
	case domain.IndexTypePosts:
		query := postSelect + `
			WHERE p.status = 'published'
			  AND p.deleted_at IS NULL
			  AND (p.published_at IS NULL OR p.published_at <= NOW())
		` + postGroupBy + ` ORDER BY p.id`
		return r.queryPosts(ctx, query)
	case domain.IndexTypeTags, domain.IndexTypeCategories:
		return r.queryTerms(ctx, indexType, termSelect(indexType)+` WHERE deleted_at IS NULL ORDER BY id`)
	}
	return nil, fmt.Errorf("%w: unknown index type %q", domain.ErrInvalidInput, indexType)
}

// Get retrieves a single item regardless of its status
func (r *ContentRepository) Get(ctx context.Context, indexType domain.IndexType, id int64) (*domain.ContentItem, error) {
	var (
		items []*domain.ContentItem
		err   error
	)
	switch indexType {
	case domain.IndexTypePosts:
		items, err = r.queryPosts(ctx, postSelect+` WHERE p.id = $1 `+postGroupBy, id)
	case domain.IndexTypeTags, domain.IndexTypeCategories:
		items, err = r.queryTerms(ctx, indexType, termSelect(indexType)+` WHERE id = $1`, id)
	default:
		return nil, fmt.Errorf("%w: unknown index type %q", domain.ErrInvalidInput, indexType)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrNotFound
	}
	return items[0], nil
}

func (r *ContentRepository) queryPosts(ctx context.Context, query string, args ...any) ([]*domain.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.ContentItem
	for rows.Next() {
		item := &domain.ContentItem{Type: domain.IndexTypePosts}
		var status string
		var publishedAt, deletedAt sql.NullTime
		var tags []string

		err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Excerpt,
			&item.Content,
			&status,
			&publishedAt,
			&deletedAt,
			&item.Category,
			&item.Author,
			pq.Array(&tags),
		)
		if err != nil {
			return nil, err
		}
		item.Status = domain.ContentStatus(status)
		item.PublishedAt = TimePtr(publishedAt)
		item.DeletedAt = TimePtr(deletedAt)
		if len(tags) > 0 {
			item.Tags = tags
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ContentRepository) queryTerms(ctx context.Context, indexType domain.IndexType, query string, args ...any) ([]*domain.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.ContentItem
	for rows.Next() {
		item := &domain.ContentItem{Type: indexType}
		var deletedAt sql.NullTime
		if err := rows.Scan(&item.ID, &item.Title, &deletedAt); err != nil {
			return nil, err
		}
		item.DeletedAt = TimePtr(deletedAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
