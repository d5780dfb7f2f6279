package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
)

func TestContentRepository_ListPublishedFiltersIneligible(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	repo := NewContentRepository(
		&domain.ContentItem{ID: 2, Type: domain.IndexTypePosts, Title: "Live", Status: domain.ContentStatusPublished, PublishedAt: &past},
		&domain.ContentItem{ID: 1, Type: domain.IndexTypePosts, Title: "Draft", Status: domain.ContentStatusDraft},
		&domain.ContentItem{ID: 3, Type: domain.IndexTypePosts, Title: "Later", Status: domain.ContentStatusPublished, PublishedAt: &future},
		&domain.ContentItem{ID: 4, Type: domain.IndexTypeTags, Title: "go"},
	)

	posts, err := repo.ListPublished(context.Background(), domain.IndexTypePosts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != 2 {
		t.Errorf("expected only post 2, got %+v", posts)
	}

	tags, _ := repo.ListPublished(context.Background(), domain.IndexTypeTags)
	if len(tags) != 1 {
		t.Errorf("expected 1 tag, got %d", len(tags))
	}
}

func TestContentRepository_Get(t *testing.T) {
	repo := NewContentRepository(&domain.ContentItem{ID: 1, Type: domain.IndexTypePosts, Title: "Draft", Status: domain.ContentStatusDraft})

	item, err := repo.Get(context.Background(), domain.IndexTypePosts, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Title != "Draft" {
		t.Errorf("expected Draft, got %s", item.Title)
	}

	repo.Delete(domain.IndexTypePosts, 1)
	if _, err := repo.Get(context.Background(), domain.IndexTypePosts, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
