package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-fuzzy/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven/mocks"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func publishedPost(id int64, title string) *domain.ContentItem {
	return &domain.ContentItem{
		ID:          id,
		Type:        domain.IndexTypePosts,
		Title:       title,
		Status:      domain.ContentStatusPublished,
		PublishedAt: timePtr(time.Now().Add(-time.Duration(id) * time.Hour)),
	}
}

func newTestIndexService(repo *mocks.MockContentRepository, cache *memory.IndexCache) *indexService {
	cfg := IndexServiceConfig{Content: repo, Config: domain.DefaultSearchConfig()}
	if cache != nil {
		cfg.Cache = cache
	}
	return newIndexService(cfg)
}

func indexIDs(records []*domain.SearchableRecord) []int64 {
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestIndexService_BuildIndex(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	draft := publishedPost(3, "Draft")
	draft.Status = domain.ContentStatusDraft
	deleted := publishedPost(4, "Deleted")
	deleted.DeletedAt = timePtr(time.Now())
	scheduled := publishedPost(5, "Scheduled")
	scheduled.PublishedAt = timePtr(time.Now().Add(24 * time.Hour))
	repo.Put(publishedPost(2, "Second"), publishedPost(1, "First"), draft, deleted, scheduled)

	svc := newTestIndexService(repo, nil)

	n, err := svc.BuildIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := svc.GetIndex(context.Background(), domain.IndexTypePosts)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, indexIDs(records))
}

func TestIndexService_BuildIndex_Empty(t *testing.T) {
	svc := newTestIndexService(mocks.NewMockContentRepository(), nil)

	n, err := svc.BuildIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIndexService_GetIndex_CachesUntilTTL(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	repo.Put(publishedPost(1, "First"))
	svc := newTestIndexService(repo, nil)

	now := time.Now()
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := svc.GetIndex(ctx, domain.IndexTypePosts)
	require.NoError(t, err)
	_, err = svc.GetIndex(ctx, domain.IndexTypePosts)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.ListCalls(domain.IndexTypePosts))

	now = now.Add(svc.cfg.IndexTTL)
	_, err = svc.GetIndex(ctx, domain.IndexTypePosts)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.ListCalls(domain.IndexTypePosts))
}

func TestIndexService_GetIndex_ConcurrentCallersBuildOnce(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	repo.Put(publishedPost(1, "First"), publishedPost(2, "Second"))
	svc := newTestIndexService(repo, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, err := svc.GetIndex(context.Background(), domain.IndexTypePosts)
			assert.NoError(t, err)
			assert.Len(t, records, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, repo.ListCalls(domain.IndexTypePosts))
}

func TestIndexService_GetIndex_UnknownType(t *testing.T) {
	svc := newTestIndexService(mocks.NewMockContentRepository(), nil)

	_, err := svc.GetIndex(context.Background(), domain.IndexType("comments"))
	assert.ErrorIs(t, err, domain.ErrSearchIndex)

	var idxErr *domain.SearchIndexError
	require.True(t, errors.As(err, &idxErr))
	assert.Equal(t, domain.IndexType("comments"), idxErr.IndexType)
}

func TestIndexService_RebuildIndex_RepositoryFailure(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	repo.ListErr = domain.ErrServiceUnavailable
	svc := newTestIndexService(repo, nil)

	_, err := svc.RebuildIndex(context.Background(), domain.IndexTypeTags)
	assert.ErrorIs(t, err, domain.ErrSearchIndex)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestIndexService_RebuildIndex_AllTypes(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	repo.Put(
		&domain.ContentItem{ID: 1, Type: domain.IndexTypeTags, Title: "golang"},
		&domain.ContentItem{ID: 2, Type: domain.IndexTypeTags, Title: "old", DeletedAt: timePtr(time.Now())},
		&domain.ContentItem{ID: 1, Type: domain.IndexTypeCategories, Title: "Tutorials"},
	)
	svc := newTestIndexService(repo, nil)

	n, err := svc.RebuildIndex(context.Background(), domain.IndexTypeTags)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.RebuildIndex(context.Background(), domain.IndexTypeCategories)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexService_IndexRecord_Idempotent(t *testing.T) {
	svc := newTestIndexService(mocks.NewMockContentRepository(), nil)
	ctx := context.Background()

	post := publishedPost(7, "Laravel tips")
	require.NoError(t, svc.IndexRecord(ctx, post))
	require.NoError(t, svc.IndexRecord(ctx, post))

	post.Title = "Laravel tricks"
	require.NoError(t, svc.IndexRecord(ctx, post))

	records, err := svc.GetIndex(ctx, domain.IndexTypePosts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Laravel tricks", records[0].Title)
}

func TestIndexService_IndexRecord_IgnoresIneligible(t *testing.T) {
	svc := newTestIndexService(mocks.NewMockContentRepository(), nil)
	ctx := context.Background()

	draft := publishedPost(1, "Draft")
	draft.Status = domain.ContentStatusDraft
	require.NoError(t, svc.IndexRecord(ctx, draft))

	records, err := svc.GetIndex(ctx, domain.IndexTypePosts)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestIndexService_IndexRecord_Nil(t *testing.T) {
	svc := newTestIndexService(mocks.NewMockContentRepository(), nil)

	err := svc.IndexRecord(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndexService_UpdatePost_Lifecycle(t *testing.T) {
	svc := newTestIndexService(mocks.NewMockContentRepository(), nil)
	ctx := context.Background()

	post := publishedPost(42, "Understanding Go generics")
	post.Status = domain.ContentStatusDraft
	require.NoError(t, svc.UpdatePost(ctx, post))
	records, _ := svc.GetIndex(ctx, domain.IndexTypePosts)
	assert.Empty(t, records, "draft must not be indexed")

	post.Status = domain.ContentStatusPublished
	require.NoError(t, svc.UpdatePost(ctx, post))
	records, _ = svc.GetIndex(ctx, domain.IndexTypePosts)
	assert.Equal(t, []int64{42}, indexIDs(records))

	post.Status = domain.ContentStatusDraft
	require.NoError(t, svc.UpdatePost(ctx, post))
	records, _ = svc.GetIndex(ctx, domain.IndexTypePosts)
	assert.Empty(t, records, "unpublished post must be removed")
}

func TestIndexService_RemoveRecord_Absent(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	repo.Put(publishedPost(1, "First"))
	svc := newTestIndexService(repo, nil)
	ctx := context.Background()

	require.NoError(t, svc.RemovePost(ctx, 99))
	require.NoError(t, svc.RemovePost(ctx, 1))
	require.NoError(t, svc.RemovePost(ctx, 1))

	records, err := svc.GetIndex(ctx, domain.IndexTypePosts)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestIndexService_MutationDoesNotAlterHeldSnapshot(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	repo.Put(publishedPost(1, "First"))
	svc := newTestIndexService(repo, nil)
	ctx := context.Background()

	before, err := svc.GetIndex(ctx, domain.IndexTypePosts)
	require.NoError(t, err)

	require.NoError(t, svc.IndexPost(ctx, publishedPost(2, "Second")))

	assert.Len(t, before, 1)
	after, _ := svc.GetIndex(ctx, domain.IndexTypePosts)
	assert.Len(t, after, 2)
}

func TestIndexService_SharedCacheBetweenInstances(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	repo.Put(publishedPost(1, "First"))
	cache := memory.NewIndexCache()
	ctx := context.Background()

	first := newTestIndexService(repo, cache)
	_, err := first.BuildIndex(ctx)
	require.NoError(t, err)

	second := newTestIndexService(repo, cache)
	records, err := second.GetIndex(ctx, domain.IndexTypePosts)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, indexIDs(records))
	assert.Equal(t, 1, repo.ListCalls(domain.IndexTypePosts))
}

func TestIndexService_InvalidateSearchCaches(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	repo.Put(publishedPost(1, "First"))
	cache := memory.NewIndexCache()
	ctx := context.Background()
	svc := newTestIndexService(repo, cache)

	_, err := svc.GetIndex(ctx, domain.IndexTypePosts)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, SuggestionCacheKey("fir"), []byte(`["First"]`), time.Minute))

	require.NoError(t, svc.InvalidateSearchCaches(ctx))

	_, err = cache.Get(ctx, SuggestionCacheKey("fir"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = cache.Get(ctx, IndexCacheKey(domain.IndexTypePosts))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stats, err := svc.GetIndexStats(ctx)
	require.NoError(t, err)
	assert.False(t, stats[domain.IndexTypePosts].Cached)

	_, err = svc.GetIndex(ctx, domain.IndexTypePosts)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.ListCalls(domain.IndexTypePosts))
}

func TestIndexService_ClearSuggestionCache(t *testing.T) {
	cache := memory.NewIndexCache()
	ctx := context.Background()
	svc := newTestIndexService(mocks.NewMockContentRepository(), cache)

	require.NoError(t, cache.Set(ctx, SuggestionCacheKey("lar"), []byte(`[]`), time.Minute))
	require.NoError(t, cache.Set(ctx, SuggestionCacheKey("go"), []byte(`[]`), time.Minute))

	require.NoError(t, svc.ClearSuggestionCache(ctx, "  LAR "))

	_, err := cache.Get(ctx, SuggestionCacheKey("lar"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = cache.Get(ctx, SuggestionCacheKey("go"))
	assert.NoError(t, err)
}

func TestIndexService_GetIndexStats(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	repo.Put(publishedPost(1, "First"), publishedPost(2, "Second"))
	svc := newTestIndexService(repo, nil)
	ctx := context.Background()

	stats, err := svc.GetIndexStats(ctx)
	require.NoError(t, err)
	assert.Len(t, stats, 3)
	assert.False(t, stats[domain.IndexTypePosts].Cached)
	assert.Equal(t, 0, repo.ListCalls(domain.IndexTypePosts))

	_, err = svc.BuildIndex(ctx)
	require.NoError(t, err)

	stats, err = svc.GetIndexStats(ctx)
	require.NoError(t, err)
	assert.True(t, stats[domain.IndexTypePosts].Cached)
	assert.Equal(t, 2, stats[domain.IndexTypePosts].Count)
	assert.NotNil(t, stats[domain.IndexTypePosts].BuiltAt)
}

func TestIndexService_CacheWriteFailureIsNotFatal(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	repo.Put(publishedPost(1, "First"))
	cache := new(mocks.MockIndexCache)
	cache.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrServiceUnavailable)
	cache.On("DeletePrefix", mock.Anything, mock.Anything).Return(0, domain.ErrServiceUnavailable)

	svc := newIndexService(IndexServiceConfig{Content: repo, Cache: cache, Config: domain.DefaultSearchConfig()})

	n, err := svc.BuildIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	cache.AssertCalled(t, "Set", mock.Anything, IndexCacheKey(domain.IndexTypePosts), mock.Anything, mock.Anything)
}

func TestIndexService_PhoneticKeysStoredWhenEnabled(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	repo.Put(publishedPost(1, "Smith family"))
	cfg := domain.DefaultSearchConfig()
	cfg.PhoneticEnabled = true
	svc := newIndexService(IndexServiceConfig{Content: repo, Config: cfg})

	records, err := svc.GetIndex(context.Background(), domain.IndexTypePosts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SM0 FML", records[0].PhoneticFor(domain.FieldTitle))
}
