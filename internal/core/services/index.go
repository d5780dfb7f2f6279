package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-fuzzy/internal/normalisers"
)

// Ensure indexService implements IndexService
var _ driving.IndexService = (*indexService)(nil)

// Cache key layout shared by every instance using the same cache backend
const (
	indexKeyPrefix      = "search:index:"
	suggestionKeyPrefix = "search:suggestions:"
)

// IndexCacheKey returns the cache key of an index snapshot
func IndexCacheKey(t domain.IndexType) string {
	return indexKeyPrefix + string(t)
}

// SuggestionCacheKey returns the cache key of the suggestion list for a prefix
func SuggestionCacheKey(prefix string) string {
	return suggestionKeyPrefix + domain.NormalizeQueryText(prefix)
}

// snapshot is an immutable index generation. Records are never modified
// after the snapshot is installed; mutations install a new slice.
type snapshot struct {
	Records []*domain.SearchableRecord `json:"records"`
	BuiltAt time.Time                  `json:"built_at"`
}

// IndexServiceConfig holds the dependencies of the index service
type IndexServiceConfig struct {
	Content driven.ContentRepository
	Cache   driven.IndexCache // Optional: shares snapshots between instances
	Config  domain.SearchConfig
	Logger  *slog.Logger
}

// indexService implements the IndexService interface
type indexService struct {
	content driven.ContentRepository
	cache   driven.IndexCache
	cfg     domain.SearchConfig
	builder *normalisers.RecordBuilder
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	snapshots map[domain.IndexType]*snapshot

	// writeMu serializes read-modify-write mutations
	writeMu sync.Mutex
	builds  singleflight.Group
}

// NewIndexService creates a new IndexService
func NewIndexService(cfg IndexServiceConfig) driving.IndexService {
	return newIndexService(cfg)
}

func newIndexService(cfg IndexServiceConfig) *indexService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &indexService{
		content:   cfg.Content,
		cache:     cfg.Cache,
		cfg:       cfg.Config,
		builder:   normalisers.NewRecordBuilder(cfg.Config.PhoneticEnabled),
		logger:    logger,
		now:       time.Now,
		snapshots: make(map[domain.IndexType]*snapshot),
	}
}

// BuildIndex rebuilds the posts index
func (s *indexService) BuildIndex(ctx context.Context) (int, error) {
	return s.RebuildIndex(ctx, domain.IndexTypePosts)
}

// GetIndex returns the current snapshot, loading it from the shared cache or
// rebuilding it from the content repository when absent or expired.
func (s *indexService) GetIndex(ctx context.Context, indexType domain.IndexType) ([]*domain.SearchableRecord, error) {
	if !indexType.IsValid() {
		return nil, domain.NewSearchIndexError(indexType, nil)
	}
	if snap := s.fresh(indexType); snap != nil {
		return snap.Records, nil
	}

	v, err, _ := s.builds.Do(string(indexType), func() (any, error) {
		if snap := s.fresh(indexType); snap != nil {
			return snap, nil
		}
		if snap := s.loadShared(ctx, indexType); snap != nil {
			s.install(indexType, snap)
			return snap, nil
		}
		return s.rebuild(ctx, indexType)
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot).Records, nil
}

// RebuildIndex unconditionally rebuilds one index type
func (s *indexService) RebuildIndex(ctx context.Context, indexType domain.IndexType) (int, error) {
	if !indexType.IsValid() {
		return 0, domain.NewSearchIndexError(indexType, nil)
	}
	v, err, _ := s.builds.Do("rebuild:"+string(indexType), func() (any, error) {
		return s.rebuild(ctx, indexType)
	})
	if err != nil {
		return 0, err
	}
	return len(v.(*snapshot).Records), nil
}

// IndexRecord adds or replaces an eligible item
func (s *indexService) IndexRecord(ctx context.Context, item *domain.ContentItem) error {
	if err := s.checkItem(item); err != nil {
		return err
	}
	if !item.IsEligible(s.now()) {
		s.logger.Debug("skipping ineligible record", "index_type", item.Type, "id", item.ID)
		return nil
	}
	return s.upsert(ctx, item)
}

// UpdateRecord upserts eligible items and removes ineligible ones
func (s *indexService) UpdateRecord(ctx context.Context, item *domain.ContentItem) error {
	if err := s.checkItem(item); err != nil {
		return err
	}
	if !item.IsEligible(s.now()) {
		return s.RemoveRecord(ctx, item.Type, item.ID)
	}
	return s.upsert(ctx, item)
}

// RemoveRecord deletes a record by id; absent records are ignored
func (s *indexService) RemoveRecord(ctx context.Context, indexType domain.IndexType, id int64) error {
	if !indexType.IsValid() {
		return domain.NewSearchIndexError(indexType, nil)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, builtAt, err := s.current(ctx, indexType)
	if err != nil {
		return err
	}
	idx := findRecord(current, id)
	if idx < 0 {
		return nil
	}

	next := make([]*domain.SearchableRecord, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	s.commit(ctx, indexType, &snapshot{Records: next, BuiltAt: builtAt})
	return nil
}

func (s *indexService) IndexPost(ctx context.Context, post *domain.ContentItem) error {
	return s.IndexRecord(ctx, asPost(post))
}

func (s *indexService) UpdatePost(ctx context.Context, post *domain.ContentItem) error {
	return s.UpdateRecord(ctx, asPost(post))
}

func (s *indexService) RemovePost(ctx context.Context, id int64) error {
	return s.RemoveRecord(ctx, domain.IndexTypePosts, id)
}

// InvalidateSearchCaches drops every snapshot and every cached suggestion list
func (s *indexService) InvalidateSearchCaches(ctx context.Context) error {
	s.mu.Lock()
	s.snapshots = make(map[domain.IndexType]*snapshot)
	s.mu.Unlock()

	if s.cache == nil {
		return nil
	}
	keys := make([]string, 0, len(domain.AllIndexTypes()))
	for _, t := range domain.AllIndexTypes() {
		keys = append(keys, IndexCacheKey(t))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("delete index snapshots: %w", err)
	}
	n, err := s.cache.DeletePrefix(ctx, suggestionKeyPrefix)
	if err != nil {
		return fmt.Errorf("delete suggestion caches: %w", err)
	}
	s.logger.Info("search caches invalidated", "suggestions_removed", n)
	return nil
}

// ClearSuggestionCache drops the cached suggestions for one prefix
func (s *indexService) ClearSuggestionCache(ctx context.Context, prefix string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, SuggestionCacheKey(prefix))
}

// GetIndexStats reports every index type without triggering a build
func (s *indexService) GetIndexStats(ctx context.Context) (map[domain.IndexType]domain.IndexStats, error) {
	stats := make(map[domain.IndexType]domain.IndexStats, len(domain.AllIndexTypes()))
	for _, t := range domain.AllIndexTypes() {
		snap := s.fresh(t)
		if snap == nil {
			snap = s.loadShared(ctx, t)
		}
		if snap == nil {
			stats[t] = domain.IndexStats{}
			continue
		}
		builtAt := snap.BuiltAt
		stats[t] = domain.IndexStats{Count: len(snap.Records), Cached: true, BuiltAt: &builtAt}
	}
	return stats, nil
}

// rebuild scans the repository and installs a new snapshot
func (s *indexService) rebuild(ctx context.Context, indexType domain.IndexType) (*snapshot, error) {
	start := s.now()
	items, err := s.content.ListPublished(ctx, indexType)
	if err != nil {
		s.logger.Error("index build failed", "index_type", indexType, "error", err)
		return nil, domain.NewSearchIndexError(indexType, err)
	}

	records := make([]*domain.SearchableRecord, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if item == nil || !item.IsEligible(start) {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		item.Type = indexType
		records = append(records, s.builder.Build(item))
	}
	sortRecords(records)

	snap := &snapshot{Records: records, BuiltAt: start}
	s.commit(ctx, indexType, snap)
	s.logger.Info("index built",
		"index_type", indexType,
		"records", len(records),
		"duration", time.Since(start),
	)
	return snap, nil
}

func (s *indexService) upsert(ctx context.Context, item *domain.ContentItem) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, builtAt, err := s.current(ctx, item.Type)
	if err != nil {
		return err
	}

	rec := s.builder.Build(item)
	next := make([]*domain.SearchableRecord, 0, len(current)+1)
	for _, r := range current {
		if r.ID != rec.ID {
			next = append(next, r)
		}
	}
	next = append(next, rec)
	sortRecords(next)

	s.commit(ctx, item.Type, &snapshot{Records: next, BuiltAt: builtAt})
	return nil
}

// current returns the live records for a mutation, loading the index first
// when no snapshot exists.
func (s *indexService) current(ctx context.Context, indexType domain.IndexType) ([]*domain.SearchableRecord, time.Time, error) {
	if _, err := s.GetIndex(ctx, indexType); err != nil {
		return nil, time.Time{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snapshots[indexType]
	if snap == nil {
		return nil, s.now(), nil
	}
	return snap.Records, snap.BuiltAt, nil
}

// commit installs a snapshot locally, then publishes it to the shared cache
// and drops suggestion lists derived from the old one.
func (s *indexService) commit(ctx context.Context, indexType domain.IndexType, snap *snapshot) {
	s.install(indexType, snap)
	if s.cache == nil {
		return
	}

	ttl := s.cfg.IndexTTL - s.now().Sub(snap.BuiltAt)
	if ttl > 0 {
		data, err := json.Marshal(snap)
		if err == nil {
			err = s.cache.Set(ctx, IndexCacheKey(indexType), data, ttl)
		}
		if err != nil {
			s.logger.Warn("failed to publish index snapshot", "index_type", indexType, "error", err)
		}
	}
	if _, err := s.cache.DeletePrefix(ctx, suggestionKeyPrefix); err != nil {
		s.logger.Warn("failed to clear suggestion caches", "index_type", indexType, "error", err)
	}
}

func (s *indexService) install(indexType domain.IndexType, snap *snapshot) {
	s.mu.Lock()
	s.snapshots[indexType] = snap
	s.mu.Unlock()
}

// fresh returns the in-memory snapshot if it has not expired
func (s *indexService) fresh(indexType domain.IndexType) *snapshot {
	s.mu.RLock()
	snap := s.snapshots[indexType]
	s.mu.RUnlock()
	if snap == nil || s.expired(snap) {
		return nil
	}
	return snap
}

func (s *indexService) expired(snap *snapshot) bool {
	return s.now().Sub(snap.BuiltAt) >= s.cfg.IndexTTL
}

// loadShared reads a snapshot published by another instance
func (s *indexService) loadShared(ctx context.Context, indexType domain.IndexType) *snapshot {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, IndexCacheKey(indexType))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("index cache read failed", "index_type", indexType, "error", err)
		}
		return nil
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("discarding corrupt index snapshot", "index_type", indexType, "error", err)
		return nil
	}
	if s.expired(&snap) {
		return nil
	}
	return &snap
}

func (s *indexService) checkItem(item *domain.ContentItem) error {
	if item == nil {
		return fmt.Errorf("%w: nil content item", domain.ErrInvalidInput)
	}
	if !item.Type.IsValid() {
		return domain.NewSearchIndexError(item.Type, nil)
	}
	return nil
}

func asPost(post *domain.ContentItem) *domain.ContentItem {
	if post == nil {
		return nil
	}
	cp := *post
	cp.Type = domain.IndexTypePosts
	return &cp
}

func findRecord(records []*domain.SearchableRecord, id int64) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func sortRecords(records []*domain.SearchableRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
