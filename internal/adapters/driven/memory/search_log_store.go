package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SearchLogStore = (*SearchLogStore)(nil)

// SearchLogStore keeps query logs and click events in memory.
// Aggregates follow the same grouping and ordering rules as the postgres store.
type SearchLogStore struct {
	mu     sync.RWMutex
	logs   map[string]*domain.SearchQueryLog
	clicks []*domain.SearchClickEvent
	nextID int64
}

// NewSearchLogStore creates an empty store
func NewSearchLogStore() *SearchLogStore {
	return &SearchLogStore{logs: make(map[string]*domain.SearchQueryLog)}
}

func (s *SearchLogStore) SaveQuery(ctx context.Context, log *domain.SearchQueryLog) error {
	if log == nil || log.ID == "" {
		return fmt.Errorf("%w: query log requires an id", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.logs[log.ID]; exists {
		return fmt.Errorf("%w: duplicate query log id %s", domain.ErrInvalidInput, log.ID)
	}
	cp := *log
	if log.Filters != nil {
		cp.Filters = make(map[string]string, len(log.Filters))
		for k, v := range log.Filters {
			cp.Filters[k] = v
		}
	}
	s.logs[log.ID] = &cp
	return nil
}

func (s *SearchLogStore) SaveClick(ctx context.Context, click *domain.SearchClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[click.SearchLogID]; !ok {
		return domain.ErrNotFound
	}
	s.nextID++
	click.ID = s.nextID
	cp := *click
	s.clicks = append(s.clicks, &cp)
	return nil
}

func (s *SearchLogStore) TopQueries(ctx context.Context, since time.Time, limit int, noResultsOnly bool) ([]domain.QueryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type group struct {
		text  string
		count int64
	}
	groups := make(map[string]*group)
	for _, l := range s.logs {
		if l.CreatedAt.Before(since) {
			continue
		}
		if noResultsOnly && l.ResultCount != 0 {
			continue
		}
		key := domain.NormalizeQueryText(l.Query)
		g, ok := groups[key]
		if !ok {
			g = &group{text: l.Query}
			groups[key] = g
		}
		g.count++
		if l.Query < g.text {
			g.text = l.Query
		}
	}

	out := make([]domain.QueryCount, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.QueryCount{Query: g.text, Count: g.count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *SearchLogStore) PerformanceStats(ctx context.Context, since time.Time) (*domain.PerformanceMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := &domain.PerformanceMetrics{}
	var execSum float64
	var resultSum int64
	for _, l := range s.logs {
		if l.CreatedAt.Before(since) {
			continue
		}
		if m.TotalSearches == 0 || l.ExecutionTimeMs > m.MaxExecutionTime {
			m.MaxExecutionTime = l.ExecutionTimeMs
		}
		if m.TotalSearches == 0 || l.ExecutionTimeMs < m.MinExecutionTime {
			m.MinExecutionTime = l.ExecutionTimeMs
		}
		m.TotalSearches++
		execSum += l.ExecutionTimeMs
		resultSum += int64(l.ResultCount)
		if l.ResultCount == 0 {
			m.NoResultSearches++
		}
	}
	if m.TotalSearches > 0 {
		m.AvgExecutionTime = execSum / float64(m.TotalSearches)
		m.AvgResultCount = float64(resultSum) / float64(m.TotalSearches)
	}
	return m, nil
}

func (s *SearchLogStore) ClickThroughCounts(ctx context.Context, since time.Time) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clickedLogs := make(map[string]struct{})
	for _, c := range s.clicks {
		clickedLogs[c.SearchLogID] = struct{}{}
	}

	var total, clicked int64
	for id, l := range s.logs {
		if l.CreatedAt.Before(since) {
			continue
		}
		total++
		if _, ok := clickedLogs[id]; ok {
			clicked++
		}
	}
	return total, clicked, nil
}

func (s *SearchLogStore) MostClicked(ctx context.Context, since time.Time, limit int) ([]domain.ClickedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int64]int64)
	for _, c := range s.clicks {
		l, ok := s.logs[c.SearchLogID]
		if !ok || l.CreatedAt.Before(since) {
			continue
		}
		counts[c.RecordID]++
	}

	out := make([]domain.ClickedRecord, 0, len(counts))
	for id, n := range counts {
		out = append(out, domain.ClickedRecord{RecordID: id, ClickCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClickCount != out[j].ClickCount {
			return out[i].ClickCount > out[j].ClickCount
		}
		return out[i].RecordID < out[j].RecordID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *SearchLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, l := range s.logs {
		if l.CreatedAt.Before(cutoff) {
			delete(s.logs, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}

	kept := s.clicks[:0]
	for _, c := range s.clicks {
		if _, ok := s.logs[c.SearchLogID]; ok {
			kept = append(kept, c)
		}
	}
	s.clicks = kept
	return removed, nil
}

// Len returns the number of stored query logs and click events
func (s *SearchLogStore) Len() (logs, clicks int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs), len(s.clicks)
}
