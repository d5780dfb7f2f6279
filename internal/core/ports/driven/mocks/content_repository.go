package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
)

// MockContentRepository is an in-memory ContentRepository for testing.
// ListPublished returns every stored item so the caller's eligibility check is exercised.
type MockContentRepository struct {
	mu        sync.RWMutex
	items     map[domain.IndexType]map[int64]*domain.ContentItem
	listCalls map[domain.IndexType]int

	ListErr error
	GetErr  error
}

// NewMockContentRepository creates a new MockContentRepository
func NewMockContentRepository() *MockContentRepository {
	return &MockContentRepository{
		items:     make(map[domain.IndexType]map[int64]*domain.ContentItem),
		listCalls: make(map[domain.IndexType]int),
	}
}

// Put stores or replaces items
func (m *MockContentRepository) Put(items ...*domain.ContentItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		if m.items[item.Type] == nil {
			m.items[item.Type] = make(map[int64]*domain.ContentItem)
		}
		cp := *item
		m.items[item.Type][item.ID] = &cp
	}
}

// Remove deletes an item
func (m *MockContentRepository) Remove(indexType domain.IndexType, id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items[indexType], id)
}

// ListCalls reports how many times ListPublished ran for a type
func (m *MockContentRepository) ListCalls(indexType domain.IndexType) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCalls[indexType]
}

func (m *MockContentRepository) ListPublished(ctx context.Context, indexType domain.IndexType) ([]*domain.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls[indexType]++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []*domain.ContentItem
	for _, item := range m.items[indexType] {
		cp := *item
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockContentRepository) Get(ctx context.Context, indexType domain.IndexType, id int64) (*domain.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	item, ok := m.items[indexType][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *item
	return &cp, nil
}
