package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
)

// MockSearchLogStore is a testify mock of SearchLogStore, used where tests
// need a store that fails on demand.
type MockSearchLogStore struct {
	mock.Mock
}

func (m *MockSearchLogStore) SaveQuery(ctx context.Context, log *domain.SearchQueryLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockSearchLogStore) SaveClick(ctx context.Context, click *domain.SearchClickEvent) error {
	args := m.Called(ctx, click)
	return args.Error(0)
}

func (m *MockSearchLogStore) TopQueries(ctx context.Context, since time.Time, limit int, noResultsOnly bool) ([]domain.QueryCount, error) {
	args := m.Called(ctx, since, limit, noResultsOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueryCount), args.Error(1)
}

func (m *MockSearchLogStore) PerformanceStats(ctx context.Context, since time.Time) (*domain.PerformanceMetrics, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PerformanceMetrics), args.Error(1)
}

func (m *MockSearchLogStore) ClickThroughCounts(ctx context.Context, since time.Time) (int64, int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockSearchLogStore) MostClicked(ctx context.Context, since time.Time, limit int) ([]domain.ClickedRecord, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ClickedRecord), args.Error(1)
}

func (m *MockSearchLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
