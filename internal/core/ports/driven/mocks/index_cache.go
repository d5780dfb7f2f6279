package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockIndexCache is a testify mock of IndexCache for failure-path tests.
type MockIndexCache struct {
	mock.Mock
}

func (m *MockIndexCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockIndexCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockIndexCache) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockIndexCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	args := m.Called(ctx, prefix)
	return args.Int(0), args.Error(1)
}

func (m *MockIndexCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
