package mocks

import (
	"context"
	"sync"

	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/example/gramstore/internal/readmodel"
)

// MockSummaryStore wraps an in-memory summary store and records calls.
type MockSummaryStore struct {
	mu    sync.Mutex
	inner *store.MemorySummaryStore

	ApplyCalls []sale.SaleEvent
	ApplyErr   error
}

var _ store.SummaryStore = (*MockSummaryStore)(nil)

// NewMockSummaryStore creates a new MockSummaryStore
func NewMockSummaryStore() *MockSummaryStore {
	return &MockSummaryStore{
		inner:      store.NewMemorySummaryStore(),
		ApplyCalls: make([]sale.SaleEvent, 0),
	}
}

func (m *MockSummaryStore) ApplySale(ctx context.Context, ev *sale.SaleEvent) (bool, error) {
	m.mu.Lock()
	m.ApplyCalls = append(m.ApplyCalls, *ev)
	applyErr := m.ApplyErr
	m.mu.Unlock()

	if applyErr != nil {
		return false, applyErr
	}
	return m.inner.ApplySale(ctx, ev)
}

func (m *MockSummaryStore) GetSummary(ctx context.Context, ownerID, productID string) (*readmodel.SalesSummary, error) {
	return m.inner.GetSummary(ctx, ownerID, productID)
}

func (m *MockSummaryStore) ListSummaries(ctx context.Context, ownerID string) ([]readmodel.SalesSummary, error) {
	return m.inner.ListSummaries(ctx, ownerID)
}
