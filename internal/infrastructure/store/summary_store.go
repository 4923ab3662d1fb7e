package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/readmodel"
	"github.com/shopspring/decimal"
)

// SummaryStore holds the sales summary projection.
type SummaryStore interface {
	// ApplySale folds one sale into its product summary. It reports false
	// when the sale ID was already applied.
	ApplySale(ctx context.Context, ev *sale.SaleEvent) (bool, error)
	GetSummary(ctx context.Context, ownerID, productID string) (*readmodel.SalesSummary, error)
	ListSummaries(ctx context.Context, ownerID string) ([]readmodel.SalesSummary, error)
}

type summaryKey struct {
	ownerID   string
	productID string
}

// MemorySummaryStore is the in-process SummaryStore.
type MemorySummaryStore struct {
	mu        sync.RWMutex
	summaries map[summaryKey]readmodel.SalesSummary
	applied   map[string]struct{}
}

func NewMemorySummaryStore() *MemorySummaryStore {
	return &MemorySummaryStore{
		summaries: make(map[summaryKey]readmodel.SalesSummary),
		applied:   make(map[string]struct{}),
	}
}

func (s *MemorySummaryStore) ApplySale(ctx context.Context, ev *sale.SaleEvent) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applied[ev.ID]; ok {
		return false, nil
	}
	s.applied[ev.ID] = struct{}{}

	key := summaryKey{ownerID: ev.OwnerID, productID: ev.ProductID}
	summary, ok := s.summaries[key]
	if !ok {
		summary = readmodel.SalesSummary{
			OwnerID:   ev.OwnerID,
			ProductID: ev.ProductID,
			Revenue:   decimal.Zero,
		}
	}
	foldSale(&summary, ev)
	s.summaries[key] = summary
	return true, nil
}

func (s *MemorySummaryStore) GetSummary(ctx context.Context, ownerID, productID string) (*readmodel.SalesSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.summaries[summaryKey{ownerID: ownerID, productID: productID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &summary, nil
}

func (s *MemorySummaryStore) ListSummaries(ctx context.Context, ownerID string) ([]readmodel.SalesSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]readmodel.SalesSummary, 0)
	for key, summary := range s.summaries {
		if key.ownerID == ownerID {
			summaries = append(summaries, summary)
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ProductID < summaries[j].ProductID
	})
	return summaries, nil
}

// foldSale adds ev to summary. Name and last-sale fields follow the sale
// with the highest product version, so out-of-order delivery converges.
func foldSale(summary *readmodel.SalesSummary, ev *sale.SaleEvent) {
	summary.UnitsSold += ev.Quantity
	summary.Revenue = summary.Revenue.Add(ev.Total)
	summary.SaleCount++
	if ev.ProductVersion >= summary.LastProductVersion {
		summary.LastProductVersion = ev.ProductVersion
		summary.ProductName = ev.ProductName
	}
	if ev.SoldAt.After(summary.LastSoldAt) {
		summary.LastSoldAt = ev.SoldAt
	}
}
