package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, s *MemoryCatalogStore, id, name string, stock int) *product.Product {
	t.Helper()
	p := &product.Product{
		ID:           id,
		OwnerID:      "owner-1",
		Name:         name,
		Stock:        stock,
		MinStock:     2,
		SellingPrice: decimal.NewFromInt(50),
		CostPrice:    decimal.NewFromInt(40),
	}
	require.NoError(t, s.Create(context.Background(), p))
	return p
}

// ============================================
// Create / Get Tests
// ============================================

func TestMemoryCatalogStore_CreateAndGet(t *testing.T) {
	s := NewMemoryCatalogStore()
	ctx := context.Background()

	p := seedProduct(t, s, "prod-1", "Rice", 10)
	assert.Equal(t, 1, p.Version)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.Get(ctx, "owner-1", "prod-1")
	require.NoError(t, err)
	assert.Equal(t, "Rice", got.Name)
	assert.Equal(t, 10, got.Stock)
	assert.Equal(t, 1, got.Version)

	assert.ErrorIs(t, s.Create(ctx, p), ErrDuplicate)
}

func TestMemoryCatalogStore_GetOtherOwner(t *testing.T) {
	s := NewMemoryCatalogStore()
	seedProduct(t, s, "prod-1", "Rice", 10)

	_, err := s.Get(context.Background(), "owner-2", "prod-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(context.Background(), "owner-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCatalogStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryCatalogStore()
	ctx := context.Background()
	p := seedProduct(t, s, "prod-1", "Milk", 4)
	expiry := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	p.ExpiryDate = &expiry
	require.NoError(t, s.Update(ctx, p, 1))

	got, err := s.Get(ctx, "owner-1", "prod-1")
	require.NoError(t, err)
	got.Stock = 999
	*got.ExpiryDate = got.ExpiryDate.AddDate(1, 0, 0)

	again, err := s.Get(ctx, "owner-1", "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 4, again.Stock)
	assert.Equal(t, expiry, *again.ExpiryDate)
}

// ============================================
// ConditionalUpdate Tests
// ============================================

func TestMemoryCatalogStore_ConditionalUpdate(t *testing.T) {
	s := NewMemoryCatalogStore()
	ctx := context.Background()
	seedProduct(t, s, "prod-1", "Rice", 10)

	require.NoError(t, s.ConditionalUpdate(ctx, "prod-1", 1, 7))

	got, err := s.Get(ctx, "owner-1", "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)
	assert.Equal(t, 2, got.Version)

	// Stale version is rejected and leaves the record alone.
	assert.ErrorIs(t, s.ConditionalUpdate(ctx, "prod-1", 1, 0), ErrVersionConflict)
	got, _ = s.Get(ctx, "owner-1", "prod-1")
	assert.Equal(t, 7, got.Stock)
	assert.Equal(t, 2, got.Version)
}

func TestMemoryCatalogStore_ConditionalUpdateRejections(t *testing.T) {
	s := NewMemoryCatalogStore()
	ctx := context.Background()
	seedProduct(t, s, "prod-1", "Rice", 10)

	assert.ErrorIs(t, s.ConditionalUpdate(ctx, "prod-1", 1, -1), ErrNegativeStock)
	assert.ErrorIs(t, s.ConditionalUpdate(ctx, "missing", 1, 5), ErrNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.ConditionalUpdate(cancelled, "prod-1", 1, 5), context.Canceled)

	got, _ := s.Get(ctx, "owner-1", "prod-1")
	assert.Equal(t, 10, got.Stock)
	assert.Equal(t, 1, got.Version)
}

func TestMemoryCatalogStore_ConcurrentConditionalUpdate(t *testing.T) {
	s := NewMemoryCatalogStore()
	ctx := context.Background()
	seedProduct(t, s, "prod-1", "Rice", 100)

	const writers = 50
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- s.ConditionalUpdate(ctx, "prod-1", 1, 100-i-1)
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrVersionConflict)
	}
	assert.Equal(t, 1, succeeded)

	got, _ := s.Get(ctx, "owner-1", "prod-1")
	assert.Equal(t, 2, got.Version)
}

// ============================================
// Sales Log Tests
// ============================================

func TestMemoryCatalogStore_AppendSaleIsIdempotent(t *testing.T) {
	s := NewMemoryCatalogStore()
	ctx := context.Background()

	ev := &sale.SaleEvent{ID: "sale-1", OwnerID: "owner-1", ProductID: "prod-1", Quantity: 3}
	require.NoError(t, s.AppendSale(ctx, ev))
	require.NoError(t, s.AppendSale(ctx, ev))

	sales, err := s.ListSales(ctx, "owner-1", "")
	require.NoError(t, err)
	assert.Len(t, sales, 1)
}

func TestMemoryCatalogStore_ListSalesFilters(t *testing.T) {
	s := NewMemoryCatalogStore()
	ctx := context.Background()

	require.NoError(t, s.AppendSale(ctx, &sale.SaleEvent{ID: "s1", OwnerID: "owner-1", ProductID: "prod-1"}))
	require.NoError(t, s.AppendSale(ctx, &sale.SaleEvent{ID: "s2", OwnerID: "owner-1", ProductID: "prod-2"}))
	require.NoError(t, s.AppendSale(ctx, &sale.SaleEvent{ID: "s3", OwnerID: "owner-2", ProductID: "prod-1"}))

	all, err := s.ListSales(ctx, "owner-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := s.ListSales(ctx, "owner-1", "prod-1")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "s1", one[0].ID)
}

// ============================================
// List / Update Tests
// ============================================

func TestMemoryCatalogStore_ListSortedByName(t *testing.T) {
	s := NewMemoryCatalogStore()
	seedProduct(t, s, "p3", "Sugar", 1)
	seedProduct(t, s, "p1", "Flour", 1)
	seedProduct(t, s, "p2", "Eggs", 1)

	products, err := s.List(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, []string{"Eggs", "Flour", "Sugar"},
		[]string{products[0].Name, products[1].Name, products[2].Name})

	none, err := s.List(context.Background(), "owner-2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryCatalogStore_Update(t *testing.T) {
	s := NewMemoryCatalogStore()
	ctx := context.Background()
	p := seedProduct(t, s, "prod-1", "Rice", 10)
	created := p.CreatedAt

	edit := *p
	edit.Name = "Basmati Rice"
	edit.Stock = 25
	require.NoError(t, s.Update(ctx, &edit, 1))
	assert.Equal(t, 2, edit.Version)

	got, _ := s.Get(ctx, "owner-1", "prod-1")
	assert.Equal(t, "Basmati Rice", got.Name)
	assert.Equal(t, 25, got.Stock)
	assert.Equal(t, created, got.CreatedAt)

	stale := *p
	assert.ErrorIs(t, s.Update(ctx, &stale, 1), ErrVersionConflict)

	foreign := edit
	foreign.OwnerID = "owner-2"
	assert.ErrorIs(t, s.Update(ctx, &foreign, 2), ErrNotFound)

	negative := edit
	negative.Stock = -1
	assert.ErrorIs(t, s.Update(ctx, &negative, 2), ErrNegativeStock)
}
