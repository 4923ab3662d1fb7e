package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/gramstore/internal/analytics"
	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/example/gramstore/internal/infrastructure/store/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (*Handler, *store.MemoryCatalogStore, *store.MemorySummaryStore) {
	t.Helper()
	catalog := store.NewMemoryCatalogStore()
	summaries := store.NewMemorySummaryStore()
	h := NewHandler(catalog, summaries, 7)
	h.now = func() time.Time { return now }
	return h, catalog, summaries
}

func addProduct(t *testing.T, catalog store.CatalogStore, id string, stock, minStock int, expiryInDays int) {
	t.Helper()
	p := &product.Product{
		ID:           id,
		OwnerID:      "owner-1",
		Name:         id,
		Stock:        stock,
		MinStock:     minStock,
		SellingPrice: decimal.NewFromInt(10),
		CostPrice:    decimal.NewFromInt(6),
	}
	if expiryInDays != 0 {
		d := product.DateOnly(now).AddDate(0, 0, expiryInDays)
		p.ExpiryDate = &d
	}
	require.NoError(t, catalog.Create(context.Background(), p))
}

// ============================================
// Product Query Tests
// ============================================

func TestHandler_GetProduct(t *testing.T) {
	h, catalog, _ := newTestHandler(t)
	addProduct(t, catalog, "flour", 5, 2, 0)
	ctx := context.Background()

	p, err := h.GetProduct(ctx, "owner-1", "flour")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	_, err = h.GetProduct(ctx, "owner-2", "flour")
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestHandler_ListProducts(t *testing.T) {
	h, catalog, _ := newTestHandler(t)
	addProduct(t, catalog, "b", 1, 0, 0)
	addProduct(t, catalog, "a", 1, 0, 0)

	products, err := h.ListProducts(context.Background(), "owner-1", "")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "a", products[0].ID)
}

func TestHandler_ListProducts_NameQuery(t *testing.T) {
	h, catalog, _ := newTestHandler(t)
	addProduct(t, catalog, "Basmati Rice", 1, 0, 0)
	addProduct(t, catalog, "Rice Flour", 1, 0, 0)
	addProduct(t, catalog, "Milk", 1, 0, 0)

	products, err := h.ListProducts(context.Background(), "owner-1", "  rICE ")
	require.NoError(t, err)
	assert.Len(t, products, 2)

	products, err = h.ListProducts(context.Background(), "owner-1", "tea")
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

// ============================================
// Analytics Tests
// ============================================

func TestHandler_GetAnalytics(t *testing.T) {
	h, catalog, _ := newTestHandler(t)
	addProduct(t, catalog, "milk", 2, 5, 3)
	addProduct(t, catalog, "bread", 20, 5, -2)
	addProduct(t, catalog, "rice", 50, 10, 0)
	addProduct(t, catalog, "cheese", 8, 2, 9)

	r, err := h.GetAnalytics(context.Background(), "owner-1", -1)
	require.NoError(t, err)

	assert.Equal(t, 7, r.HorizonDays, "handler default applies")
	assert.Len(t, r.LowStock, 1)
	assert.Len(t, r.Healthy, 3)
	assert.Len(t, r.Expired, 1)
	require.Len(t, r.ExpiringSoon, 1)
	assert.Equal(t, "milk", r.ExpiringSoon[0].ID)
	assert.Equal(t, 80, r.TotalQuantity)
	assert.Equal(t, 4, r.TotalProducts)

	r, err = h.GetAnalytics(context.Background(), "owner-1", 10)
	require.NoError(t, err)
	assert.Len(t, r.ExpiringSoon, 2)
}

func TestHandler_GetAnalytics_LocalClockUsesUTCDate(t *testing.T) {
	h, catalog, _ := newTestHandler(t)
	addProduct(t, catalog, "yogurt", 10, 1, 1)
	// 2025-05-01 21:00 in UTC-5 is already 2025-05-02 in UTC.
	h.now = func() time.Time { return time.Date(2025, 5, 1, 21, 0, 0, 0, time.FixedZone("EST", -5*60*60)) }

	r, err := h.GetAnalytics(context.Background(), "owner-1", 10)
	require.NoError(t, err)

	require.Len(t, r.Expired, 1)
	assert.Equal(t, "yogurt", r.Expired[0].ID)
	assert.Empty(t, r.ExpiringSoon)
	assert.Equal(t, time.UTC, r.GeneratedAt.Location())
}

func TestHandler_GetAnalytics_StoreError(t *testing.T) {
	catalog := mocks.NewMockCatalogStore()
	catalog.ListErr = errors.New("timeout")
	h := NewHandler(catalog, store.NewMemorySummaryStore(), -1)

	_, err := h.GetAnalytics(context.Background(), "owner-1", -1)
	assert.Error(t, err)
	assert.Equal(t, analytics.DefaultHorizonDays, h.horizonDays)
}

// ============================================
// Sales Query Tests
// ============================================

func TestHandler_ListSales(t *testing.T) {
	h, catalog, _ := newTestHandler(t)
	addProduct(t, catalog, "flour", 5, 2, 0)
	ctx := context.Background()
	require.NoError(t, catalog.AppendSale(ctx, &sale.SaleEvent{ID: "s1", OwnerID: "owner-1", ProductID: "flour", Quantity: 1}))

	sales, err := h.ListSales(ctx, "owner-1", "flour")
	require.NoError(t, err)
	assert.Len(t, sales, 1)

	_, err = h.ListSales(ctx, "owner-1", "missing")
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestHandler_GetSalesReport(t *testing.T) {
	h, _, summaries := newTestHandler(t)
	ctx := context.Background()
	for i, id := range []string{"s1", "s2"} {
		_, err := summaries.ApplySale(ctx, &sale.SaleEvent{
			ID: id, OwnerID: "owner-1", ProductID: "flour", Quantity: 2,
			Total: decimal.NewFromInt(20), ProductVersion: i + 2, SoldAt: now,
		})
		require.NoError(t, err)
	}

	report, err := h.GetSalesReport(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, report.Products, 1)
	assert.Equal(t, 4, report.Totals.UnitsSold)
	assert.Equal(t, 2, report.Totals.SaleCount)
	assert.True(t, decimal.NewFromInt(40).Equal(report.Totals.Revenue))
}
