package analytics

import (
	"testing"
	"time"

	"github.com/example/gramstore/internal/domain/product"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, 3, 10, 15, 45, 0, 0, time.UTC)

func item(id string, stock, minStock int, expiryOffsetDays *int) product.Product {
	p := product.Product{
		ID:        id,
		OwnerID:   "owner-1",
		Name:      id,
		Stock:     stock,
		MinStock:  minStock,
		CostPrice: decimal.NewFromInt(2),
	}
	if expiryOffsetDays != nil {
		d := product.DateOnly(today).AddDate(0, 0, *expiryOffsetDays)
		p.ExpiryDate = &d
	}
	return p
}

func days(n int) *int { return &n }

func ids(products []product.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

// ============================================
// Stock Level Tests
// ============================================

func TestClassify_StockLevels(t *testing.T) {
	products := []product.Product{
		item("at-threshold", 3, 3, nil),
		item("below", 1, 3, nil),
		item("above", 4, 3, nil),
		item("empty", 0, 0, nil),
	}

	r := Classify(products, today, DefaultHorizonDays)

	assert.ElementsMatch(t, []string{"at-threshold", "below", "empty"}, ids(r.LowStock))
	assert.Equal(t, []string{"above"}, ids(r.Healthy))
	assert.Empty(t, r.Expired)
	assert.Empty(t, r.ExpiringSoon)
}

// ============================================
// Expiry Tests
// ============================================

func TestClassify_ExpiryWindows(t *testing.T) {
	products := []product.Product{
		item("yesterday", 10, 1, days(-1)),
		item("today", 10, 1, days(0)),
		item("in-10", 10, 1, days(10)),
		item("in-11", 10, 1, days(11)),
		item("no-expiry", 10, 1, nil),
	}

	r := Classify(products, today, 10)

	assert.Equal(t, []string{"yesterday", "today"}, ids(r.Expired))
	assert.Equal(t, []string{"in-10"}, ids(r.ExpiringSoon))
	assert.Len(t, r.Healthy, 5, "expiry does not affect healthy")
}

func TestClassify_ExpiresToday(t *testing.T) {
	r := Classify([]product.Product{item("milk", 10, 1, days(0))}, today, 10)

	assert.Equal(t, []string{"milk"}, ids(r.Expired))
	assert.Empty(t, r.ExpiringSoon)
}

func TestClassify_ExpiringAndLowStockOverlap(t *testing.T) {
	r := Classify([]product.Product{item("milk", 2, 5, days(3))}, today, 10)

	assert.Equal(t, []string{"milk"}, ids(r.LowStock))
	assert.Equal(t, []string{"milk"}, ids(r.ExpiringSoon))
	assert.Empty(t, r.Healthy)
}

func TestClassify_HorizonDefaults(t *testing.T) {
	products := []product.Product{item("in-10", 5, 1, days(10)), item("in-12", 5, 1, days(12))}

	r := Classify(products, today, -1)
	assert.Equal(t, DefaultHorizonDays, r.HorizonDays)
	assert.Equal(t, []string{"in-10"}, ids(r.ExpiringSoon))

	r = Classify(products, today, 0)
	assert.Empty(t, r.ExpiringSoon)

	r = Classify(products, today, 30)
	assert.Len(t, r.ExpiringSoon, 2)
}

func TestDaysUntilExpiry_IgnoresTimeOfDay(t *testing.T) {
	expiry := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysUntilExpiry(expiry, time.Date(2025, 3, 10, 0, 0, 1, 0, time.UTC)))
	assert.Equal(t, 1, DaysUntilExpiry(expiry, time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysUntilExpiry(expiry, time.Date(2025, 3, 11, 18, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, DaysUntilExpiry(expiry, time.Date(2025, 3, 12, 1, 0, 0, 0, time.UTC)))
}

// ============================================
// Totals Tests
// ============================================

func TestClassify_Totals(t *testing.T) {
	products := []product.Product{
		item("a", 5, 1, nil),
		item("b", 0, 1, days(-3)),
		item("c", 12, 1, days(2)),
	}

	r := Classify(products, today, 10)

	assert.Equal(t, 17, r.TotalQuantity)
	assert.Equal(t, 3, r.TotalProducts)
	assert.True(t, decimal.NewFromInt(34).Equal(r.StockValue))
	assert.Equal(t, today, r.GeneratedAt)
}

func TestClassify_EmptySnapshot(t *testing.T) {
	r := Classify(nil, today, 10)

	require.NotNil(t, r.LowStock)
	require.NotNil(t, r.Healthy)
	assert.Zero(t, r.TotalQuantity)
	assert.Zero(t, r.TotalProducts)
}

func TestDaysUntilExpiry_UsesUTCDate(t *testing.T) {
	expiry := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	// 2025-03-11 01:00 UTC is still the 10th in New York.
	ny := time.FixedZone("EST", -5*60*60)
	now := time.Date(2025, 3, 10, 20, 0, 0, 0, ny)

	assert.Equal(t, 0, DaysUntilExpiry(expiry, now))
}
