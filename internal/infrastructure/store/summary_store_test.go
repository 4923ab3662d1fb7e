package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/example/gramstore/internal/domain/sale"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleAt(id string, qty, version int, total string, at time.Time) *sale.SaleEvent {
	return &sale.SaleEvent{
		ID:             id,
		OwnerID:        "owner-1",
		ProductID:      "prod-1",
		ProductName:    fmt.Sprintf("Rice v%d", version),
		Quantity:       qty,
		Total:          decimal.RequireFromString(total),
		ProductVersion: version,
		SoldAt:         at,
	}
}

func TestMemorySummaryStore_ApplySale(t *testing.T) {
	s := NewMemorySummaryStore()
	ctx := context.Background()
	t0 := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	applied, err := s.ApplySale(ctx, saleAt("s1", 3, 2, "150", t0))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.ApplySale(ctx, saleAt("s2", 7, 3, "350", t0.Add(time.Hour)))
	require.NoError(t, err)
	assert.True(t, applied)

	summary, err := s.GetSummary(ctx, "owner-1", "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 10, summary.UnitsSold)
	assert.Equal(t, 2, summary.SaleCount)
	assert.True(t, decimal.NewFromInt(500).Equal(summary.Revenue))
	assert.Equal(t, 3, summary.LastProductVersion)
	assert.Equal(t, t0.Add(time.Hour), summary.LastSoldAt)
}

func TestMemorySummaryStore_DuplicateIgnored(t *testing.T) {
	s := NewMemorySummaryStore()
	ctx := context.Background()
	ev := saleAt("s1", 3, 2, "150", time.Now())

	_, err := s.ApplySale(ctx, ev)
	require.NoError(t, err)
	applied, err := s.ApplySale(ctx, ev)
	require.NoError(t, err)
	assert.False(t, applied)

	summary, _ := s.GetSummary(ctx, "owner-1", "prod-1")
	assert.Equal(t, 3, summary.UnitsSold)
	assert.Equal(t, 1, summary.SaleCount)
}

func TestMemorySummaryStore_OutOfOrderStillCounted(t *testing.T) {
	s := NewMemorySummaryStore()
	ctx := context.Background()
	t0 := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	_, err := s.ApplySale(ctx, saleAt("late", 2, 5, "100", t0.Add(time.Hour)))
	require.NoError(t, err)
	applied, err := s.ApplySale(ctx, saleAt("early", 1, 4, "50", t0))
	require.NoError(t, err)
	assert.True(t, applied)

	summary, _ := s.GetSummary(ctx, "owner-1", "prod-1")
	assert.Equal(t, 3, summary.UnitsSold)
	assert.Equal(t, 5, summary.LastProductVersion)
	assert.Equal(t, "Rice v5", summary.ProductName)
	assert.Equal(t, t0.Add(time.Hour), summary.LastSoldAt)
}

func TestMemorySummaryStore_ListAndMissing(t *testing.T) {
	s := NewMemorySummaryStore()
	ctx := context.Background()

	_, err := s.GetSummary(ctx, "owner-1", "prod-1")
	assert.ErrorIs(t, err, ErrNotFound)

	other := saleAt("s9", 1, 2, "10", time.Now())
	other.ProductID = "prod-0"
	_, _ = s.ApplySale(ctx, saleAt("s1", 1, 2, "10", time.Now()))
	_, _ = s.ApplySale(ctx, other)

	list, err := s.ListSummaries(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "prod-0", list[0].ProductID)

	empty, err := s.ListSummaries(ctx, "owner-2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
