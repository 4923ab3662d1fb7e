package store

import (
	"testing"
	"time"

	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProduct() *product.Product {
	expiry := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	return &product.Product{
		ID:           "prod-1",
		OwnerID:      "owner-1",
		Name:         "Yogurt",
		Category:     "Dairy",
		Stock:        12,
		MinStock:     4,
		SellingPrice: decimal.RequireFromString("37.05"),
		CostPrice:    decimal.RequireFromString("30.10"),
		Supplier:     "Local Farm",
		ExpiryDate:   &expiry,
		Version:      3,
		CreatedAt:    time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC),
	}
}

func sampleSale() *sale.SaleEvent {
	return &sale.SaleEvent{
		ID:             "sale-1",
		OwnerID:        "owner-1",
		ProductID:      "prod-1",
		ProductName:    "Yogurt",
		Quantity:       2,
		UnitPrice:      decimal.RequireFromString("37.05"),
		Total:          decimal.RequireFromString("74.10"),
		StockAfter:     10,
		ProductVersion: 4,
		SoldAt:         time.Date(2025, 1, 3, 10, 15, 0, 0, time.UTC),
	}
}

func TestDynamoProductConversion(t *testing.T) {
	p := sampleProduct()

	item := ToDynamoProduct(p)
	assert.Equal(t, "37.05", item.SellingPrice)
	assert.Equal(t, "2025-02-28", item.ExpiryDate)

	back, err := FromDynamoProduct(item)
	require.NoError(t, err)
	assert.True(t, p.SellingPrice.Equal(back.SellingPrice))
	assert.True(t, p.CostPrice.Equal(back.CostPrice))
	assert.Equal(t, *p.ExpiryDate, *back.ExpiryDate)
	assert.Equal(t, p.Version, back.Version)
	assert.Equal(t, p.CreatedAt, back.CreatedAt)
}

func TestDynamoProductConversion_NoExpiry(t *testing.T) {
	p := sampleProduct()
	p.ExpiryDate = nil

	item := ToDynamoProduct(p)
	assert.Empty(t, item.ExpiryDate)

	back, err := FromDynamoProduct(item)
	require.NoError(t, err)
	assert.Nil(t, back.ExpiryDate)
}

func TestFromDynamoProduct_BadPrice(t *testing.T) {
	item := ToDynamoProduct(sampleProduct())
	item.SellingPrice = "abc"

	_, err := FromDynamoProduct(item)
	assert.Error(t, err)
}

func TestDynamoSaleConversion(t *testing.T) {
	ev := sampleSale()

	back, err := FromDynamoSale(ToDynamoSale(ev))
	require.NoError(t, err)
	assert.Equal(t, ev.ID, back.ID)
	assert.True(t, ev.Total.Equal(back.Total))
	assert.Equal(t, ev.SoldAt, back.SoldAt)
	assert.Equal(t, ev.ProductVersion, back.ProductVersion)
}

func TestMongoConversion(t *testing.T) {
	p := sampleProduct()
	back, err := fromMongoProduct(toMongoProduct(p))
	require.NoError(t, err)
	assert.True(t, p.SellingPrice.Equal(back.SellingPrice))
	assert.Equal(t, *p.ExpiryDate, *back.ExpiryDate)

	ev := sampleSale()
	sb, err := fromMongoSale(toMongoSale(ev))
	require.NoError(t, err)
	assert.True(t, ev.UnitPrice.Equal(sb.UnitPrice))
	assert.Equal(t, ev.StockAfter, sb.StockAfter)
}

func TestSaleRecordedEnvelope(t *testing.T) {
	ev := sampleSale()

	env, err := NewSaleRecorded(ev)
	require.NoError(t, err)
	assert.Equal(t, sale.EventSaleRecorded, env.EventType)
	assert.Equal(t, sale.AggregateType, env.AggregateType)
	assert.Equal(t, "prod-1", env.AggregateID)
	assert.Equal(t, 4, env.Version)

	decoded, err := env.DecodeSale()
	require.NoError(t, err)
	assert.Equal(t, ev.ID, decoded.ID)
	assert.True(t, ev.Total.Equal(decoded.Total))
}
