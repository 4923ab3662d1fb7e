package product

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProduct() Product {
	return Product{
		ID:           "prod-123",
		OwnerID:      "owner-1",
		Name:         "Rice 5kg",
		Category:     "Grocery",
		Stock:        10,
		MinStock:     3,
		SellingPrice: decimal.NewFromInt(50),
		CostPrice:    decimal.NewFromInt(40),
	}
}

// ============================================
// Validate Tests
// ============================================

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Product)
		wantErr error
	}{
		{"valid", func(p *Product) {}, nil},
		{"zero stock is allowed", func(p *Product) { p.Stock = 0 }, nil},
		{"missing owner", func(p *Product) { p.OwnerID = "" }, ErrInvalidOwner},
		{"blank name", func(p *Product) { p.Name = "   " }, ErrInvalidName},
		{"negative stock", func(p *Product) { p.Stock = -1 }, ErrInvalidStock},
		{"negative min stock", func(p *Product) { p.MinStock = -5 }, ErrInvalidMinStock},
		{"negative selling price", func(p *Product) { p.SellingPrice = decimal.NewFromInt(-1) }, ErrInvalidPrice},
		{"negative cost price", func(p *Product) { p.CostPrice = decimal.NewFromFloat(-0.5) }, ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct()
			tt.mutate(&p)

			err := p.Validate()

			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ============================================
// Expiry Date Tests
// ============================================

func TestParseExpiryDate(t *testing.T) {
	d, err := ParseExpiryDate("2025-03-14")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), *d)

	d, err = ParseExpiryDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = ParseExpiryDate("14/03/2025")
	assert.ErrorIs(t, err, ErrInvalidExpiry)
}

func TestProduct_HasExpiry(t *testing.T) {
	p := validProduct()
	assert.False(t, p.HasExpiry())

	d := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p.ExpiryDate = &d
	assert.True(t, p.HasExpiry())

	p.ExpiryDate = &time.Time{}
	assert.False(t, p.HasExpiry())
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2025, 6, 30, 23, 59, 59, 999, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), DateOnly(in))
}
