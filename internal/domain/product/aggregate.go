package product

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExpiryDateLayout is the wire and storage format of ExpiryDate.
const ExpiryDateLayout = "2006-01-02"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidName     = errors.New("name is required")
	ErrInvalidOwner    = errors.New("owner is required")
	ErrInvalidStock    = errors.New("stock must not be negative")
	ErrInvalidMinStock = errors.New("min stock must not be negative")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidExpiry   = errors.New("expiry date must be YYYY-MM-DD")
)

// Product is a catalog item owned by one store account. Stock is the
// authoritative count; Version is bumped by every accepted write.
type Product struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Stock        int             `json:"stock"`
	MinStock     int             `json:"min_stock"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	Supplier     string          `json:"supplier,omitempty"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Validate checks the record invariants. It never clamps a value.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.OwnerID) == "" {
		return ErrInvalidOwner
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidName
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	if p.MinStock < 0 {
		return ErrInvalidMinStock
	}
	if p.SellingPrice.IsNegative() || p.CostPrice.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// HasExpiry reports whether the product carries an expiry date.
func (p *Product) HasExpiry() bool {
	return p.ExpiryDate != nil && !p.ExpiryDate.IsZero()
}

// ParseExpiryDate parses a calendar date. An empty string means no expiry.
func ParseExpiryDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(ExpiryDateLayout, s)
	if err != nil {
		return nil, ErrInvalidExpiry
	}
	return &t, nil
}

// DateOnly truncates t to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
