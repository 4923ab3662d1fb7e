// Package analytics classifies a catalog snapshot into low-stock, healthy,
// expiring-soon and expired products. It performs no I/O.
package analytics

import (
	"time"

	"github.com/example/gramstore/internal/domain/product"
	"github.com/shopspring/decimal"
)

// DefaultHorizonDays is the expiring-soon window used when none is given.
const DefaultHorizonDays = 10

// Report is the classification of one snapshot. A product may appear in
// several lists (for example low stock and expiring soon).
type Report struct {
	LowStock      []product.Product `json:"low_stock"`
	ExpiringSoon  []product.Product `json:"expiring_soon"`
	Expired       []product.Product `json:"expired"`
	Healthy       []product.Product `json:"healthy"`
	TotalQuantity int               `json:"total_quantity"`
	TotalProducts int               `json:"total_products"`
	// StockValue is the cost value of the stock on hand.
	StockValue  decimal.Decimal `json:"stock_value"`
	HorizonDays int             `json:"horizon_days"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// DaysUntilExpiry is the number of UTC calendar days from now's date to the
// expiry date. Negative means the product expired that many days ago.
func DaysUntilExpiry(expiry, now time.Time) int {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(product.DateOnly(expiry).Sub(today).Hours() / 24)
}

// Classify builds a report from products. A negative horizonDays selects
// DefaultHorizonDays. All totals come from the same slice.
func Classify(products []product.Product, now time.Time, horizonDays int) Report {
	if horizonDays < 0 {
		horizonDays = DefaultHorizonDays
	}

	r := Report{
		LowStock:      make([]product.Product, 0),
		ExpiringSoon:  make([]product.Product, 0),
		Expired:       make([]product.Product, 0),
		Healthy:       make([]product.Product, 0),
		TotalProducts: len(products),
		StockValue:    decimal.Zero,
		HorizonDays:   horizonDays,
		GeneratedAt:   now,
	}

	for _, p := range products {
		r.TotalQuantity += p.Stock
		r.StockValue = r.StockValue.Add(p.CostPrice.Mul(decimal.NewFromInt(int64(p.Stock))))

		if p.Stock <= p.MinStock {
			r.LowStock = append(r.LowStock, p)
		} else {
			r.Healthy = append(r.Healthy, p)
		}

		if !p.HasExpiry() {
			continue
		}
		switch days := DaysUntilExpiry(*p.ExpiryDate, now); {
		// An expiry date is the start of that day, so it has passed by now.
		case days <= 0:
			r.Expired = append(r.Expired, p)
		case days <= horizonDays:
			r.ExpiringSoon = append(r.ExpiringSoon, p)
		}
	}
	return r
}
