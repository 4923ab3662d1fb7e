package readmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesSummary is the per-product sales projection built from SaleRecorded
// events.
type SalesSummary struct {
	OwnerID            string          `json:"owner_id"`
	ProductID          string          `json:"product_id"`
	ProductName        string          `json:"product_name"`
	UnitsSold          int             `json:"units_sold"`
	Revenue            decimal.Decimal `json:"revenue"`
	SaleCount          int             `json:"sale_count"`
	LastSoldAt         time.Time       `json:"last_sold_at"`
	LastProductVersion int             `json:"last_product_version"`
}

// SalesTotals aggregates every summary of one owner.
type SalesTotals struct {
	UnitsSold int             `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
	SaleCount int             `json:"sale_count"`
}

// Totals sums the given summaries.
func Totals(summaries []SalesSummary) SalesTotals {
	t := SalesTotals{Revenue: decimal.Zero}
	for _, s := range summaries {
		t.UnitsSold += s.UnitsSold
		t.Revenue = t.Revenue.Add(s.Revenue)
		t.SaleCount += s.SaleCount
	}
	return t
}
