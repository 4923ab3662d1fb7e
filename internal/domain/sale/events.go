package sale

import (
	"time"

	"github.com/shopspring/decimal"
)

const AggregateType = "Sale"

const (
	EventSaleRecorded = "SaleRecorded"
)

// SaleEvent is the immutable record of one accepted sale. Name and price
// are frozen at sale time so later catalog edits never rewrite history.
type SaleEvent struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
	StockAfter     int             `json:"stock_after"`
	ProductVersion int             `json:"product_version"`
	SoldAt         time.Time       `json:"sold_at"`
}
