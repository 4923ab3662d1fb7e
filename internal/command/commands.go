package command

import "github.com/shopspring/decimal"

// Product Commands
type CreateProduct struct {
	OwnerID      string          `json:"-"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Stock        int             `json:"stock"`
	MinStock     int             `json:"min_stock"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	Supplier     string          `json:"supplier"`
	ExpiryDate   string          `json:"expiry_date"` // YYYY-MM-DD, empty for none
}

// UpdateProduct replaces the editable fields of a product. Version must be
// the version the caller last read.
type UpdateProduct struct {
	OwnerID      string          `json:"-"`
	ProductID    string          `json:"-"`
	Version      int             `json:"version"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Stock        int             `json:"stock"`
	MinStock     int             `json:"min_stock"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	Supplier     string          `json:"supplier"`
	ExpiryDate   string          `json:"expiry_date"`
}

// Sale Commands
type Sell struct {
	OwnerID   string `json:"-"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
