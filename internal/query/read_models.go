package query

import "github.com/example/gramstore/internal/readmodel"

type SalesSummary = readmodel.SalesSummary
type SalesTotals = readmodel.SalesTotals

// SalesReport is the owner-wide view served at /sales/summary.
type SalesReport struct {
	Products []SalesSummary `json:"products"`
	Totals   SalesTotals    `json:"totals"`
}
