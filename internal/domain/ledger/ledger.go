// Package ledger validates a sale against a product snapshot and computes
// the resulting stock and sale record. It performs no I/O.
package ledger

import (
	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/shopspring/decimal"
)

// Decision is an accepted evaluation: the stock value to write and the
// sale draft to append once the write commits. The draft has no ID or
// timestamp yet.
type Decision struct {
	NewStock int
	Sale     sale.SaleEvent
}

// Evaluate checks quantity against the snapshot. Quantity is validated
// first so an invalid request is rejected the same way whatever the
// product state.
func Evaluate(p *product.Product, quantity int) (Decision, error) {
	if quantity <= 0 {
		return Decision{}, sale.ErrInvalidQuantity
	}
	if p == nil {
		return Decision{}, sale.ErrProductNotFound
	}
	if quantity > p.Stock {
		return Decision{}, sale.NewError(sale.CodeInsufficientStock, p.ID, nil)
	}

	newStock := p.Stock - quantity
	return Decision{
		NewStock: newStock,
		Sale: sale.SaleEvent{
			OwnerID:        p.OwnerID,
			ProductID:      p.ID,
			ProductName:    p.Name,
			Quantity:       quantity,
			UnitPrice:      p.SellingPrice,
			Total:          p.SellingPrice.Mul(decimal.NewFromInt(int64(quantity))),
			StockAfter:     newStock,
			ProductVersion: p.Version + 1,
		},
	}, nil
}
