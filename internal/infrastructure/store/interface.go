package store

import (
	"context"
	"errors"

	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
)

var (
	// ErrNotFound is returned when a product does not exist or belongs to
	// another owner.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned by conditional writes whose expected
	// version no longer matches the stored one.
	ErrVersionConflict = errors.New("version conflict")
	// ErrNegativeStock is returned when a write would leave stock below zero.
	ErrNegativeStock = errors.New("stock must not be negative")
	// ErrDuplicate is returned by Create when the product ID already exists.
	ErrDuplicate = errors.New("already exists")
)

// CatalogStore is the durable home of products and the sale log.
type CatalogStore interface {
	// Get returns the product with its current version.
	Get(ctx context.Context, ownerID, productID string) (*product.Product, error)

	// ConditionalUpdate sets stock and bumps the version atomically, only
	// if the stored version equals expectedVersion.
	ConditionalUpdate(ctx context.Context, productID string, expectedVersion, newStock int) error

	// AppendSale durably records a sale. Appending an ID that is already
	// stored is a no-op.
	AppendSale(ctx context.Context, ev *sale.SaleEvent) error

	// List returns every product of an owner as one snapshot.
	List(ctx context.Context, ownerID string) ([]product.Product, error)

	// Create stores a new product at version 1.
	Create(ctx context.Context, p *product.Product) error

	// Update overwrites a product (manual catalog edit) under the same
	// version check as ConditionalUpdate. On success p.Version is bumped.
	Update(ctx context.Context, p *product.Product, expectedVersion int) error

	// ListSales returns the sale log of an owner, optionally narrowed to
	// one product, oldest first.
	ListSales(ctx context.Context, ownerID, productID string) ([]sale.SaleEvent, error)

	Close(ctx context.Context) error
}
