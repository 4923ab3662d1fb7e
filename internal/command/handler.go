package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/google/uuid"
)

// ErrVersionRequired is returned when an update does not say which version
// it was based on.
var ErrVersionRequired = errors.New("version is required")

type Handler struct {
	catalog     store.CatalogStore
	coordinator *Coordinator
}

func NewHandler(catalog store.CatalogStore, coordinator *Coordinator) *Handler {
	return &Handler{
		catalog:     catalog,
		coordinator: coordinator,
	}
}

// CreateProduct adds a product to the owner's catalog at version 1.
func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*product.Product, error) {
	expiry, err := product.ParseExpiryDate(cmd.ExpiryDate)
	if err != nil {
		return nil, err
	}

	p := &product.Product{
		ID:           uuid.New().String(),
		OwnerID:      cmd.OwnerID,
		Name:         strings.TrimSpace(cmd.Name),
		Category:     strings.TrimSpace(cmd.Category),
		Stock:        cmd.Stock,
		MinStock:     cmd.MinStock,
		SellingPrice: cmd.SellingPrice,
		CostPrice:    cmd.CostPrice,
		Supplier:     strings.TrimSpace(cmd.Supplier),
		ExpiryDate:   expiry,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := h.catalog.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

// UpdateProduct overwrites a product if cmd.Version is still current.
// A stale version fails with store.ErrVersionConflict.
func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (*product.Product, error) {
	if cmd.Version <= 0 {
		return nil, ErrVersionRequired
	}
	expiry, err := product.ParseExpiryDate(cmd.ExpiryDate)
	if err != nil {
		return nil, err
	}

	current, err := h.catalog.Get(ctx, cmd.OwnerID, cmd.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, product.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	p := *current
	p.Name = strings.TrimSpace(cmd.Name)
	p.Category = strings.TrimSpace(cmd.Category)
	p.Stock = cmd.Stock
	p.MinStock = cmd.MinStock
	p.SellingPrice = cmd.SellingPrice
	p.CostPrice = cmd.CostPrice
	p.Supplier = strings.TrimSpace(cmd.Supplier)
	p.ExpiryDate = expiry
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := h.catalog.Update(ctx, &p, cmd.Version); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, product.ErrProductNotFound
		}
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &p, nil
}

// Sell records a sale through the coordinator.
func (h *Handler) Sell(ctx context.Context, cmd Sell) (*sale.SaleEvent, error) {
	return h.coordinator.Sell(ctx, cmd.OwnerID, cmd.ProductID, cmd.Quantity)
}
