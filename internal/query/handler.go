package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/gramstore/internal/analytics"
	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/example/gramstore/internal/readmodel"
)

type Handler struct {
	catalog     store.CatalogStore
	summaries   store.SummaryStore
	horizonDays int
	now         func() time.Time
}

// NewHandler builds a query handler. horizonDays is the expiring-soon
// window used when a request does not give one.
func NewHandler(catalog store.CatalogStore, summaries store.SummaryStore, horizonDays int) *Handler {
	if horizonDays < 0 {
		horizonDays = analytics.DefaultHorizonDays
	}
	return &Handler{
		catalog:     catalog,
		summaries:   summaries,
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

// Products
func (h *Handler) GetProduct(ctx context.Context, ownerID, productID string) (*product.Product, error) {
	p, err := h.catalog.Get(ctx, ownerID, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, product.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListProducts returns the owner's catalog. A non-blank nameQuery keeps only
// products whose name contains it, ignoring case.
func (h *Handler) ListProducts(ctx context.Context, ownerID, nameQuery string) ([]product.Product, error) {
	products, err := h.catalog.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	q := strings.ToLower(strings.TrimSpace(nameQuery))
	if q == "" {
		return products, nil
	}
	matched := make([]product.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// Analytics

// GetAnalytics classifies one snapshot of the owner's catalog. A negative
// horizonDays selects the handler's default.
func (h *Handler) GetAnalytics(ctx context.Context, ownerID string, horizonDays int) (analytics.Report, error) {
	if horizonDays < 0 {
		horizonDays = h.horizonDays
	}
	products, err := h.catalog.List(ctx, ownerID)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("failed to load catalog snapshot: %w", err)
	}
	return analytics.Classify(products, h.now().UTC(), horizonDays), nil
}

// Sales

// ListSales returns the sale log, narrowed to productID when non-empty.
func (h *Handler) ListSales(ctx context.Context, ownerID, productID string) ([]sale.SaleEvent, error) {
	if productID != "" {
		if _, err := h.GetProduct(ctx, ownerID, productID); err != nil {
			return nil, err
		}
	}
	sales, err := h.catalog.ListSales(ctx, ownerID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}

func (h *Handler) GetSalesReport(ctx context.Context, ownerID string) (*SalesReport, error) {
	summaries, err := h.summaries.ListSummaries(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	return &SalesReport{
		Products: summaries,
		Totals:   readmodel.Totals(summaries),
	}, nil
}
