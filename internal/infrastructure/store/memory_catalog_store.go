package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
)

// MemoryCatalogStore keeps products and sales in process memory. A single
// mutex makes every conditional write atomic with respect to reads.
type MemoryCatalogStore struct {
	mu       sync.RWMutex
	products map[string]product.Product // productID -> product
	sales    []sale.SaleEvent
	saleIDs  map[string]struct{}
	now      func() time.Time
}

func NewMemoryCatalogStore() *MemoryCatalogStore {
	return &MemoryCatalogStore{
		products: make(map[string]product.Product),
		saleIDs:  make(map[string]struct{}),
		now:      time.Now,
	}
}

func (s *MemoryCatalogStore) Get(ctx context.Context, ownerID, productID string) (*product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok || p.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	cp := clone(p)
	return &cp, nil
}

func (s *MemoryCatalogStore) ConditionalUpdate(ctx context.Context, productID string, expectedVersion, newStock int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if newStock < 0 {
		return ErrNegativeStock
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return ErrNotFound
	}
	if p.Version != expectedVersion {
		return ErrVersionConflict
	}
	p.Stock = newStock
	p.Version++
	p.UpdatedAt = s.now()
	s.products[productID] = p
	return nil
}

func (s *MemoryCatalogStore) AppendSale(ctx context.Context, ev *sale.SaleEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.saleIDs[ev.ID]; ok {
		return nil
	}
	s.saleIDs[ev.ID] = struct{}{}
	s.sales = append(s.sales, *ev)
	return nil
}

func (s *MemoryCatalogStore) List(ctx context.Context, ownerID string) ([]product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]product.Product, 0)
	for _, p := range s.products {
		if p.OwnerID == ownerID {
			products = append(products, clone(p))
		}
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name == products[j].Name {
			return products[i].ID < products[j].ID
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

func (s *MemoryCatalogStore) Create(ctx context.Context, p *product.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; ok {
		return ErrDuplicate
	}
	now := s.now()
	p.Version = 1
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.products[p.ID] = clone(*p)
	return nil
}

func (s *MemoryCatalogStore) Update(ctx context.Context, p *product.Product, expectedVersion int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[p.ID]
	if !ok || current.OwnerID != p.OwnerID {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	p.Version = expectedVersion + 1
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = s.now()
	s.products[p.ID] = clone(*p)
	return nil
}

func (s *MemoryCatalogStore) ListSales(ctx context.Context, ownerID, productID string) ([]sale.SaleEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]sale.SaleEvent, 0)
	for _, ev := range s.sales {
		if ev.OwnerID != ownerID {
			continue
		}
		if productID != "" && ev.ProductID != productID {
			continue
		}
		sales = append(sales, ev)
	}
	return sales, nil
}

func (s *MemoryCatalogStore) Close(context.Context) error {
	return nil
}

func clone(p product.Product) product.Product {
	if p.ExpiryDate != nil {
		d := *p.ExpiryDate
		p.ExpiryDate = &d
	}
	return p
}
