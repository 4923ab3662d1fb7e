package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/infrastructure/store"
)

// MockCatalogStore is a mock implementation of store.CatalogStore for testing.
// Callbacks run without the mock's lock held, so they may call back into it.
type MockCatalogStore struct {
	mu       sync.Mutex
	products map[string]product.Product
	sales    []sale.SaleEvent

	// For tracking calls in tests
	GetCalls    []GetCall
	UpdateCalls []UpdateCall
	AppendCalls []sale.SaleEvent

	GetErr    error
	UpdateErr error
	AppendErr error
	ListErr   error

	GetCallback    func(ctx context.Context, ownerID, productID string) (*product.Product, error)
	UpdateCallback func(ctx context.Context, productID string, expectedVersion, newStock int) error
	AppendCallback func(ctx context.Context, ev *sale.SaleEvent) error
}

// GetCall records parameters passed to Get
type GetCall struct {
	OwnerID   string
	ProductID string
}

// UpdateCall records parameters passed to ConditionalUpdate
type UpdateCall struct {
	ProductID       string
	ExpectedVersion int
	NewStock        int
}

var _ store.CatalogStore = (*MockCatalogStore)(nil)

// NewMockCatalogStore creates a new MockCatalogStore
func NewMockCatalogStore() *MockCatalogStore {
	return &MockCatalogStore{
		products:    make(map[string]product.Product),
		GetCalls:    make([]GetCall, 0),
		UpdateCalls: make([]UpdateCall, 0),
		AppendCalls: make([]sale.SaleEvent, 0),
	}
}

// AddProduct seeds a product as stored, keeping its Version (1 if unset).
func (m *MockCatalogStore) AddProduct(p product.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Version == 0 {
		p.Version = 1
	}
	m.products[p.ID] = p
}

// Product returns the stored state of a product.
func (m *MockCatalogStore) Product(productID string) (product.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	return p, ok
}

// Sales returns the appended sale log.
func (m *MockCatalogStore) Sales() []sale.SaleEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sale.SaleEvent(nil), m.sales...)
}

// SetStock overwrites stock and bumps the version, like a concurrent writer.
func (m *MockCatalogStore) SetStock(productID string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[productID]
	p.Stock = stock
	p.Version++
	m.products[productID] = p
}

func (m *MockCatalogStore) Get(ctx context.Context, ownerID, productID string) (*product.Product, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, GetCall{OwnerID: ownerID, ProductID: productID})
	callback, getErr := m.GetCallback, m.GetErr
	m.mu.Unlock()

	if callback != nil {
		return callback(ctx, ownerID, productID)
	}
	if getErr != nil {
		return nil, getErr
	}
	return m.get(ownerID, productID)
}

func (m *MockCatalogStore) get(ownerID, productID string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok || p.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *MockCatalogStore) ConditionalUpdate(ctx context.Context, productID string, expectedVersion, newStock int) error {
	m.mu.Lock()
	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{
		ProductID:       productID,
		ExpectedVersion: expectedVersion,
		NewStock:        newStock,
	})
	callback, updateErr := m.UpdateCallback, m.UpdateErr
	m.mu.Unlock()

	if callback != nil {
		if err := callback(ctx, productID, expectedVersion, newStock); err != nil {
			return err
		}
	}
	if updateErr != nil {
		return updateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if newStock < 0 {
		return store.ErrNegativeStock
	}
	p, ok := m.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	if p.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	p.Stock = newStock
	p.Version++
	p.UpdatedAt = time.Now()
	m.products[productID] = p
	return nil
}

func (m *MockCatalogStore) AppendSale(ctx context.Context, ev *sale.SaleEvent) error {
	m.mu.Lock()
	m.AppendCalls = append(m.AppendCalls, *ev)
	callback, appendErr := m.AppendCallback, m.AppendErr
	m.mu.Unlock()

	if callback != nil {
		if err := callback(ctx, ev); err != nil {
			return err
		}
	}
	if appendErr != nil {
		return appendErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sales {
		if existing.ID == ev.ID {
			return nil
		}
	}
	m.sales = append(m.sales, *ev)
	return nil
}

func (m *MockCatalogStore) List(ctx context.Context, ownerID string) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	products := make([]product.Product, 0)
	for _, p := range m.products {
		if p.OwnerID == ownerID {
			products = append(products, p)
		}
	}
	return products, nil
}

func (m *MockCatalogStore) Create(ctx context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; ok {
		return store.ErrDuplicate
	}
	p.Version = 1
	m.products[p.ID] = *p
	return nil
}

func (m *MockCatalogStore) Update(ctx context.Context, p *product.Product, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.products[p.ID]
	if !ok || current.OwnerID != p.OwnerID {
		return store.ErrNotFound
	}
	if current.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	p.Version = expectedVersion + 1
	m.products[p.ID] = *p
	return nil
}

func (m *MockCatalogStore) ListSales(ctx context.Context, ownerID, productID string) ([]sale.SaleEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sales := make([]sale.SaleEvent, 0)
	for _, ev := range m.sales {
		if ev.OwnerID == ownerID && (productID == "" || ev.ProductID == productID) {
			sales = append(sales, ev)
		}
	}
	return sales, nil
}

func (m *MockCatalogStore) Close(context.Context) error {
	return nil
}

// Reset clears all data and recorded calls
func (m *MockCatalogStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = make(map[string]product.Product)
	m.sales = nil
	m.GetCalls = make([]GetCall, 0)
	m.UpdateCalls = make([]UpdateCall, 0)
	m.AppendCalls = make([]sale.SaleEvent, 0)
	m.GetErr, m.UpdateErr, m.AppendErr, m.ListErr = nil, nil, nil, nil
	m.GetCallback, m.UpdateCallback, m.AppendCallback = nil, nil, nil
}
