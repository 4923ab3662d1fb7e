package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id            TEXT PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	name          TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	stock         INTEGER NOT NULL CHECK (stock >= 0),
	min_stock     INTEGER NOT NULL CHECK (min_stock >= 0),
	selling_price NUMERIC(14, 2) NOT NULL,
	cost_price    NUMERIC(14, 2) NOT NULL,
	supplier      TEXT NOT NULL DEFAULT '',
	expiry_date   DATE,
	version       INTEGER NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS products_owner_idx ON products (owner_id);

CREATE TABLE IF NOT EXISTS sales (
	id              TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL,
	product_id      TEXT NOT NULL,
	product_name    TEXT NOT NULL,
	quantity        INTEGER NOT NULL CHECK (quantity > 0),
	unit_price      NUMERIC(14, 2) NOT NULL,
	total           NUMERIC(14, 2) NOT NULL,
	stock_after     INTEGER NOT NULL,
	product_version INTEGER NOT NULL,
	sold_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sales_owner_product_idx ON sales (owner_id, product_id, sold_at);
`

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

const productColumns = `id, owner_id, name, category, stock, min_stock, selling_price, cost_price,
	supplier, expiry_date, version, created_at, updated_at`

// PostgresCatalogStore keeps products and sales in PostgreSQL. Conditional
// writes are single UPDATE statements with a version predicate.
type PostgresCatalogStore struct {
	db *sql.DB
}

func NewPostgresCatalogStore(db *sql.DB) *PostgresCatalogStore {
	return &PostgresCatalogStore{db: db}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresCatalogStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*product.Product, error) {
	var p product.Product
	var expiry sql.NullTime
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Category, &p.Stock, &p.MinStock,
		&p.SellingPrice, &p.CostPrice, &p.Supplier, &expiry, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		d := product.DateOnly(expiry.Time)
		p.ExpiryDate = &d
	}
	return &p, nil
}

func (s *PostgresCatalogStore) Get(ctx context.Context, ownerID, productID string) (*product.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND owner_id = $2`,
		productID, ownerID,
	)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (s *PostgresCatalogStore) ConditionalUpdate(ctx context.Context, productID string, expectedVersion, newStock int) error {
	if newStock < 0 {
		return ErrNegativeStock
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET stock = $1, version = version + 1, updated_at = $2
		 WHERE id = $3 AND version = $4`,
		newStock, time.Now(), productID, expectedVersion,
	)
	if err != nil {
		return mapPostgresError(err, "failed to update stock")
	}
	return s.checkApplied(ctx, res, productID)
}

// checkApplied tells a lost version race apart from a missing row.
func (s *PostgresCatalogStore) checkApplied(ctx context.Context, res sql.Result, productID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *PostgresCatalogStore) AppendSale(ctx context.Context, ev *sale.SaleEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sales (id, owner_id, product_id, product_name, quantity, unit_price, total,
			stock_after, product_version, sold_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.OwnerID, ev.ProductID, ev.ProductName, ev.Quantity, ev.UnitPrice, ev.Total,
		ev.StockAfter, ev.ProductVersion, ev.SoldAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append sale: %w", err)
	}
	return nil
}

func (s *PostgresCatalogStore) List(ctx context.Context, ownerID string) ([]product.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE owner_id = $1 ORDER BY name, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]product.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *PostgresCatalogStore) Create(ctx context.Context, p *product.Product) error {
	now := time.Now()
	p.Version = 1
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.OwnerID, p.Name, p.Category, p.Stock, p.MinStock, p.SellingPrice, p.CostPrice,
		p.Supplier, nullDate(p.ExpiryDate), p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapPostgresError(err, "failed to create product")
	}
	return nil
}

func (s *PostgresCatalogStore) Update(ctx context.Context, p *product.Product, expectedVersion int) error {
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET name = $1, category = $2, stock = $3, min_stock = $4, selling_price = $5,
			cost_price = $6, supplier = $7, expiry_date = $8, version = version + 1, updated_at = $9
		 WHERE id = $10 AND owner_id = $11 AND version = $12`,
		p.Name, p.Category, p.Stock, p.MinStock, p.SellingPrice, p.CostPrice, p.Supplier,
		nullDate(p.ExpiryDate), now, p.ID, p.OwnerID, expectedVersion,
	)
	if err != nil {
		return mapPostgresError(err, "failed to update product")
	}
	if err := s.checkApplied(ctx, res, p.ID); err != nil {
		return err
	}
	p.Version = expectedVersion + 1
	p.UpdatedAt = now
	return nil
}

func (s *PostgresCatalogStore) ListSales(ctx context.Context, ownerID, productID string) ([]sale.SaleEvent, error) {
	query := `SELECT id, owner_id, product_id, product_name, quantity, unit_price, total,
			stock_after, product_version, sold_at
		 FROM sales WHERE owner_id = $1`
	args := []any{ownerID}
	if productID != "" {
		query += ` AND product_id = $2`
		args = append(args, productID)
	}
	query += ` ORDER BY sold_at ASC, product_version ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := make([]sale.SaleEvent, 0)
	for rows.Next() {
		var ev sale.SaleEvent
		if err := rows.Scan(&ev.ID, &ev.OwnerID, &ev.ProductID, &ev.ProductName, &ev.Quantity,
			&ev.UnitPrice, &ev.Total, &ev.StockAfter, &ev.ProductVersion, &ev.SoldAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, ev)
	}
	return sales, rows.Err()
}

func (s *PostgresCatalogStore) Close(context.Context) error {
	return s.db.Close()
}

func nullDate(d *time.Time) sql.NullTime {
	if d == nil || d.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: product.DateOnly(*d), Valid: true}
}

func mapPostgresError(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrDuplicate
		case pqCheckViolation:
			return ErrNegativeStock
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
