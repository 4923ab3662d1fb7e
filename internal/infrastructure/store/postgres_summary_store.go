package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/readmodel"
)

const postgresSummarySchema = `
CREATE TABLE IF NOT EXISTS sales_summaries (
	owner_id             TEXT NOT NULL,
	product_id           TEXT NOT NULL,
	product_name         TEXT NOT NULL,
	units_sold           INTEGER NOT NULL,
	revenue              NUMERIC(16, 2) NOT NULL,
	sale_count           INTEGER NOT NULL,
	last_sold_at         TIMESTAMPTZ NOT NULL,
	last_product_version INTEGER NOT NULL,
	PRIMARY KEY (owner_id, product_id)
);

CREATE TABLE IF NOT EXISTS sales_summary_applied (
	sale_id    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresSummaryStore implements SummaryStore using PostgreSQL
type PostgresSummaryStore struct {
	db *sql.DB
}

// NewPostgresSummaryStore creates a new PostgreSQL-based summary store
func NewPostgresSummaryStore(db *sql.DB) *PostgresSummaryStore {
	return &PostgresSummaryStore{db: db}
}

func (s *PostgresSummaryStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSummarySchema); err != nil {
		return fmt.Errorf("failed to create summary schema: %w", err)
	}
	return nil
}

// ApplySale records the sale ID and folds the sale into the summary row in
// one transaction.
func (s *PostgresSummaryStore) ApplySale(ctx context.Context, ev *sale.SaleEvent) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sales_summary_applied (sale_id) VALUES ($1) ON CONFLICT (sale_id) DO NOTHING`,
		ev.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record applied sale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sales_summaries AS s (owner_id, product_id, product_name, units_sold, revenue,
			sale_count, last_sold_at, last_product_version)
		 VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
		 ON CONFLICT (owner_id, product_id) DO UPDATE SET
			units_sold = s.units_sold + EXCLUDED.units_sold,
			revenue = s.revenue + EXCLUDED.revenue,
			sale_count = s.sale_count + 1,
			last_sold_at = GREATEST(s.last_sold_at, EXCLUDED.last_sold_at),
			product_name = CASE WHEN EXCLUDED.last_product_version >= s.last_product_version
				THEN EXCLUDED.product_name ELSE s.product_name END,
			last_product_version = GREATEST(s.last_product_version, EXCLUDED.last_product_version)`,
		ev.OwnerID, ev.ProductID, ev.ProductName, ev.Quantity, ev.Total, ev.SoldAt, ev.ProductVersion,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit summary: %w", err)
	}
	return true, nil
}

const summaryColumns = `owner_id, product_id, product_name, units_sold, revenue, sale_count,
	last_sold_at, last_product_version`

func scanSummary(row rowScanner) (*readmodel.SalesSummary, error) {
	var s readmodel.SalesSummary
	if err := row.Scan(&s.OwnerID, &s.ProductID, &s.ProductName, &s.UnitsSold, &s.Revenue,
		&s.SaleCount, &s.LastSoldAt, &s.LastProductVersion); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *PostgresSummaryStore) GetSummary(ctx context.Context, ownerID, productID string) (*readmodel.SalesSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+summaryColumns+` FROM sales_summaries WHERE owner_id = $1 AND product_id = $2`,
		ownerID, productID,
	)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return summary, nil
}

func (s *PostgresSummaryStore) ListSummaries(ctx context.Context, ownerID string) ([]readmodel.SalesSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM sales_summaries WHERE owner_id = $1 ORDER BY product_id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]readmodel.SalesSummary, 0)
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, *summary)
	}
	return summaries, rows.Err()
}
