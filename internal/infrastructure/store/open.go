package store

import (
	"context"
	"fmt"

	"github.com/example/gramstore/internal/config"
)

// OpenCatalog returns the CatalogStore selected by cfg.StoreDriver. Tables
// and indexes are created for the SQL and Mongo drivers; DynamoDB tables are
// provisioned outside the service.
func OpenCatalog(ctx context.Context, cfg config.Config) (CatalogStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return NewMemoryCatalogStore(), nil

	case config.DriverPostgres:
		db, err := ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		s := NewPostgresCatalogStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return s, nil

	case config.DriverDynamoDB:
		client, err := NewDynamoClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		return NewDynamoCatalogStore(client, cfg.DynamoProductsTable, cfg.DynamoSalesTable), nil

	case config.DriverMongo:
		client, err := ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		s := NewMongoCatalogStore(client, cfg.MongoDatabase)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.StoreDriver)
}

// OpenSummary returns the summary store: PostgreSQL when DATABASE_URL is
// set, process memory otherwise. The returned func releases the connection.
func OpenSummary(ctx context.Context, cfg config.Config) (SummaryStore, func() error, error) {
	if cfg.DatabaseURL == "" {
		return NewMemorySummaryStore(), func() error { return nil }, nil
	}
	db, err := ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s := NewPostgresSummaryStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, db.Close, nil
}
