package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoProductsCollection = "products"
	mongoSalesCollection    = "sales"
)

// MongoCatalogStore keeps products and sales in MongoDB. Stock writes are
// single-document updates filtered on the expected version.
type MongoCatalogStore struct {
	client   *mongo.Client
	products *mongo.Collection
	sales    *mongo.Collection
}

type mongoProduct struct {
	ID           string     `bson:"_id"`
	OwnerID      string     `bson:"owner_id"`
	Name         string     `bson:"name"`
	Category     string     `bson:"category"`
	Stock        int        `bson:"stock"`
	MinStock     int        `bson:"min_stock"`
	SellingPrice string     `bson:"selling_price"`
	CostPrice    string     `bson:"cost_price"`
	Supplier     string     `bson:"supplier,omitempty"`
	ExpiryDate   *time.Time `bson:"expiry_date,omitempty"`
	Version      int        `bson:"version"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

type mongoSale struct {
	ID             string    `bson:"_id"`
	OwnerID        string    `bson:"owner_id"`
	ProductID      string    `bson:"product_id"`
	ProductName    string    `bson:"product_name"`
	Quantity       int       `bson:"quantity"`
	UnitPrice      string    `bson:"unit_price"`
	Total          string    `bson:"total"`
	StockAfter     int       `bson:"stock_after"`
	ProductVersion int       `bson:"product_version"`
	SoldAt         time.Time `bson:"sold_at"`
}

// ConnectMongo connects and pings the server.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOpts := options.Client().ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(25)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

func NewMongoCatalogStore(client *mongo.Client, database string) *MongoCatalogStore {
	db := client.Database(database)
	return &MongoCatalogStore{
		client:   client,
		products: db.Collection(mongoProductsCollection),
		sales:    db.Collection(mongoSalesCollection),
	}
}

// EnsureIndexes creates the owner lookup indexes.
func (s *MongoCatalogStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "name", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create product index: %w", err)
	}
	if _, err := s.sales.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "product_id", Value: 1}, {Key: "sold_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create sales index: %w", err)
	}
	return nil
}

func (s *MongoCatalogStore) Get(ctx context.Context, ownerID, productID string) (*product.Product, error) {
	var doc mongoProduct
	err := s.products.FindOne(ctx, bson.M{"_id": productID, "owner_id": ownerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return fromMongoProduct(doc)
}

func (s *MongoCatalogStore) ConditionalUpdate(ctx context.Context, productID string, expectedVersion, newStock int) error {
	if newStock < 0 {
		return ErrNegativeStock
	}
	res, err := s.products.UpdateOne(ctx,
		bson.M{"_id": productID, "version": expectedVersion},
		bson.M{
			"$set": bson.M{"stock": newStock, "updated_at": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	return s.checkMatched(ctx, res, bson.M{"_id": productID})
}

func (s *MongoCatalogStore) checkMatched(ctx context.Context, res *mongo.UpdateResult, existence bson.M) error {
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := s.products.CountDocuments(ctx, existence)
	if err != nil {
		return fmt.Errorf("failed to check product: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *MongoCatalogStore) AppendSale(ctx context.Context, ev *sale.SaleEvent) error {
	_, err := s.sales.InsertOne(ctx, toMongoSale(ev))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

func (s *MongoCatalogStore) List(ctx context.Context, ownerID string) ([]product.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.products.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoProduct
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]product.Product, 0, len(docs))
	for _, doc := range docs {
		p, err := fromMongoProduct(doc)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

func (s *MongoCatalogStore) Create(ctx context.Context, p *product.Product) error {
	now := time.Now().UTC()
	p.Version = 1
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.products.InsertOne(ctx, toMongoProduct(p))
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (s *MongoCatalogStore) Update(ctx context.Context, p *product.Product, expectedVersion int) error {
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	now := time.Now().UTC()
	doc := toMongoProduct(p)

	set := bson.M{
		"name":          doc.Name,
		"category":      doc.Category,
		"stock":         doc.Stock,
		"min_stock":     doc.MinStock,
		"selling_price": doc.SellingPrice,
		"cost_price":    doc.CostPrice,
		"supplier":      doc.Supplier,
		"updated_at":    now,
	}
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	if doc.ExpiryDate != nil {
		set["expiry_date"] = doc.ExpiryDate
	} else {
		update["$unset"] = bson.M{"expiry_date": ""}
	}

	res, err := s.products.UpdateOne(ctx,
		bson.M{"_id": p.ID, "owner_id": p.OwnerID, "version": expectedVersion},
		update,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if err := s.checkMatched(ctx, res, bson.M{"_id": p.ID, "owner_id": p.OwnerID}); err != nil {
		return err
	}
	p.Version = expectedVersion + 1
	p.UpdatedAt = now
	return nil
}

func (s *MongoCatalogStore) ListSales(ctx context.Context, ownerID, productID string) ([]sale.SaleEvent, error) {
	filter := bson.M{"owner_id": ownerID}
	if productID != "" {
		filter["product_id"] = productID
	}
	opts := options.Find().SetSort(bson.D{{Key: "sold_at", Value: 1}, {Key: "product_version", Value: 1}})

	cursor, err := s.sales.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoSale
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode sales: %w", err)
	}

	sales := make([]sale.SaleEvent, 0, len(docs))
	for _, doc := range docs {
		ev, err := fromMongoSale(doc)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *ev)
	}
	return sales, nil
}

func (s *MongoCatalogStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toMongoProduct(p *product.Product) mongoProduct {
	doc := mongoProduct{
		ID:           p.ID,
		OwnerID:      p.OwnerID,
		Name:         p.Name,
		Category:     p.Category,
		Stock:        p.Stock,
		MinStock:     p.MinStock,
		SellingPrice: p.SellingPrice.String(),
		CostPrice:    p.CostPrice.String(),
		Supplier:     p.Supplier,
		Version:      p.Version,
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
	if p.HasExpiry() {
		d := product.DateOnly(*p.ExpiryDate)
		doc.ExpiryDate = &d
	}
	return doc
}

func fromMongoProduct(doc mongoProduct) (*product.Product, error) {
	selling, err := decimal.NewFromString(doc.SellingPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse selling_price: %w", err)
	}
	cost, err := decimal.NewFromString(doc.CostPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cost_price: %w", err)
	}
	p := &product.Product{
		ID:           doc.ID,
		OwnerID:      doc.OwnerID,
		Name:         doc.Name,
		Category:     doc.Category,
		Stock:        doc.Stock,
		MinStock:     doc.MinStock,
		SellingPrice: selling,
		CostPrice:    cost,
		Supplier:     doc.Supplier,
		Version:      doc.Version,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	if doc.ExpiryDate != nil {
		d := product.DateOnly(*doc.ExpiryDate)
		p.ExpiryDate = &d
	}
	return p, nil
}

func toMongoSale(ev *sale.SaleEvent) mongoSale {
	return mongoSale{
		ID:             ev.ID,
		OwnerID:        ev.OwnerID,
		ProductID:      ev.ProductID,
		ProductName:    ev.ProductName,
		Quantity:       ev.Quantity,
		UnitPrice:      ev.UnitPrice.String(),
		Total:          ev.Total.String(),
		StockAfter:     ev.StockAfter,
		ProductVersion: ev.ProductVersion,
		SoldAt:         ev.SoldAt.UTC(),
	}
}

func fromMongoSale(doc mongoSale) (*sale.SaleEvent, error) {
	unitPrice, err := decimal.NewFromString(doc.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse unit_price: %w", err)
	}
	total, err := decimal.NewFromString(doc.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total: %w", err)
	}
	return &sale.SaleEvent{
		ID:             doc.ID,
		OwnerID:        doc.OwnerID,
		ProductID:      doc.ProductID,
		ProductName:    doc.ProductName,
		Quantity:       doc.Quantity,
		UnitPrice:      unitPrice,
		Total:          total,
		StockAfter:     doc.StockAfter,
		ProductVersion: doc.ProductVersion,
		SoldAt:         doc.SoldAt,
	}, nil
}
