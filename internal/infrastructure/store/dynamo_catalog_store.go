package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/shopspring/decimal"
)

// Secondary indexes expected on the DynamoDB tables.
const (
	DynamoProductsOwnerIndex = "owner_id-index"
	DynamoSalesOwnerIndex    = "owner_id-sold_at-index"
)

// DynamoCatalogStore stores products and sales in DynamoDB.
// The sales table is streamed to Kinesis via DynamoDB Kinesis integration and
// feeds the serverless projector.
type DynamoCatalogStore struct {
	client        *dynamodb.Client
	productsTable string
	salesTable    string
}

// DynamoProduct is the DynamoDB item layout of a product. Prices are stored
// as decimal strings so no precision is lost.
type DynamoProduct struct {
	ID           string `dynamodbav:"id"`
	OwnerID      string `dynamodbav:"owner_id"`
	Name         string `dynamodbav:"name"`
	Category     string `dynamodbav:"category"`
	Stock        int    `dynamodbav:"stock"`
	MinStock     int    `dynamodbav:"min_stock"`
	SellingPrice string `dynamodbav:"selling_price"`
	CostPrice    string `dynamodbav:"cost_price"`
	Supplier     string `dynamodbav:"supplier,omitempty"`
	ExpiryDate   string `dynamodbav:"expiry_date,omitempty"`
	Version      int    `dynamodbav:"version"`
	CreatedAt    string `dynamodbav:"created_at"`
	UpdatedAt    string `dynamodbav:"updated_at"`
}

// DynamoSale is the DynamoDB item layout of a sale.
type DynamoSale struct {
	ID             string `dynamodbav:"id"`
	OwnerID        string `dynamodbav:"owner_id"`
	ProductID      string `dynamodbav:"product_id"`
	ProductName    string `dynamodbav:"product_name"`
	Quantity       int    `dynamodbav:"quantity"`
	UnitPrice      string `dynamodbav:"unit_price"`
	Total          string `dynamodbav:"total"`
	StockAfter     int    `dynamodbav:"stock_after"`
	ProductVersion int    `dynamodbav:"product_version"`
	SoldAt         string `dynamodbav:"sold_at"`
}

// NewDynamoClient builds a DynamoDB client. A non-empty endpoint targets a
// local emulator instead of AWS.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	var opts []func(*dynamodb.Options)
	if endpoint != "" {
		opts = append(opts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	return dynamodb.NewFromConfig(cfg, opts...), nil
}

func NewDynamoCatalogStore(client *dynamodb.Client, productsTable, salesTable string) *DynamoCatalogStore {
	return &DynamoCatalogStore{
		client:        client,
		productsTable: productsTable,
		salesTable:    salesTable,
	}
}

func (s *DynamoCatalogStore) Get(ctx context.Context, ownerID, productID string) (*product.Product, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.productsTable),
		Key:            productKey(productID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	p, err := unmarshalProduct(result.Item)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *DynamoCatalogStore) ConditionalUpdate(ctx context.Context, productID string, expectedVersion, newStock int) error {
	if newStock < 0 {
		return ErrNegativeStock
	}
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.productsTable),
		Key:                 productKey(productID),
		UpdateExpression:    aws.String("SET stock = :stock, version = :next, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(id) AND version = :expected"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":stock":    numberAttr(newStock),
			":next":     numberAttr(expectedVersion + 1),
			":expected": numberAttr(expectedVersion),
			":now":      &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	return conditionError(err, "", "failed to update stock")
}

// AppendSale writes the sale item once; a repeated sale ID is a no-op.
func (s *DynamoCatalogStore) AppendSale(ctx context.Context, ev *sale.SaleEvent) error {
	av, err := attributevalue.MarshalMap(ToDynamoSale(ev))
	if err != nil {
		return fmt.Errorf("failed to marshal sale: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.salesTable),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to put sale: %w", err)
	}
	return nil
}

func (s *DynamoCatalogStore) List(ctx context.Context, ownerID string) ([]product.Product, error) {
	items, err := s.queryOwner(ctx, s.productsTable, DynamoProductsOwnerIndex, ownerID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]product.Product, 0, len(items))
	for _, item := range items {
		p, err := unmarshalProduct(item)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name == products[j].Name {
			return products[i].ID < products[j].ID
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

func (s *DynamoCatalogStore) Create(ctx context.Context, p *product.Product) error {
	now := time.Now()
	p.Version = 1
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	av, err := attributevalue.MarshalMap(ToDynamoProduct(p))
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.productsTable),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to put product: %w", err)
	}
	return nil
}

func (s *DynamoCatalogStore) Update(ctx context.Context, p *product.Product, expectedVersion int) error {
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	now := time.Now()
	item := ToDynamoProduct(p)

	update := "SET #name = :name, category = :category, stock = :stock, min_stock = :min_stock, " +
		"selling_price = :selling_price, cost_price = :cost_price, supplier = :supplier, " +
		"version = :next, updated_at = :now"
	values := map[string]types.AttributeValue{
		":name":          &types.AttributeValueMemberS{Value: item.Name},
		":category":      &types.AttributeValueMemberS{Value: item.Category},
		":stock":         numberAttr(item.Stock),
		":min_stock":     numberAttr(item.MinStock),
		":selling_price": &types.AttributeValueMemberS{Value: item.SellingPrice},
		":cost_price":    &types.AttributeValueMemberS{Value: item.CostPrice},
		":supplier":      &types.AttributeValueMemberS{Value: item.Supplier},
		":next":          numberAttr(expectedVersion + 1),
		":expected":      numberAttr(expectedVersion),
		":owner":         &types.AttributeValueMemberS{Value: p.OwnerID},
		":now":           &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339Nano)},
	}
	if item.ExpiryDate != "" {
		update += ", expiry_date = :expiry"
		values[":expiry"] = &types.AttributeValueMemberS{Value: item.ExpiryDate}
	} else {
		update += " REMOVE expiry_date"
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(s.productsTable),
		Key:                                 productKey(p.ID),
		UpdateExpression:                    aws.String(update),
		ConditionExpression:                 aws.String("attribute_exists(id) AND owner_id = :owner AND version = :expected"),
		ExpressionAttributeNames:            map[string]string{"#name": "name"},
		ExpressionAttributeValues:           values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err := conditionError(err, p.OwnerID, "failed to update product"); err != nil {
		return err
	}
	p.Version = expectedVersion + 1
	p.UpdatedAt = now
	return nil
}

func (s *DynamoCatalogStore) ListSales(ctx context.Context, ownerID, productID string) ([]sale.SaleEvent, error) {
	var filter *string
	var filterValues map[string]types.AttributeValue
	if productID != "" {
		filter = aws.String("product_id = :pid")
		filterValues = map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: productID},
		}
	}

	items, err := s.queryOwner(ctx, s.salesTable, DynamoSalesOwnerIndex, ownerID, filter, filterValues)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	sales := make([]sale.SaleEvent, 0, len(items))
	for _, item := range items {
		var ds DynamoSale
		if err := attributevalue.UnmarshalMap(item, &ds); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sale: %w", err)
		}
		ev, err := FromDynamoSale(ds)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *ev)
	}
	return sales, nil
}

func (s *DynamoCatalogStore) Close(context.Context) error {
	return nil
}

// queryOwner pages through an owner index, ascending by sort key.
func (s *DynamoCatalogStore) queryOwner(ctx context.Context, table, index, ownerID string, filter *string, filterValues map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	values := map[string]types.AttributeValue{
		":owner": &types.AttributeValueMemberS{Value: ownerID},
	}
	for k, v := range filterValues {
		values[k] = v
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("owner_id = :owner"),
		FilterExpression:          filter,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(true),
	})

	var items []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// conditionError maps a failed version condition to ErrNotFound or
// ErrVersionConflict using the item returned with the failure.
func conditionError(err error, ownerID, msg string) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if len(ccf.Item) == 0 {
		return ErrNotFound
	}
	if ownerID != "" {
		var current DynamoProduct
		if err := attributevalue.UnmarshalMap(ccf.Item, &current); err == nil && current.OwnerID != ownerID {
			return ErrNotFound
		}
	}
	return ErrVersionConflict
}

func productKey(productID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: productID},
	}
}

func numberAttr(n int) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
}

func unmarshalProduct(item map[string]types.AttributeValue) (*product.Product, error) {
	var dp DynamoProduct
	if err := attributevalue.UnmarshalMap(item, &dp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	return FromDynamoProduct(dp)
}

// ToDynamoProduct converts a product to its item layout.
func ToDynamoProduct(p *product.Product) DynamoProduct {
	dp := DynamoProduct{
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
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if p.HasExpiry() {
		dp.ExpiryDate = p.ExpiryDate.Format(product.ExpiryDateLayout)
	}
	return dp
}

// FromDynamoProduct converts an item back into a product.
func FromDynamoProduct(dp DynamoProduct) (*product.Product, error) {
	selling, err := decimal.NewFromString(dp.SellingPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse selling_price: %w", err)
	}
	cost, err := decimal.NewFromString(dp.CostPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cost_price: %w", err)
	}
	expiry, err := product.ParseExpiryDate(dp.ExpiryDate)
	if err != nil {
		return nil, err
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, dp.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, dp.UpdatedAt)

	return &product.Product{
		ID:           dp.ID,
		OwnerID:      dp.OwnerID,
		Name:         dp.Name,
		Category:     dp.Category,
		Stock:        dp.Stock,
		MinStock:     dp.MinStock,
		SellingPrice: selling,
		CostPrice:    cost,
		Supplier:     dp.Supplier,
		ExpiryDate:   expiry,
		Version:      dp.Version,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// ToDynamoSale converts a sale event to its item layout.
func ToDynamoSale(ev *sale.SaleEvent) DynamoSale {
	return DynamoSale{
		ID:             ev.ID,
		OwnerID:        ev.OwnerID,
		ProductID:      ev.ProductID,
		ProductName:    ev.ProductName,
		Quantity:       ev.Quantity,
		UnitPrice:      ev.UnitPrice.String(),
		Total:          ev.Total.String(),
		StockAfter:     ev.StockAfter,
		ProductVersion: ev.ProductVersion,
		SoldAt:         ev.SoldAt.UTC().Format(time.RFC3339Nano),
	}
}

// FromDynamoSale converts a sales-table item back into a sale event.
func FromDynamoSale(ds DynamoSale) (*sale.SaleEvent, error) {
	unitPrice, err := decimal.NewFromString(ds.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse unit_price: %w", err)
	}
	total, err := decimal.NewFromString(ds.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total: %w", err)
	}
	soldAt, err := time.Parse(time.RFC3339Nano, ds.SoldAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sold_at: %w", err)
	}

	return &sale.SaleEvent{
		ID:             ds.ID,
		OwnerID:        ds.OwnerID,
		ProductID:      ds.ProductID,
		ProductName:    ds.ProductName,
		Quantity:       ds.Quantity,
		UnitPrice:      unitPrice,
		Total:          total,
		StockAfter:     ds.StockAfter,
		ProductVersion: ds.ProductVersion,
		SoldAt:         soldAt,
	}, nil
}
