package kinesis

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/infrastructure/store"
)

// ConvertFromKinesisRecord converts a Kinesis record carrying a DynamoDB
// stream change of the sales table into a sale event. Non-INSERT changes
// return nil: sales are append-only, so only inserts are new facts.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*sale.SaleEvent, error) {
	var dynamoDBRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &dynamoDBRecord); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}
	return ConvertFromDynamoDBStreamRecord(dynamoDBRecord)
}

// ConvertFromDynamoDBStreamRecord converts a DynamoDB stream record of the
// sales table into a sale event.
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*sale.SaleEvent, error) {
	if record.EventName != "INSERT" {
		return nil, nil
	}
	return convertSaleImage(record.Change.NewImage)
}

func convertSaleImage(image map[string]events.DynamoDBAttributeValue) (*sale.SaleEvent, error) {
	if image == nil {
		return nil, fmt.Errorf("DynamoDB image is nil")
	}

	var item store.DynamoSale
	item.ID = stringAttr(image, "id")
	item.OwnerID = stringAttr(image, "owner_id")
	item.ProductID = stringAttr(image, "product_id")
	item.ProductName = stringAttr(image, "product_name")
	item.UnitPrice = stringAttr(image, "unit_price")
	item.Total = stringAttr(image, "total")
	item.SoldAt = stringAttr(image, "sold_at")

	var err error
	if item.Quantity, err = intAttr(image, "quantity"); err != nil {
		return nil, err
	}
	if item.StockAfter, err = intAttr(image, "stock_after"); err != nil {
		return nil, err
	}
	if item.ProductVersion, err = intAttr(image, "product_version"); err != nil {
		return nil, err
	}

	if item.ID == "" || item.OwnerID == "" || item.ProductID == "" {
		return nil, fmt.Errorf("missing required fields: id=%s, owner_id=%s, product_id=%s",
			item.ID, item.OwnerID, item.ProductID)
	}

	return store.FromDynamoSale(item)
}

func stringAttr(image map[string]events.DynamoDBAttributeValue, name string) string {
	v, ok := image[name]
	if !ok || v.DataType() != events.DataTypeString {
		return ""
	}
	return v.String()
}

func intAttr(image map[string]events.DynamoDBAttributeValue, name string) (int, error) {
	v, ok := image[name]
	if !ok {
		return 0, nil
	}
	n, err := v.Integer()
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return int(n), nil
}
