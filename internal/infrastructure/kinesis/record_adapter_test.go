package kinesis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleImage(id string) map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"id":              events.NewStringAttribute(id),
		"owner_id":        events.NewStringAttribute("owner-1"),
		"product_id":      events.NewStringAttribute("prod-1"),
		"product_name":    events.NewStringAttribute("Rice 5kg"),
		"quantity":        events.NewNumberAttribute("3"),
		"unit_price":      events.NewStringAttribute("50.25"),
		"total":           events.NewStringAttribute("150.75"),
		"stock_after":     events.NewNumberAttribute("7"),
		"product_version": events.NewNumberAttribute("2"),
		"sold_at":         events.NewStringAttribute("2025-01-15T10:30:00.123456789Z"),
	}
}

func kinesisRecord(t *testing.T, eventID, seq string, record events.DynamoDBEventRecord) events.KinesisEventRecord {
	t.Helper()
	data, err := json.Marshal(record)
	require.NoError(t, err)
	return events.KinesisEventRecord{
		EventID: eventID,
		Kinesis: events.KinesisRecord{Data: data, SequenceNumber: seq},
	}
}

func TestConvertSaleImage(t *testing.T) {
	tests := []struct {
		name    string
		image   map[string]events.DynamoDBAttributeValue
		wantErr bool
	}{
		{name: "valid sale", image: saleImage("sale-123")},
		{name: "nil image", image: nil, wantErr: true},
		{
			name: "missing required fields",
			image: map[string]events.DynamoDBAttributeValue{
				"id": events.NewStringAttribute("sale-123"),
			},
			wantErr: true,
		},
		{
			name: "bad quantity",
			image: func() map[string]events.DynamoDBAttributeValue {
				img := saleImage("sale-123")
				img["quantity"] = events.NewNumberAttribute("1.5")
				return img
			}(),
			wantErr: true,
		},
		{
			name: "bad price",
			image: func() map[string]events.DynamoDBAttributeValue {
				img := saleImage("sale-123")
				img["unit_price"] = events.NewStringAttribute("fifty")
				return img
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := convertSaleImage(tt.image)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, ev)
			assert.Equal(t, "sale-123", ev.ID)
			assert.Equal(t, "owner-1", ev.OwnerID)
			assert.Equal(t, "prod-1", ev.ProductID)
			assert.Equal(t, "Rice 5kg", ev.ProductName)
			assert.Equal(t, 3, ev.Quantity)
			assert.True(t, decimal.RequireFromString("50.25").Equal(ev.UnitPrice))
			assert.True(t, decimal.RequireFromString("150.75").Equal(ev.Total))
			assert.Equal(t, 7, ev.StockAfter)
			assert.Equal(t, 2, ev.ProductVersion)
			assert.Equal(t, time.Date(2025, 1, 15, 10, 30, 0, 123456789, time.UTC), ev.SoldAt)
		})
	}
}

func TestConvertFromDynamoDBStreamRecord(t *testing.T) {
	t.Run("INSERT converts", func(t *testing.T) {
		record := events.DynamoDBEventRecord{
			EventName: "INSERT",
			Change:    events.DynamoDBStreamRecord{NewImage: saleImage("sale-123")},
		}

		ev, err := ConvertFromDynamoDBStreamRecord(record)
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.Equal(t, "sale-123", ev.ID)
	})

	for _, name := range []string{"MODIFY", "REMOVE"} {
		t.Run(name+" is ignored", func(t *testing.T) {
			ev, err := ConvertFromDynamoDBStreamRecord(events.DynamoDBEventRecord{EventName: name})
			require.NoError(t, err)
			assert.Nil(t, ev)
		})
	}
}

func TestConvertFromKinesisRecord(t *testing.T) {
	record := kinesisRecord(t, "kinesis-1", "seq-1", events.DynamoDBEventRecord{
		EventName: "INSERT",
		Change:    events.DynamoDBStreamRecord{NewImage: saleImage("sale-123")},
	})

	ev, err := ConvertFromKinesisRecord(record)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "sale-123", ev.ID)
	assert.Equal(t, 3, ev.Quantity)
}

func TestConvertFromKinesisRecord_InvalidData(t *testing.T) {
	record := events.KinesisEventRecord{
		EventID: "kinesis-2",
		Kinesis: events.KinesisRecord{Data: []byte("invalid json"), SequenceNumber: "seq-2"},
	}

	ev, err := ConvertFromKinesisRecord(record)

	assert.Error(t, err)
	assert.Nil(t, ev)
}
