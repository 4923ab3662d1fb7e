package store

import (
	"encoding/json"
	"time"

	"github.com/example/gramstore/internal/domain/sale"
)

// Event is the envelope published to the event stream.
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// NewSaleRecorded wraps a persisted sale in an envelope keyed by product.
func NewSaleRecorded(ev *sale.SaleEvent) (Event, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            ev.ID,
		AggregateID:   ev.ProductID,
		AggregateType: sale.AggregateType,
		EventType:     sale.EventSaleRecorded,
		Data:          data,
		Timestamp:     ev.SoldAt,
		Version:       ev.ProductVersion,
	}, nil
}

// DecodeSale extracts the sale carried by a SaleRecorded envelope.
func (e Event) DecodeSale() (*sale.SaleEvent, error) {
	var ev sale.SaleEvent
	if err := json.Unmarshal(e.Data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
