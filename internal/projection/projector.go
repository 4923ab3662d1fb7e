package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/example/gramstore/internal/metrics"
)

// ErrMalformedEvent marks input that can never be applied. Stream consumers
// skip such messages instead of retrying them.
var ErrMalformedEvent = errors.New("malformed event")

// Projector folds SaleRecorded events into the sales summary store.
// Applying the same sale twice is a no-op, so at-least-once delivery from
// Kafka or Kinesis is safe.
type Projector struct {
	summaries store.SummaryStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewProjector(summaries store.SummaryStore, logger *slog.Logger, m *metrics.Metrics) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{summaries: summaries, logger: logger, metrics: m}
}

// HandleEvent is the kafka.MessageHandler entry point: value is a JSON
// store.Event envelope.
func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		p.metrics.IncProjected("malformed")
		return fmt.Errorf("%w: failed to decode event: %w", ErrMalformedEvent, err)
	}
	return p.Project(ctx, event)
}

// Project applies one envelope. Events of other aggregates are skipped.
func (p *Projector) Project(ctx context.Context, event store.Event) error {
	if event.AggregateType != sale.AggregateType || event.EventType != sale.EventSaleRecorded {
		p.metrics.IncProjected("skipped")
		return nil
	}

	ev, err := event.DecodeSale()
	if err != nil {
		p.metrics.IncProjected("malformed")
		return fmt.Errorf("%w: failed to decode sale %s: %w", ErrMalformedEvent, event.ID, err)
	}
	return p.HandleSale(ctx, ev)
}

// HandleSale applies one sale to its product summary.
func (p *Projector) HandleSale(ctx context.Context, ev *sale.SaleEvent) error {
	applied, err := p.summaries.ApplySale(ctx, ev)
	if err != nil {
		p.metrics.IncProjected("failed")
		return fmt.Errorf("failed to apply sale %s: %w", ev.ID, err)
	}

	if !applied {
		p.metrics.IncProjected("duplicate")
		p.logger.Debug("sale already projected", "sale_id", ev.ID)
		return nil
	}
	p.metrics.IncProjected("applied")
	p.logger.Info("sale projected",
		"sale_id", ev.ID,
		"product_id", ev.ProductID,
		"quantity", ev.Quantity,
		"product_version", ev.ProductVersion,
	)
	return nil
}

// PublishSale lets the projector stand in for the event stream when the API
// runs without Kafka: sales are folded in-process right after they are
// logged.
func (p *Projector) PublishSale(ctx context.Context, ev *sale.SaleEvent) error {
	return p.HandleSale(ctx, ev)
}
