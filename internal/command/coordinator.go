package command

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/example/gramstore/internal/domain/ledger"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/example/gramstore/internal/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/example/gramstore/internal/command"

// Publisher announces sales that reached the sale log.
type Publisher interface {
	PublishSale(ctx context.Context, ev *sale.SaleEvent) error
}

// Reconciler accepts sales whose stock write committed but whose log append
// failed.
type Reconciler interface {
	Enqueue(ev sale.SaleEvent)
}

// CoordinatorConfig bounds a single Sell call.
type CoordinatorConfig struct {
	MaxAttempts  int
	SellTimeout  time.Duration
	WriteTimeout time.Duration
	// BackoffBase is the mean pause after the first conflict; it grows
	// linearly with the attempt number.
	BackoffBase time.Duration
}

// DefaultCoordinatorConfig returns the production defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		MaxAttempts:  5,
		SellTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Second,
		BackoffBase:  5 * time.Millisecond,
	}
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	d := DefaultCoordinatorConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.SellTimeout <= 0 {
		c.SellTimeout = d.SellTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.BackoffBase < 0 {
		c.BackoffBase = 0
	}
	return c
}

// Coordinator runs the read, evaluate, conditional write and append cycle
// of a sale against a CatalogStore.
type Coordinator struct {
	catalog    store.CatalogStore
	cfg        CoordinatorConfig
	publisher  Publisher
	reconciler Reconciler
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
	newID      func() string
}

type CoordinatorOption func(*Coordinator)

func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

func WithPublisher(p Publisher) CoordinatorOption {
	return func(c *Coordinator) { c.publisher = p }
}

func WithReconciler(r Reconciler) CoordinatorOption {
	return func(c *Coordinator) { c.reconciler = r }
}

// WithClock replaces the timestamp source of sale events.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(catalog store.CatalogStore, cfg CoordinatorConfig, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		catalog: catalog,
		cfg:     cfg.withDefaults(),
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sell decrements stock by quantity and records the sale.
//
// On success the persisted event is returned. On partial_failure the event
// is returned together with the error: stock was decremented and the sale
// is queued for reconciliation. Every other error leaves stock untouched.
func (c *Coordinator) Sell(ctx context.Context, ownerID, productID string, quantity int) (*sale.SaleEvent, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "sale.Sell", trace.WithAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("product.id", productID),
		attribute.Int("sale.quantity", quantity),
	))
	defer span.End()

	ev, err := c.sell(ctx, span, ownerID, productID, quantity)

	code := sale.CodeOf(err)
	elapsed := time.Since(start)
	log := c.logger.With("owner_id", ownerID, "product_id", productID, "quantity", quantity)
	switch {
	case err == nil:
		c.metrics.ObserveSale("ok", elapsed)
		span.SetAttributes(attribute.String("sale.id", ev.ID), attribute.Int("stock.after", ev.StockAfter))
		log.Info("sale recorded", "sale_id", ev.ID, "stock_after", ev.StockAfter, "duration", elapsed)
	case code == sale.CodePartialFailure:
		c.metrics.ObserveSale(string(code), elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		log.Error("sale committed but not logged", "sale_id", ev.ID, "error", err)
	default:
		c.metrics.ObserveSale(string(code), elapsed)
		span.SetStatus(codes.Error, string(code))
		log.Info("sale rejected", "code", code, "error", err)
	}
	return ev, err
}

func (c *Coordinator) sell(ctx context.Context, span trace.Span, ownerID, productID string, quantity int) (*sale.SaleEvent, error) {
	if quantity <= 0 {
		return nil, sale.NewError(sale.CodeInvalidQuantity, productID, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SellTimeout)
	defer cancel()

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, sale.NewError(sale.CodeTimeout, productID, err)
		}

		p, err := c.catalog.Get(ctx, ownerID, productID)
		if err != nil {
			return nil, c.readError(ctx, productID, err)
		}

		decision, err := ledger.Evaluate(p, quantity)
		if err != nil {
			return nil, err
		}

		// Last point at which the caller's deadline can abort the sale.
		if err := ctx.Err(); err != nil {
			return nil, sale.NewError(sale.CodeTimeout, productID, err)
		}

		err = c.conditionalUpdate(ctx, productID, p.Version, decision.NewStock)
		span.AddEvent("attempt", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.Int("expected_version", p.Version),
			attribute.Bool("committed", err == nil),
		))

		switch {
		case err == nil:
			return c.commit(ctx, decision.Sale)

		case errors.Is(err, store.ErrVersionConflict):
			c.metrics.IncConflict()
			c.logger.Debug("version conflict", "product_id", productID, "attempt", attempt, "expected_version", p.Version)
			if attempt < c.cfg.MaxAttempts {
				if err := c.backoff(ctx, attempt); err != nil {
					return nil, sale.NewError(sale.CodeTimeout, productID, err)
				}
			}

		case errors.Is(err, store.ErrNotFound):
			return nil, sale.NewError(sale.CodeProductNotFound, productID, nil)

		case errors.Is(err, store.ErrNegativeStock):
			return nil, sale.NewError(sale.CodeInsufficientStock, productID, nil)

		default:
			return nil, sale.NewError(sale.CodeUnavailable, productID, err)
		}
	}

	return nil, sale.NewError(sale.CodeConflictExhausted, productID, nil)
}

func (c *Coordinator) readError(ctx context.Context, productID string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return sale.NewError(sale.CodeProductNotFound, productID, nil)
	case ctx.Err() != nil:
		return sale.NewError(sale.CodeTimeout, productID, ctx.Err())
	default:
		return sale.NewError(sale.CodeUnavailable, productID, err)
	}
}

// detached returns a context that ignores the caller's cancellation but is
// bounded by WriteTimeout, so an issued write always reports its outcome.
func (c *Coordinator) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.cfg.WriteTimeout)
}

func (c *Coordinator) conditionalUpdate(ctx context.Context, productID string, expectedVersion, newStock int) error {
	wctx, cancel := c.detached(ctx)
	defer cancel()
	return c.catalog.ConditionalUpdate(wctx, productID, expectedVersion, newStock)
}

func (c *Coordinator) commit(ctx context.Context, draft sale.SaleEvent) (*sale.SaleEvent, error) {
	ev := draft
	ev.ID = c.newID()
	ev.SoldAt = c.now().UTC()

	if err := c.appendSale(ctx, &ev); err != nil {
		if c.reconciler != nil {
			c.reconciler.Enqueue(ev)
		}
		return &ev, &sale.Error{
			Code:      sale.CodePartialFailure,
			ProductID: ev.ProductID,
			SaleID:    ev.ID,
			Err:       err,
		}
	}

	if c.publisher != nil {
		c.publish(ctx, &ev)
	}
	return &ev, nil
}

func (c *Coordinator) appendSale(ctx context.Context, ev *sale.SaleEvent) error {
	wctx, cancel := c.detached(ctx)
	defer cancel()
	return c.catalog.AppendSale(wctx, ev)
}

// publish runs under its own WriteTimeout, independent of the append.
func (c *Coordinator) publish(ctx context.Context, ev *sale.SaleEvent) {
	pctx, cancel := c.detached(ctx)
	defer cancel()
	if err := c.publisher.PublishSale(pctx, ev); err != nil {
		c.logger.Warn("failed to publish sale", "sale_id", ev.ID, "error", err)
	}
}

// backoff pauses for a jittered interval in [0, 2*base*attempt).
func (c *Coordinator) backoff(ctx context.Context, attempt int) error {
	if c.cfg.BackoffBase <= 0 {
		return ctx.Err()
	}
	d := rand.N(2 * c.cfg.BackoffBase * time.Duration(attempt))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
