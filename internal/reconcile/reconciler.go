// Package reconcile retries sale-log appends that failed after the stock
// write had already committed.
package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/example/gramstore/internal/metrics"
)

// Publisher announces a sale once it reaches the log.
type Publisher interface {
	PublishSale(ctx context.Context, ev *sale.SaleEvent) error
}

// Pending is a sale still missing from the sale log.
type Pending struct {
	Sale      sale.SaleEvent `json:"sale"`
	Attempts  int            `json:"attempts"`
	LastError string         `json:"last_error,omitempty"`
	Since     time.Time      `json:"since"`
}

type Config struct {
	Interval     time.Duration
	WriteTimeout time.Duration
}

// Reconciler keeps undelivered sales in memory and re-appends them on an
// interval. AppendSale is idempotent on the sale ID, so a sale is never
// logged twice even if an earlier attempt actually succeeded.
type Reconciler struct {
	catalog   store.CatalogStore
	publisher Publisher
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu      sync.Mutex
	pending map[string]*Pending
	wake    chan struct{}
}

func New(catalog store.CatalogStore, cfg Config, publisher Publisher, logger *slog.Logger, m *metrics.Metrics) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		catalog:   catalog,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		pending:   make(map[string]*Pending),
		wake:      make(chan struct{}, 1),
	}
}

// Enqueue records ev for a later append and wakes the run loop.
func (r *Reconciler) Enqueue(ev sale.SaleEvent) {
	r.mu.Lock()
	if _, ok := r.pending[ev.ID]; !ok {
		r.pending[ev.ID] = &Pending{Sale: ev, Since: time.Now()}
	}
	n := len(r.pending)
	r.mu.Unlock()

	r.metrics.SetReconcilePending(n)
	r.logger.Warn("sale queued for reconciliation", "sale_id", ev.ID, "product_id", ev.ProductID, "pending", n)

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Pending lists undelivered sales, oldest first.
func (r *Reconciler) Pending() []Pending {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Pending, 0, len(r.pending))
	for _, p := range r.pending {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Sale.SoldAt.Before(out[j].Sale.SoldAt)
	})
	return out
}

// RunOnce tries every pending sale once and returns how many reached the
// log.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	delivered := 0
	for _, p := range r.Pending() {
		if ctx.Err() != nil {
			break
		}
		ev := p.Sale

		wctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
		err := r.catalog.AppendSale(wctx, &ev)
		if err == nil && r.publisher != nil {
			if perr := r.publisher.PublishSale(wctx, &ev); perr != nil {
				r.logger.Warn("failed to publish reconciled sale", "sale_id", ev.ID, "error", perr)
			}
		}
		cancel()

		r.mu.Lock()
		if err != nil {
			if cur, ok := r.pending[ev.ID]; ok {
				cur.Attempts++
				cur.LastError = err.Error()
			}
		} else {
			delete(r.pending, ev.ID)
			delivered++
		}
		n := len(r.pending)
		r.mu.Unlock()
		r.metrics.SetReconcilePending(n)

		if err != nil {
			r.logger.Error("reconciliation append failed", "sale_id", ev.ID, "attempts", p.Attempts+1, "error", err)
		} else {
			r.logger.Info("sale reconciled", "sale_id", ev.ID, "product_id", ev.ProductID)
		}
	}
	return delivered
}

// Run retries pending sales every interval, and immediately after an
// Enqueue, until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if n := len(r.Pending()); n > 0 {
				r.logger.Error("reconciler stopped with undelivered sales", "pending", n)
			}
			return ctx.Err()
		case <-ticker.C:
		case <-r.wake:
		}
		r.RunOnce(ctx)
	}
}
