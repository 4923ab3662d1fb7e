// Package metrics holds the Prometheus instrumentation of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gramstore"

// Metrics groups every collector of one process. Methods are safe on a nil
// receiver so components can run uninstrumented in tests.
type Metrics struct {
	registry *prometheus.Registry

	SaleRequests     *prometheus.CounterVec
	SaleConflicts    prometheus.Counter
	SaleDuration     prometheus.Histogram
	ReconcilePending prometheus.Gauge
	ProjectedEvents  *prometheus.CounterVec

	HTTPDuration *prometheus.HistogramVec
	HTTPRequests *prometheus.CounterVec
}

// New creates the collectors and registers them, plus Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SaleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sale",
			Name:      "requests_total",
			Help:      "Sale requests by outcome code.",
		}, []string{"code"}),
		SaleConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sale",
			Name:      "conflicts_total",
			Help:      "Version conflicts observed by the sale coordinator.",
		}),
		SaleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sale",
			Name:      "duration_seconds",
			Help:      "End-to-end duration of sale requests.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		ReconcilePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sale",
			Name:      "reconcile_pending",
			Help:      "Sales whose log append is waiting for reconciliation.",
		}),
		ProjectedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "projection",
			Name:      "events_total",
			Help:      "Events handled by the sales projector by result.",
		}, []string{"result"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SaleRequests,
		m.SaleConflicts,
		m.SaleDuration,
		m.ReconcilePending,
		m.ProjectedEvents,
		m.HTTPDuration,
		m.HTTPRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSale records one finished sale request.
func (m *Metrics) ObserveSale(code string, d time.Duration) {
	if m == nil {
		return
	}
	m.SaleRequests.WithLabelValues(code).Inc()
	m.SaleDuration.Observe(d.Seconds())
}

func (m *Metrics) IncConflict() {
	if m == nil {
		return
	}
	m.SaleConflicts.Inc()
}

func (m *Metrics) SetReconcilePending(n int) {
	if m == nil {
		return
	}
	m.ReconcilePending.Set(float64(n))
}

func (m *Metrics) IncProjected(result string) {
	if m == nil {
		return
	}
	m.ProjectedEvents.WithLabelValues(result).Inc()
}

// Middleware records duration and count of every request, labelled with the
// chi route pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		status := strconv.Itoa(code)
		m.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		m.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
	})
}
