package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/example/gramstore/internal/api/middleware"
	"github.com/example/gramstore/internal/auth"
	"github.com/example/gramstore/internal/logger"
	"github.com/example/gramstore/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the owner API behind JWT auth. /health and /metrics are
// open.
func NewRouter(handlers *Handlers, jwtService *auth.JWTService, m *metrics.Metrics, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(m.Middleware)
	r.Use(withLogging(log))

	r.Get("/health", handlers.Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService))

		r.Post("/sell", handlers.Sell)
		r.Get("/analytics", handlers.GetAnalytics)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", handlers.GetProducts)
			r.Post("/", handlers.CreateProduct)
			r.Get("/{id}", handlers.GetProduct)
			r.Put("/{id}", handlers.UpdateProduct)
			r.Get("/{id}/sales", handlers.GetProductSales)
		})

		r.Get("/sales/summary", handlers.GetSalesSummary)
	})

	return r
}

// withLogging logs every request and hands handlers a logger tagged with
// the request id.
func withLogging(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			log := base.With("request_id", chimw.GetReqID(r.Context()))

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), log)))

			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}
