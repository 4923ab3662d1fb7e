package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/example/gramstore/internal/api"
	"github.com/example/gramstore/internal/auth"
	"github.com/example/gramstore/internal/command"
	"github.com/example/gramstore/internal/config"
	"github.com/example/gramstore/internal/infrastructure/kafka"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/example/gramstore/internal/logger"
	"github.com/example/gramstore/internal/metrics"
	"github.com/example/gramstore/internal/projection"
	"github.com/example/gramstore/internal/query"
	"github.com/example/gramstore/internal/reconcile"
	"github.com/example/gramstore/internal/telemetry"
)

func main() {
	cfg := config.Load()
	log := logger.Component(logger.New(cfg.IsProduction()), "api")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "gramstore-api", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	catalog, err := store.OpenCatalog(ctx, cfg)
	if err != nil {
		log.Error("failed to open catalog store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	log.Info("catalog store ready", "driver", cfg.StoreDriver)

	summaries, closeSummaries, err := store.OpenSummary(ctx, cfg)
	if err != nil {
		log.Error("failed to open summary store", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	// With Kafka configured sales are published for the projector service;
	// otherwise the summary is folded in-process.
	var publisher command.Publisher
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = producer
		log.Info("publishing sales to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		publisher = projection.NewProjector(summaries, logger.Component(log, "projector"), m)
		log.Info("kafka not configured, projecting sales in-process")
	}

	reconciler := reconcile.New(catalog, reconcile.Config{
		Interval:     cfg.ReconcileInterval,
		WriteTimeout: cfg.WriteTimeout,
	}, publisher, logger.Component(log, "reconciler"), m)

	coordinator := command.NewCoordinator(catalog, command.CoordinatorConfig{
		MaxAttempts:  cfg.SellMaxAttempts,
		SellTimeout:  cfg.SellTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BackoffBase:  command.DefaultCoordinatorConfig().BackoffBase,
	},
		command.WithLogger(logger.Component(log, "coordinator")),
		command.WithMetrics(m),
		command.WithPublisher(publisher),
		command.WithReconciler(reconciler),
	)

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	handlers := api.NewHandlers(
		command.NewHandler(catalog, coordinator),
		query.NewHandler(catalog, summaries, cfg.ExpiryHorizonDays),
	)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(handlers, jwtService, m, log),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("reconciler stopped", "error", err)
		}
	}()

	go func() {
		log.Info("server started", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	wg.Wait()

	// One last pass so sales that failed to log are not left only in memory.
	reconciler.RunOnce(shutdownCtx)
	if pending := reconciler.Pending(); len(pending) > 0 {
		log.Error("sales still missing from the sale log", "count", len(pending))
		for _, p := range pending {
			log.Error("undelivered sale", "sale_id", p.Sale.ID, "product_id", p.Sale.ProductID,
				"quantity", p.Sale.Quantity, "attempts", p.Attempts, "last_error", p.LastError)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("kafka producer close", "error", err)
		}
	}
	if err := catalog.Close(shutdownCtx); err != nil {
		log.Error("catalog close", "error", err)
	}
	if err := closeSummaries(); err != nil {
		log.Error("summary store close", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown", "error", err)
	}
}
