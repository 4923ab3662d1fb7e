package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/gramstore/internal/config"
	"github.com/example/gramstore/internal/infrastructure/kafka"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/example/gramstore/internal/logger"
	"github.com/example/gramstore/internal/metrics"
	"github.com/example/gramstore/internal/projection"
)

func main() {
	cfg := config.Load()
	log := logger.Component(logger.New(cfg.IsProduction()), "projector")

	if err := cfg.ValidateKafka(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summaries, closeSummaries, err := store.OpenSummary(ctx, cfg)
	if err != nil {
		log.Error("failed to open summary store", "error", err)
		os.Exit(1)
	}
	defer closeSummaries()

	projector := projection.NewProjector(summaries, log, metrics.New())

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaConsumerGroup, log)
	defer consumer.Close()

	log.Info("consuming sales",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaTopic,
		"group", cfg.KafkaConsumerGroup,
	)

	handler := func(ctx context.Context, key, value []byte) error {
		err := projector.HandleEvent(ctx, key, value)
		if errors.Is(err, projection.ErrMalformedEvent) {
			log.Error("skipping malformed message", "key", string(key), "error", err)
			return nil
		}
		return err
	}

	if err := consumer.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", "error", err)
	}
	log.Info("shutting down")
}
