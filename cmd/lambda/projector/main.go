package main

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/gramstore/internal/config"
	"github.com/example/gramstore/internal/infrastructure/kinesis"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/example/gramstore/internal/logger"
	"github.com/example/gramstore/internal/projection"
)

var (
	projector *projection.Projector
	log       *slog.Logger
)

func init() {
	cfg := config.Load()
	log = logger.Component(logger.New(cfg.IsProduction()), "lambda-projector")

	summaries, _, err := store.OpenSummary(context.Background(), cfg)
	if err != nil {
		log.Error("failed to open summary store", "error", err)
		panic(err)
	}
	projector = projection.NewProjector(summaries, log, nil)

	log.Info("initialized")
}

// handler folds the sales-table stream into the summary store. Records
// that fail to apply are reported back so Lambda retries only those.
func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	log.Info("received records", "count", len(kinesisEvent.Records))

	var batchItemFailures []events.KinesisBatchItemFailure

	for _, record := range kinesisEvent.Records {
		ev, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			// Undecodable records will never succeed; log and move on.
			log.Error("failed to convert record", "event_id", record.EventID, "error", err)
			continue
		}
		if ev == nil {
			continue
		}

		if err := projector.HandleSale(ctx, ev); err != nil {
			log.Error("failed to project sale", "sale_id", ev.ID, "error", err)
			batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
		}
	}

	log.Info("processed records",
		"ok", len(kinesisEvent.Records)-len(batchItemFailures),
		"total", len(kinesisEvent.Records),
	)

	return events.KinesisEventResponse{
		BatchItemFailures: batchItemFailures,
	}, nil
}

func main() {
	lambda.Start(handler)
}
