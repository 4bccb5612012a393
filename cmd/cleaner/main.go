package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/tessieres/velib-pipeline/internal/adapter/kafka"
	"github.com/tessieres/velib-pipeline/internal/config"
	"github.com/tessieres/velib-pipeline/internal/normalizer"
	"github.com/tessieres/velib-pipeline/internal/observability"
)

func main() {
	publish := flag.Bool("publish", false, "publish cleaned records to Kafka after writing outputs")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *publish); err != nil {
		logger.Error("cleaner failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, publish bool) error {
	if _, err := normalizer.Fetch(ctx, cfg.RawURL, cfg.RawPath, logger); err != nil {
		return err
	}

	f, err := os.Open(cfg.RawPath)
	if err != nil {
		return fmt.Errorf("open raw export: %w", err)
	}
	records, err := normalizer.Normalize(f)
	f.Close()
	if err != nil {
		return err
	}

	if err := normalizer.WriteCSV(cfg.CleanedPath, records); err != nil {
		return err
	}
	if err := normalizer.WriteJSONL(cfg.JSONLPath, records); err != nil {
		return err
	}
	logger.Info("cleaned outputs written",
		"rows", len(records),
		"csv", cfg.CleanedPath,
		"jsonl", cfg.JSONLPath,
	)

	if !publish {
		return nil
	}

	writer := kafkaadapter.NewWriter(cfg, logger)
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()

	return writer.Publish(ctx, records)
}
