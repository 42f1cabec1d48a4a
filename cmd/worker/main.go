// The worker binary runs the three pipeline stage consumers: OCR ingest,
// LLM metadata extraction and LLM categorization.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/complementa/backend/internal/bus"
	"github.com/complementa/backend/internal/config"
	"github.com/complementa/backend/internal/database"
	"github.com/complementa/backend/internal/llm"
	"github.com/complementa/backend/internal/metrics"
	"github.com/complementa/backend/internal/ocr"
	"github.com/complementa/backend/internal/pipeline"
	"github.com/complementa/backend/internal/storage"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(cfg.Database.URL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	objects, err := storage.New(ctx, cfg.S3)
	if err != nil {
		slog.Error("object store setup failed", "error", err)
		os.Exit(1)
	}

	ollama, err := llm.New(cfg.Ollama)
	if err != nil {
		slog.Error("llm client setup failed", "error", err)
		os.Exit(1)
	}
	if err := ollama.HealthCheck(ctx); err != nil {
		slog.Warn("ollama not reachable at startup", "error", err)
	}

	engine := ocr.NewEngine(cfg.OCR.TesseractConfig)
	if err := engine.HealthCheck(ctx); err != nil {
		slog.Warn("tesseract not available at startup", "error", err)
	}

	producer := bus.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	m := metrics.NewDefault()

	supervisor := pipeline.NewSupervisor(cfg.Kafka.Brokers,
		pipeline.NewIngestWorker(store, objects, engine, producer, m),
		pipeline.NewMetadataWorker(store, ollama, producer, m),
		pipeline.NewCategorizeWorker(store, ollama, m),
	)

	// Metrics endpoint for scraping; the worker has no other HTTP surface.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := ":" + cfg.Server.MetricsPort
		slog.Info("worker metrics listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	slog.Info("pipeline workers starting", "brokers", cfg.Kafka.Brokers)
	supervisor.Run(ctx)
	slog.Info("worker stopped")
}
