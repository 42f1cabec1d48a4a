// The api binary serves the HTTP surface: student registration, certificate
// intake and status, and the coordinator review API. Pipeline stages run in
// the separate worker binary.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/complementa/backend/internal/bus"
	"github.com/complementa/backend/internal/config"
	"github.com/complementa/backend/internal/database"
	"github.com/complementa/backend/internal/handlers"
	"github.com/complementa/backend/internal/llm"
	"github.com/complementa/backend/internal/metrics"
	"github.com/complementa/backend/internal/ocr"
	"github.com/complementa/backend/internal/service"
	"github.com/complementa/backend/internal/storage"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	cfg := config.Load()
	ctx := context.Background()

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
	if categories, err := database.LoadCategoriesFile(cfg.Database.CategoriesFile); err != nil {
		slog.Warn("category seed file unavailable, skipping seed",
			"path", cfg.Database.CategoriesFile, "error", err)
	} else if err := store.SeedCategories(ctx, categories); err != nil {
		slog.Error("category seeding failed", "error", err)
		os.Exit(1)
	}

	objects, err := storage.New(ctx, cfg.S3)
	if err != nil {
		slog.Error("object store setup failed", "error", err)
		os.Exit(1)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		slog.Error("bucket setup failed", "error", err)
		os.Exit(1)
	}

	producer := bus.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	ollama, err := llm.New(cfg.Ollama)
	if err != nil {
		slog.Error("llm client setup failed", "error", err)
		os.Exit(1)
	}

	m := metrics.NewDefault()

	router := handlers.NewRouter(handlers.Services{
		Students: service.NewStudents(store),
		Intake:   service.NewIntake(store, objects, producer, m),
		Status:   service.NewStatusReader(store, objects),
		Review:   service.NewReview(store, objects, m),
	}, map[string]handlers.HealthChecker{
		"database":  store,
		"s3":        objects,
		"kafka":     producer,
		"ollama":    ollama,
		"tesseract": ocr.NewEngine(cfg.OCR.TesseractConfig),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("api server starting", "port", cfg.Server.Port, "env", cfg.Server.Env)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
