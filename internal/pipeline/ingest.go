package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/complementa/backend/internal/bus"
	"github.com/complementa/backend/internal/domain"
	"github.com/complementa/backend/internal/metrics"
	"github.com/complementa/backend/internal/storage"
)

// IngestStore is the database surface the ingest stage needs.
type IngestStore interface {
	SubmissionByID(ctx context.Context, id int64) (*domain.CertificateSubmission, error)
	TransitionStatus(ctx context.Context, id int64, to domain.Status, errorMessage *string) error
	MarkFailed(ctx context.Context, id int64, message string) error
	OcrTextBySubmission(ctx context.Context, submissionID int64) (*domain.CertificateOcrText, error)
	CreateOcrText(ctx context.Context, submissionID int64, rawText string, confidence float64, processingTimeMs int64) (*domain.CertificateOcrText, error)
}

// ObjectStore downloads uploaded certificate files.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// Recognizer extracts text from a certificate file.
type Recognizer interface {
	ProcessFile(ctx context.Context, content []byte, extension string) (string, float64, error)
}

// OcrPublisher hands completed OCR output to the next stage.
type OcrPublisher interface {
	PublishOcr(ctx context.Context, msg bus.OcrMessage) error
}

// IngestWorker is stage 1: fetch the uploaded file, run OCR, persist the
// text and enqueue metadata extraction. Every failure demotes the submission
// to failed and the message is consumed regardless.
type IngestWorker struct {
	store   IngestStore
	objects ObjectStore
	ocr     Recognizer
	pub     OcrPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewIngestWorker wires stage 1.
func NewIngestWorker(store IngestStore, objects ObjectStore, ocr Recognizer, pub OcrPublisher, m *metrics.Metrics) *IngestWorker {
	return &IngestWorker{
		store:   store,
		objects: objects,
		ocr:     ocr,
		pub:     pub,
		metrics: m,
		logger:  slog.With("component", "pipeline.ingest"),
	}
}

// Handle processes one certificate.ingest message.
func (w *IngestWorker) Handle(ctx context.Context, value []byte) {
	start := time.Now()
	defer func() {
		w.metrics.StageDuration.WithLabelValues("ingest").Observe(time.Since(start).Seconds())
	}()

	var msg bus.IngestMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		w.logger.Error("undecodable message dropped", "error", err)
		w.metrics.StageProcessed.WithLabelValues("ingest", "failed").Inc()
		return
	}

	logger := w.logger.With("submission_id", msg.SubmissionID)
	logger.Info("processing ingest message", "object_key", msg.ObjectKey)

	if _, err := w.store.SubmissionByID(ctx, msg.SubmissionID); err != nil {
		logger.Error("submission lookup failed", "error", err)
		w.metrics.StageProcessed.WithLabelValues("ingest", "failed").Inc()
		return
	}

	// Redelivered message after a crash between DB commit and offset commit:
	// the OCR text already exists, so skip straight to publishing.
	if existing, err := w.store.OcrTextBySubmission(ctx, msg.SubmissionID); err == nil {
		logger.Info("ocr text already present, republishing", "ocr_text_id", existing.ID)
		if err := w.pub.PublishOcr(ctx, bus.OcrMessage{
			SubmissionID:  existing.SubmissionID,
			OcrTextID:     existing.ID,
			RawText:       existing.RawText,
			OcrConfidence: existing.OcrConfidence,
		}); err != nil {
			logger.Error("republish failed", "error", err)
		}
		w.metrics.StageProcessed.WithLabelValues("ingest", "skipped").Inc()
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("OCR lookup failed: %v", err))
		return
	}

	if err := w.store.TransitionStatus(ctx, msg.SubmissionID, domain.StatusOcrProcessing, nil); err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("status transition failed: %v", err))
		return
	}

	content, err := w.objects.Download(ctx, msg.ObjectKey)
	if err != nil {
		logger.Error("download failed", "key", msg.ObjectKey, "error", err)
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("Failed to download file from S3: %s", msg.ObjectKey))
		return
	}

	ocrStart := time.Now()
	text, confidence, err := w.ocr.ProcessFile(ctx, content, storage.Extension(msg.OriginalFilename))
	if err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("OCR failed: %v", err))
		return
	}
	elapsed := time.Since(ocrStart).Milliseconds()

	ocrText, err := w.store.CreateOcrText(ctx, msg.SubmissionID, text, confidence, elapsed)
	if err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("persist OCR text failed: %v", err))
		return
	}
	w.metrics.OcrConfidence.Observe(confidence)

	if err := w.pub.PublishOcr(ctx, bus.OcrMessage{
		SubmissionID:  msg.SubmissionID,
		OcrTextID:     ocrText.ID,
		RawText:       text,
		OcrConfidence: confidence,
	}); err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("publish failed: %v", err))
		return
	}

	logger.Info("ocr completed", "chars", len(text), "confidence", confidence, "elapsed_ms", elapsed)
	w.metrics.StageProcessed.WithLabelValues("ingest", "ok").Inc()
}

func (w *IngestWorker) fail(ctx context.Context, logger *slog.Logger, submissionID int64, message string) {
	logger.Error("ingest stage failed", "reason", message)
	if err := w.store.MarkFailed(ctx, submissionID, message); err != nil {
		logger.Error("could not mark submission failed", "error", err)
	}
	w.metrics.StageProcessed.WithLabelValues("ingest", "failed").Inc()
}
