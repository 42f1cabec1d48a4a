package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/complementa/backend/internal/bus"
	"github.com/complementa/backend/internal/database"
	"github.com/complementa/backend/internal/domain"
	"github.com/complementa/backend/internal/metrics"
)

// MetadataStore is the database surface the metadata stage needs.
type MetadataStore interface {
	SubmissionByID(ctx context.Context, id int64) (*domain.CertificateSubmission, error)
	StudentByID(ctx context.Context, id int64) (*domain.Student, error)
	TransitionStatus(ctx context.Context, id int64, to domain.Status, errorMessage *string) error
	MarkFailed(ctx context.Context, id int64, message string) error
	CreateMetadata(ctx context.Context, m database.NewMetadata) (*domain.CertificateMetadata, error)
}

// Extractor pulls the five certificate fields out of raw OCR text.
type Extractor interface {
	ExtractFields(ctx context.Context, text string) (domain.ExtractedFields, error)
}

// MetadataPublisher hands extracted metadata to the categorization stage.
type MetadataPublisher interface {
	PublishMetadata(ctx context.Context, msg bus.MetadataMessage) error
}

// MetadataWorker is stage 2: LLM field extraction plus participant
// validation. Metadata is persisted before validation so a name mismatch
// still leaves an auditable record.
type MetadataWorker struct {
	store   MetadataStore
	llm     Extractor
	pub     MetadataPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewMetadataWorker wires stage 2.
func NewMetadataWorker(store MetadataStore, llm Extractor, pub MetadataPublisher, m *metrics.Metrics) *MetadataWorker {
	return &MetadataWorker{
		store:   store,
		llm:     llm,
		pub:     pub,
		metrics: m,
		logger:  slog.With("component", "pipeline.metadata"),
	}
}

// Handle processes one certificate.ocr message.
func (w *MetadataWorker) Handle(ctx context.Context, value []byte) {
	start := time.Now()
	defer func() {
		w.metrics.StageDuration.WithLabelValues("metadata").Observe(time.Since(start).Seconds())
	}()

	var msg bus.OcrMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		w.logger.Error("undecodable message dropped", "error", err)
		w.metrics.StageProcessed.WithLabelValues("metadata", "failed").Inc()
		return
	}

	logger := w.logger.With("submission_id", msg.SubmissionID)
	logger.Info("processing metadata extraction")

	submission, err := w.store.SubmissionByID(ctx, msg.SubmissionID)
	if err != nil {
		logger.Error("submission lookup failed", "error", err)
		w.metrics.StageProcessed.WithLabelValues("metadata", "failed").Inc()
		return
	}

	if err := w.store.TransitionStatus(ctx, msg.SubmissionID, domain.StatusMetadataProcessing, nil); err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("status transition failed: %v", err))
		return
	}

	llmStart := time.Now()
	fields, err := w.llm.ExtractFields(ctx, msg.RawText)
	if err != nil {
		w.metrics.LLMFailures.WithLabelValues("extraction").Inc()
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("LLM extraction failed: %v", err))
		return
	}
	elapsed := time.Since(llmStart).Milliseconds()

	var numericHours *int
	if fields.CargaHoraria != nil {
		numericHours = ParseNumericHours(*fields.CargaHoraria)
	}

	meta, err := w.store.CreateMetadata(ctx, database.NewMetadata{
		SubmissionID:     msg.SubmissionID,
		Fields:           fields,
		NumericHours:     numericHours,
		ProcessingTimeMs: elapsed,
	})
	if err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("persist metadata failed: %v", err))
		return
	}

	// Validation runs only against an extracted name; a null name is decided
	// downstream, not failed here.
	if fields.NomeParticipante != nil && *fields.NomeParticipante != "" {
		student, err := w.store.StudentByID(ctx, submission.StudentID)
		if err != nil {
			w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("student lookup failed: %v", err))
			return
		}
		if !NamesMatch(*fields.NomeParticipante, student.Name) {
			logger.Warn("participant name mismatch",
				"extracted", *fields.NomeParticipante, "student", student.Name)
			w.fail(ctx, logger, msg.SubmissionID, nameMismatchMessage(*fields.NomeParticipante, student.Name))
			return
		}
	}

	if err := w.pub.PublishMetadata(ctx, bus.MetadataMessage{
		SubmissionID:  msg.SubmissionID,
		MetadataID:    meta.ID,
		ExtractedData: fields,
	}); err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("publish failed: %v", err))
		return
	}

	logger.Info("metadata extraction completed", "metadata_id", meta.ID, "elapsed_ms", elapsed)
	w.metrics.StageProcessed.WithLabelValues("metadata", "ok").Inc()
}

func (w *MetadataWorker) fail(ctx context.Context, logger *slog.Logger, submissionID int64, message string) {
	logger.Error("metadata stage failed", "reason", message)
	if err := w.store.MarkFailed(ctx, submissionID, message); err != nil {
		logger.Error("could not mark submission failed", "error", err)
	}
	w.metrics.StageProcessed.WithLabelValues("metadata", "failed").Inc()
}
