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
	"github.com/complementa/backend/internal/llm"
	"github.com/complementa/backend/internal/metrics"
	"github.com/complementa/backend/internal/prompts"
)

// CategorizeStore is the database surface the categorization stage needs.
type CategorizeStore interface {
	SubmissionByID(ctx context.Context, id int64) (*domain.CertificateSubmission, error)
	StudentByID(ctx context.Context, id int64) (*domain.Student, error)
	TransitionStatus(ctx context.Context, id int64, to domain.Status, errorMessage *string) error
	MarkFailed(ctx context.Context, id int64, message string) error
	OcrTextBySubmission(ctx context.Context, submissionID int64) (*domain.CertificateOcrText, error)
	ListCategories(ctx context.Context) ([]domain.ActivityCategory, error)
	CreateActivity(ctx context.Context, a database.NewActivity) (*domain.ExtractedActivity, error)
}

// Categorizer selects an activity category for a certificate.
type Categorizer interface {
	Categorize(ctx context.Context, rawText string, fields domain.ExtractedFields, categoriesText string) (llm.Categorization, error)
}

// CategorizeWorker is stage 3: LLM category selection, hour calculation and
// handoff to coordinator review.
type CategorizeWorker struct {
	store   CategorizeStore
	llm     Categorizer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCategorizeWorker wires stage 3.
func NewCategorizeWorker(store CategorizeStore, llm Categorizer, m *metrics.Metrics) *CategorizeWorker {
	return &CategorizeWorker{
		store:   store,
		llm:     llm,
		metrics: m,
		logger:  slog.With("component", "pipeline.categorize"),
	}
}

// Handle processes one certificate.metadata message.
func (w *CategorizeWorker) Handle(ctx context.Context, value []byte) {
	start := time.Now()
	defer func() {
		w.metrics.StageDuration.WithLabelValues("categorization").Observe(time.Since(start).Seconds())
	}()

	var msg bus.MetadataMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		w.logger.Error("undecodable message dropped", "error", err)
		w.metrics.StageProcessed.WithLabelValues("categorization", "failed").Inc()
		return
	}

	logger := w.logger.With("submission_id", msg.SubmissionID)
	logger.Info("processing categorization")

	submission, err := w.store.SubmissionByID(ctx, msg.SubmissionID)
	if err != nil {
		logger.Error("submission lookup failed", "error", err)
		w.metrics.StageProcessed.WithLabelValues("categorization", "failed").Inc()
		return
	}

	if err := w.store.TransitionStatus(ctx, msg.SubmissionID, domain.StatusCategorizationProcessing, nil); err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("status transition failed: %v", err))
		return
	}

	fields := msg.ExtractedData
	if fields.Evento == nil || *fields.Evento == "" {
		w.fail(ctx, logger, msg.SubmissionID, missingEventMessage)
		return
	}

	var numericHours *int
	if fields.CargaHoraria != nil {
		numericHours = ParseNumericHours(*fields.CargaHoraria)
	}
	if numericHours == nil {
		w.fail(ctx, logger, msg.SubmissionID, missingHoursMessage)
		return
	}

	ocrText, err := w.store.OcrTextBySubmission(ctx, msg.SubmissionID)
	if err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("OCR text lookup failed: %v", err))
		return
	}

	categories, err := w.store.ListCategories(ctx)
	if err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("category catalog lookup failed: %v", err))
		return
	}

	result, err := w.llm.Categorize(ctx, ocrText.RawText, fields, prompts.CategoriesText(categories))
	if err != nil {
		w.metrics.LLMFailures.WithLabelValues("categorization").Inc()
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("LLM categorization failed: %v", err))
		return
	}

	if result.CategoryID == nil {
		w.metrics.LLMFailures.WithLabelValues("categorization").Inc()
		w.fail(ctx, logger, msg.SubmissionID, result.Reasoning)
		return
	}
	category := findCategory(categories, *result.CategoryID)
	if category == nil {
		w.fail(ctx, logger, msg.SubmissionID,
			fmt.Sprintf("LLM selected unknown category %d: %s", *result.CategoryID, result.Reasoning))
		return
	}

	hours, err := CalculateHours(category, numericHours, fields)
	if err != nil {
		w.fail(ctx, logger, msg.SubmissionID, err.Error())
		return
	}

	student, err := w.store.StudentByID(ctx, submission.StudentID)
	if err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("student lookup failed: %v", err))
		return
	}

	metadataID := msg.MetadataID
	reasoning := result.Reasoning
	rawText := ocrText.RawText
	activity, err := w.store.CreateActivity(ctx, database.NewActivity{
		SubmissionID:     msg.SubmissionID,
		MetadataID:       &metadataID,
		StudentID:        student.ID,
		EnrollmentNumber: student.EnrollmentNumber,
		Filename:         submission.OriginalFilename,
		Fields:           fields,
		NumericHours:     numericHours,
		CategoryID:       category.ID,
		CalculatedHours:  hours,
		LLMReasoning:     &reasoning,
		RawText:          &rawText,
	})
	if err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("persist activity failed: %v", err))
		return
	}

	if err := w.store.TransitionStatus(ctx, msg.SubmissionID, domain.StatusPendingReview, nil); err != nil {
		w.fail(ctx, logger, msg.SubmissionID, fmt.Sprintf("status transition failed: %v", err))
		return
	}

	logger.Info("categorization completed",
		"activity_id", activity.ID, "category_id", category.ID,
		"category", category.Name, "calculated_hours", hours)
	w.metrics.StageProcessed.WithLabelValues("categorization", "ok").Inc()
}

func findCategory(categories []domain.ActivityCategory, id int64) *domain.ActivityCategory {
	for i := range categories {
		if categories[i].ID == id {
			return &categories[i]
		}
	}
	return nil
}

func (w *CategorizeWorker) fail(ctx context.Context, logger *slog.Logger, submissionID int64, message string) {
	logger.Error("categorization stage failed", "reason", message)
	if err := w.store.MarkFailed(ctx, submissionID, message); err != nil {
		logger.Error("could not mark submission failed", "error", err)
	}
	w.metrics.StageProcessed.WithLabelValues("categorization", "failed").Inc()
}
