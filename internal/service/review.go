package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/complementa/backend/internal/database"
	"github.com/complementa/backend/internal/domain"
	"github.com/complementa/backend/internal/metrics"
)

// ReviewStore is the database surface of the coordinator workflow.
type ReviewStore interface {
	ListReviewQueue(ctx context.Context, status *domain.Status, enrollment *string, page, perPage int) (*database.ReviewQueuePage, error)
	SubmissionByID(ctx context.Context, id int64) (*domain.CertificateSubmission, error)
	StudentByID(ctx context.Context, id int64) (*domain.Student, error)
	OcrTextBySubmission(ctx context.Context, submissionID int64) (*domain.CertificateOcrText, error)
	MetadataBySubmission(ctx context.Context, submissionID int64) (*domain.CertificateMetadata, error)
	ActivityBySubmission(ctx context.Context, submissionID int64) (*domain.ExtractedActivity, error)
	ListCategories(ctx context.Context) ([]domain.ActivityCategory, error)
	CategoryByID(ctx context.Context, id int64) (*domain.ActivityCategory, error)
	ApproveSubmission(ctx context.Context, p database.ApprovalParams) (*domain.ExtractedActivity, error)
	RejectSubmission(ctx context.Context, submissionID int64, coordinatorID, reason string) (*domain.ExtractedActivity, error)
}

// Pagination bounds of the review queue.
const (
	DefaultReviewPerPage = 20
	MaxReviewPerPage     = 100
)

// QueueMetadata is the metadata snapshot shown in the review queue.
type QueueMetadata struct {
	EventName       *string `json:"event_name"`
	ParticipantName *string `json:"participant_name"`
	Location        *string `json:"location"`
	EventDate       *string `json:"event_date"`
	OriginalHours   *string `json:"original_hours"`
	NumericHours    *int    `json:"numeric_hours"`
}

// QueueActivity is the activity snapshot shown in the review queue.
type QueueActivity struct {
	CategoryID      int64   `json:"category_id"`
	CategoryName    *string `json:"category_name"`
	CalculatedHours int     `json:"calculated_hours"`
	LLMReasoning    *string `json:"llm_reasoning"`
}

// QueueEntry is one review queue row.
type QueueEntry struct {
	SubmissionID     int64          `json:"submission_id"`
	StudentName      string         `json:"student_name"`
	EnrollmentNumber string         `json:"enrollment_number"`
	OriginalFilename string         `json:"original_filename"`
	SubmittedAt      time.Time      `json:"submitted_at"`
	Status           domain.Status  `json:"status"`
	Metadata         *QueueMetadata `json:"metadata"`
	Activity         *QueueActivity `json:"extracted_activity"`
	DownloadURL      *string        `json:"download_url,omitempty"`
}

// QueuePage is the paginated review queue.
type QueuePage struct {
	Entries []QueueEntry `json:"data"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	Total   int          `json:"total"`
	Pages   int          `json:"pages"`
}

// SubmissionDetail is the full review object for one submission.
type SubmissionDetail struct {
	Submission  *domain.CertificateSubmission `json:"submission"`
	Student     *domain.Student               `json:"student"`
	OcrText     *domain.CertificateOcrText    `json:"ocr_text,omitempty"`
	Metadata    *domain.CertificateMetadata   `json:"metadata,omitempty"`
	Activity    *domain.ExtractedActivity     `json:"activity,omitempty"`
	DownloadURL *string                       `json:"download_url,omitempty"`
}

// ApproveInput is a coordinator's approve decision.
type ApproveInput struct {
	SubmissionID    int64
	CoordinatorID   string
	Comments        *string
	FinalHours      *int
	FinalCategoryID *int64
	OverrideReason  *string
}

// Review implements the coordinator workflow: queue listing, detail reads
// and the approve/reject decisions.
type Review struct {
	store   ReviewStore
	presign Presigner
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewReview wires the review service.
func NewReview(store ReviewStore, presign Presigner, m *metrics.Metrics) *Review {
	return &Review{
		store:   store,
		presign: presign,
		metrics: m,
		logger:  slog.With("component", "service.review"),
	}
}

// ListPending pages through the review queue. The status filter defaults to
// pending_review; per_page is clamped to MaxReviewPerPage.
func (s *Review) ListPending(ctx context.Context, status *domain.Status, enrollment *string, page, perPage int) (*QueuePage, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultReviewPerPage
	}
	if perPage > MaxReviewPerPage {
		perPage = MaxReviewPerPage
	}
	if status == nil {
		pending := domain.StatusPendingReview
		status = &pending
	}
	if !domain.Valid(*status) {
		return nil, domain.Validationf("unknown status %q", *status)
	}

	queue, err := s.store.ListReviewQueue(ctx, status, enrollment, page, perPage)
	if err != nil {
		return nil, err
	}

	categoryNames, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}

	out := &QueuePage{
		Entries: make([]QueueEntry, 0, len(queue.Items)),
		Page:    queue.Page,
		PerPage: queue.PerPage,
		Total:   queue.Total,
		Pages:   (queue.Total + queue.PerPage - 1) / queue.PerPage,
	}
	for i := range queue.Items {
		item := &queue.Items[i]
		entry := QueueEntry{
			SubmissionID:     item.Submission.ID,
			StudentName:      item.StudentName,
			EnrollmentNumber: item.EnrollmentNumber,
			OriginalFilename: item.Submission.OriginalFilename,
			SubmittedAt:      item.Submission.SubmittedAt,
			Status:           item.Submission.Status,
			Metadata: &QueueMetadata{
				EventName:       item.Activity.EventName,
				ParticipantName: item.Activity.ParticipantName,
				Location:        item.Activity.Location,
				EventDate:       item.Activity.EventDate,
				OriginalHours:   item.Activity.OriginalHours,
				NumericHours:    item.Activity.NumericHours,
			},
			Activity: &QueueActivity{
				CategoryID:      item.Activity.CategoryID,
				CategoryName:    categoryNames[item.Activity.CategoryID],
				CalculatedHours: item.Activity.CalculatedHours,
				LLMReasoning:    item.Activity.LLMReasoning,
			},
		}
		if url, err := s.presign.PresignGet(ctx, item.Submission.ObjectKey); err == nil {
			entry.DownloadURL = &url
		} else {
			s.logger.Warn("presign failed", "key", item.Submission.ObjectKey, "error", err)
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

// Detail returns the full review object for one submission. Pipeline records
// that don't exist yet are simply omitted.
func (s *Review) Detail(ctx context.Context, submissionID int64) (*SubmissionDetail, error) {
	submission, err := s.store.SubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	student, err := s.store.StudentByID(ctx, submission.StudentID)
	if err != nil {
		return nil, fmt.Errorf("student lookup: %w", err)
	}

	detail := &SubmissionDetail{Submission: submission, Student: student}
	if ocr, err := s.store.OcrTextBySubmission(ctx, submissionID); err == nil {
		detail.OcrText = ocr
	}
	if meta, err := s.store.MetadataBySubmission(ctx, submissionID); err == nil {
		detail.Metadata = meta
	}
	if activity, err := s.store.ActivityBySubmission(ctx, submissionID); err == nil {
		detail.Activity = activity
	}
	if url, err := s.presign.PresignGet(ctx, submission.ObjectKey); err == nil {
		detail.DownloadURL = &url
	}
	return detail, nil
}

// Approve validates and applies an approve decision. Overriding either hours
// or category requires an override reason; an overridden category must exist
// and the final hours, overridden or inherited from the calculation, must
// respect the final category's maximum.
func (s *Review) Approve(ctx context.Context, in ApproveInput) (*domain.ExtractedActivity, error) {
	if in.FinalHours != nil && *in.FinalHours < 0 {
		return nil, domain.Validationf("final_hours must be a non-negative integer")
	}

	overriding := in.FinalHours != nil || in.FinalCategoryID != nil
	if overriding && (in.OverrideReason == nil || *in.OverrideReason == "") {
		return nil, domain.Validationf("Override reason is required when overriding hours or category")
	}

	if in.FinalCategoryID != nil {
		if _, err := s.store.CategoryByID(ctx, *in.FinalCategoryID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.Validationf("Category with ID %d does not exist", *in.FinalCategoryID)
			}
			return nil, err
		}
	}

	if overriding {
		activity, err := s.store.ActivityBySubmission(ctx, in.SubmissionID)
		if err != nil {
			return nil, err
		}
		categoryID := activity.CategoryID
		if in.FinalCategoryID != nil {
			categoryID = *in.FinalCategoryID
		}
		category, err := s.store.CategoryByID(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		// A category-only override inherits the calculated hours, which must
		// still fit under the new category's ceiling.
		finalHours := activity.CalculatedHours
		if in.FinalHours != nil {
			finalHours = *in.FinalHours
		}
		if finalHours > category.MaxTotalHours {
			return nil, domain.Validationf("final_hours %d exceeds category maximum of %d",
				finalHours, category.MaxTotalHours)
		}
	}

	approved, err := s.store.ApproveSubmission(ctx, database.ApprovalParams{
		SubmissionID:       in.SubmissionID,
		CoordinatorID:      in.CoordinatorID,
		Comments:           in.Comments,
		OverrideCategoryID: in.FinalCategoryID,
		OverrideHours:      in.FinalHours,
		OverrideReasoning:  in.OverrideReason,
	})
	if err != nil {
		return nil, err
	}

	decision := "approved"
	if overriding {
		decision = "overridden"
	}
	s.metrics.ReviewDecisions.WithLabelValues(decision).Inc()
	if approved.FinalHours != nil {
		s.metrics.HoursAwarded.Add(float64(*approved.FinalHours))
	}
	s.logger.Info("submission approved",
		"submission_id", in.SubmissionID, "coordinator_id", in.CoordinatorID,
		"overridden", overriding, "final_hours", approved.FinalHours)
	return approved, nil
}

// Reject applies a reject decision. The reason is mandatory and is validated
// at the handler; re-checked here to protect the invariant.
func (s *Review) Reject(ctx context.Context, submissionID int64, coordinatorID, reason string) (*domain.ExtractedActivity, error) {
	if reason == "" {
		return nil, domain.Validationf("Rejection reason is required")
	}
	rejected, err := s.store.RejectSubmission(ctx, submissionID, coordinatorID, reason)
	if err != nil {
		return nil, err
	}
	s.metrics.ReviewDecisions.WithLabelValues("rejected").Inc()
	s.logger.Info("submission rejected",
		"submission_id", submissionID, "coordinator_id", coordinatorID)
	return rejected, nil
}

func (s *Review) categoryNames(ctx context.Context) (map[int64]*string, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]*string, len(categories))
	for i := range categories {
		names[categories[i].ID] = &categories[i].Name
	}
	return names, nil
}
