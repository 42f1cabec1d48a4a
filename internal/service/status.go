package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/complementa/backend/internal/domain"
)

// StatusStore is the database surface of the status read path.
type StatusStore interface {
	SubmissionByID(ctx context.Context, id int64) (*domain.CertificateSubmission, error)
	StudentByID(ctx context.Context, id int64) (*domain.Student, error)
	StudentByEnrollment(ctx context.Context, enrollmentNumber string) (*domain.Student, error)
	SubmissionsByStudent(ctx context.Context, studentID int64, status *domain.Status, limit int) ([]domain.CertificateSubmission, error)
}

// Presigner issues time-limited download URLs for stored certificates.
type Presigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// Limits on the student submission listing.
const (
	DefaultSubmissionLimit = 50
	MaxSubmissionLimit     = 100
)

// SubmissionView is one submission as shown to students, with a presigned
// download URL when the stored object is reachable.
type SubmissionView struct {
	SubmissionID     int64         `json:"submission_id"`
	EnrollmentNumber string        `json:"enrollment_number,omitempty"`
	OriginalFilename string        `json:"original_filename"`
	Status           domain.Status `json:"status"`
	SubmittedAt      time.Time     `json:"submitted_at"`
	FileSize         int64         `json:"file_size"`
	MimeType         string        `json:"mime_type"`
	DownloadURL      *string       `json:"download_url,omitempty"`
	ErrorMessage     *string       `json:"error_message,omitempty"`
}

// SubmissionListing is a student's submission history.
type SubmissionListing struct {
	EnrollmentNumber string           `json:"enrollment_number"`
	TotalSubmissions int              `json:"total_submissions"`
	Submissions      []SubmissionView `json:"submissions"`
}

// StatusReader serves submission status and history queries.
type StatusReader struct {
	store   StatusStore
	presign Presigner
	logger  *slog.Logger
}

// NewStatusReader wires the read-side service.
func NewStatusReader(store StatusStore, presign Presigner) *StatusReader {
	return &StatusReader{
		store:   store,
		presign: presign,
		logger:  slog.With("component", "service.status"),
	}
}

// SubmissionStatus returns one submission with its owner's enrollment number
// and a presigned download URL.
func (s *StatusReader) SubmissionStatus(ctx context.Context, submissionID int64) (*SubmissionView, error) {
	submission, err := s.store.SubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	student, err := s.store.StudentByID(ctx, submission.StudentID)
	if err != nil {
		return nil, fmt.Errorf("student lookup: %w", err)
	}

	view := s.view(ctx, submission)
	view.EnrollmentNumber = student.EnrollmentNumber
	return &view, nil
}

// StudentSubmissions lists a student's submissions, optionally filtered by
// status, newest first. The limit is clamped to MaxSubmissionLimit.
func (s *StatusReader) StudentSubmissions(ctx context.Context, enrollmentNumber string, status *domain.Status, limit int) (*SubmissionListing, error) {
	if limit <= 0 {
		limit = DefaultSubmissionLimit
	}
	if limit > MaxSubmissionLimit {
		limit = MaxSubmissionLimit
	}
	if status != nil && !domain.Valid(*status) {
		return nil, domain.Validationf("unknown status %q", *status)
	}

	student, err := s.store.StudentByEnrollment(ctx, enrollmentNumber)
	if err != nil {
		return nil, err
	}

	submissions, err := s.store.SubmissionsByStudent(ctx, student.ID, status, limit)
	if err != nil {
		return nil, err
	}

	listing := &SubmissionListing{
		EnrollmentNumber: enrollmentNumber,
		TotalSubmissions: len(submissions),
		Submissions:      make([]SubmissionView, 0, len(submissions)),
	}
	for i := range submissions {
		listing.Submissions = append(listing.Submissions, s.view(ctx, &submissions[i]))
	}
	return listing, nil
}

// view builds the client payload for a submission. A presign failure only
// drops the URL; status reads never fail because of the object store.
func (s *StatusReader) view(ctx context.Context, sub *domain.CertificateSubmission) SubmissionView {
	view := SubmissionView{
		SubmissionID:     sub.ID,
		OriginalFilename: sub.OriginalFilename,
		Status:           sub.Status,
		SubmittedAt:      sub.SubmittedAt,
		FileSize:         sub.FileSize,
		MimeType:         sub.MimeType,
		ErrorMessage:     sub.ErrorMessage,
	}
	if url, err := s.presign.PresignGet(ctx, sub.ObjectKey); err == nil {
		view.DownloadURL = &url
	} else {
		s.logger.Warn("presign failed", "key", sub.ObjectKey, "error", err)
	}
	return view
}
