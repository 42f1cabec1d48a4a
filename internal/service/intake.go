// Package service implements the application operations behind the HTTP
// handlers: student registration, certificate intake, status reads and the
// coordinator review workflow.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/complementa/backend/internal/bus"
	"github.com/complementa/backend/internal/database"
	"github.com/complementa/backend/internal/domain"
	"github.com/complementa/backend/internal/metrics"
	"github.com/complementa/backend/internal/storage"
)

// IntakeStore is the database surface of the intake path.
type IntakeStore interface {
	StudentByEnrollment(ctx context.Context, enrollmentNumber string) (*domain.Student, error)
	SubmissionByChecksum(ctx context.Context, studentID int64, checksum string) (*domain.CertificateSubmission, error)
	CreateQueuedSubmission(ctx context.Context, sub database.NewSubmission) (*domain.CertificateSubmission, error)
	MarkFailed(ctx context.Context, id int64, message string) error
}

// Uploader stores certificate files.
type Uploader interface {
	Upload(ctx context.Context, key string, content []byte, metadata map[string]string) error
}

// IngestPublisher enqueues stage 1 for a committed submission.
type IngestPublisher interface {
	PublishIngest(ctx context.Context, msg bus.IngestMessage) error
}

// SubmissionReceipt is the intake success payload. Checksum carries only the
// first eight hex characters for identification.
type SubmissionReceipt struct {
	SubmissionID     int64         `json:"submission_id"`
	EnrollmentNumber string        `json:"enrollment_number"`
	Filename         string        `json:"filename"`
	FileSize         int64         `json:"file_size"`
	Status           domain.Status `json:"status"`
	SubmittedAt      time.Time     `json:"submitted_at"`
	Checksum         string        `json:"checksum"`
}

// Intake accepts certificate uploads and enqueues them for processing.
type Intake struct {
	store   IntakeStore
	objects Uploader
	pub     IngestPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewIntake wires the intake service.
func NewIntake(store IntakeStore, objects Uploader, pub IngestPublisher, m *metrics.Metrics) *Intake {
	return &Intake{
		store:   store,
		objects: objects,
		pub:     pub,
		metrics: m,
		logger:  slog.With("component", "service.intake"),
	}
}

// Submit runs the intake algorithm: dedup by content checksum, upload to the
// object store, create the submission row, and publish to the ingest topic
// only after the database transaction committed. Students are never created
// here.
func (s *Intake) Submit(ctx context.Context, content []byte, filename, enrollmentNumber, mimeType string) (*SubmissionReceipt, error) {
	checksum := storage.Checksum(content)

	student, err := s.store.StudentByEnrollment(ctx, enrollmentNumber)
	if errors.Is(err, domain.ErrNotFound) {
		s.metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("student lookup: %w", err)
	}

	if existing, err := s.store.SubmissionByChecksum(ctx, student.ID, checksum); err == nil {
		s.metrics.UploadsTotal.WithLabelValues("duplicate").Inc()
		s.metrics.DuplicateHits.Inc()
		return nil, &domain.DuplicateFileError{
			SubmissionID: existing.ID,
			SubmittedAt:  existing.SubmittedAt,
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("duplicate lookup: %w", err)
	}

	objectKey := storage.ObjectKey(enrollmentNumber, checksum, filename)
	err = s.objects.Upload(ctx, objectKey, content, map[string]string{
		"enrollment_number": enrollmentNumber,
		"original_filename": filename,
		"checksum":          checksum,
	})
	if err != nil {
		s.logger.Error("upload failed", "key", objectKey, "error", err)
		s.metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, domain.ErrUploadFailed
	}

	submission, err := s.store.CreateQueuedSubmission(ctx, database.NewSubmission{
		StudentID:        student.ID,
		OriginalFilename: filename,
		ObjectKey:        objectKey,
		FileChecksum:     checksum,
		FileSize:         int64(len(content)),
		MimeType:         mimeType,
	})
	if err != nil {
		var dup *domain.DuplicateFileError
		if errors.As(err, &dup) {
			s.metrics.UploadsTotal.WithLabelValues("duplicate").Inc()
			s.metrics.DuplicateHits.Inc()
			return nil, dup
		}
		s.metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create submission: %w", err)
	}

	// The row is durable from here on; consumers may observe the id.
	err = s.pub.PublishIngest(ctx, bus.IngestMessage{
		SubmissionID:     submission.ID,
		EnrollmentNumber: enrollmentNumber,
		ObjectKey:        objectKey,
		Checksum:         checksum,
		OriginalFilename: filename,
	})
	if err != nil {
		s.logger.Error("ingest publish failed", "submission_id", submission.ID, "error", err)
		if markErr := s.store.MarkFailed(ctx, submission.ID, "Failed to publish to processing queue"); markErr != nil {
			s.logger.Error("could not mark submission failed", "error", markErr)
		}
		s.metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, domain.ErrQueueFailed
	}

	s.metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	s.metrics.UploadBytes.Observe(float64(len(content)))
	s.logger.Info("submission queued",
		"submission_id", submission.ID, "enrollment_number", enrollmentNumber,
		"filename", filename, "size", len(content))

	return &SubmissionReceipt{
		SubmissionID:     submission.ID,
		EnrollmentNumber: enrollmentNumber,
		Filename:         filename,
		FileSize:         submission.FileSize,
		Status:           submission.Status,
		SubmittedAt:      submission.SubmittedAt,
		Checksum:         checksum[:8] + "...",
	}, nil
}
