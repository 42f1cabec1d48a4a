package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/complementa/backend/internal/domain"
)

const submissionColumns = `id, student_id, original_filename, object_key, file_checksum,
	file_size, mime_type, status, error_message, submitted_at,
	processing_started_at, processing_completed_at`

// NewSubmission carries the fields intake persists for an accepted upload.
type NewSubmission struct {
	StudentID        int64
	OriginalFilename string
	ObjectKey        string
	FileChecksum     string
	FileSize         int64
	MimeType         string
}

// CreateQueuedSubmission inserts a submission as uploaded and transitions it
// to queued within the same transaction, so no observer ever sees a bare
// uploaded row. A (student_id, checksum) collision maps to the existing
// submission as a duplicate.
func (s *Store) CreateQueuedSubmission(ctx context.Context, sub NewSubmission) (*domain.CertificateSubmission, error) {
	var created *domain.CertificateSubmission
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO certificate_submissions
				(student_id, original_filename, object_key, file_checksum, file_size, mime_type, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+submissionColumns,
			sub.StudentID, sub.OriginalFilename, sub.ObjectKey, sub.FileChecksum,
			sub.FileSize, sub.MimeType, domain.StatusUploaded)

		inserted, err := scanSubmission(row)
		if err != nil {
			return err
		}

		row = tx.QueryRowContext(ctx, `
			UPDATE certificate_submissions SET status = $2 WHERE id = $1
			RETURNING `+submissionColumns,
			inserted.ID, domain.StatusQueued)
		created, err = scanSubmission(row)
		return err
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			// Lost an intake race; report the surviving submission.
			if existing, lookupErr := s.SubmissionByChecksum(ctx, sub.StudentID, sub.FileChecksum); lookupErr == nil {
				return nil, &domain.DuplicateFileError{
					SubmissionID: existing.ID,
					SubmittedAt:  existing.SubmittedAt,
				}
			}
		}
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return created, nil
}

// SubmissionByID fetches one submission.
func (s *Store) SubmissionByID(ctx context.Context, id int64) (*domain.CertificateSubmission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM certificate_submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("submission by id: %w", err)
	}
	return sub, nil
}

// SubmissionByChecksum finds a student's submission with the given content
// checksum, the dedup lookup of the intake path.
func (s *Store) SubmissionByChecksum(ctx context.Context, studentID int64, checksum string) (*domain.CertificateSubmission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+submissionColumns+`
		FROM certificate_submissions
		WHERE student_id = $1 AND file_checksum = $2`,
		studentID, checksum)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("submission by checksum: %w", err)
	}
	return sub, nil
}

// SubmissionsByStudent lists a student's submissions, newest first, with an
// optional status filter.
func (s *Store) SubmissionsByStudent(ctx context.Context, studentID int64, status *domain.Status, limit int) ([]domain.CertificateSubmission, error) {
	query := `SELECT ` + submissionColumns + `
		FROM certificate_submissions
		WHERE student_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY submitted_at DESC
		LIMIT $3`

	var statusArg any
	if status != nil {
		statusArg = string(*status)
	}

	rows, err := s.db.QueryContext(ctx, query, studentID, statusArg, limit)
	if err != nil {
		return nil, fmt.Errorf("submissions by student: %w", err)
	}
	defer rows.Close()

	var out []domain.CertificateSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

// TransitionStatus moves a submission through the state machine. Illegal
// transitions are rejected; entering a *_processing state stamps
// processing_started_at, entering a terminal or pending_review state stamps
// processing_completed_at. A transition to failed requires an error message.
func (s *Store) TransitionStatus(ctx context.Context, id int64, to domain.Status, errorMessage *string) error {
	if to == domain.StatusFailed && (errorMessage == nil || *errorMessage == "") {
		return domain.Validationf("transition to failed requires an error message")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var from domain.Status
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM certificate_submissions WHERE id = $1 FOR UPDATE`, id).Scan(&from)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock submission: %w", err)
		}

		if !domain.CanTransition(from, to) {
			return domain.Conflictf("illegal status transition %s -> %s for submission %d", from, to, id)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE certificate_submissions
			SET status = $2,
			    error_message = COALESCE($3, error_message),
			    processing_started_at = CASE
			        WHEN $4 AND processing_started_at IS NULL THEN now()
			        ELSE processing_started_at END,
			    processing_completed_at = CASE WHEN $5 THEN now() ELSE processing_completed_at END
			WHERE id = $1`,
			id, to, errorMessage, isProcessing(to), isCompleted(to))
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
}

// MarkFailed is the stage workers' demotion path: record the error and stamp
// completion.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	return s.TransitionStatus(ctx, id, domain.StatusFailed, &message)
}

func isProcessing(st domain.Status) bool {
	switch st {
	case domain.StatusOcrProcessing, domain.StatusMetadataProcessing, domain.StatusCategorizationProcessing:
		return true
	}
	return false
}

func isCompleted(st domain.Status) bool {
	switch st {
	case domain.StatusPendingReview, domain.StatusApproved, domain.StatusRejected, domain.StatusFailed:
		return true
	}
	return false
}

func scanSubmission(row rowScanner) (*domain.CertificateSubmission, error) {
	var sub domain.CertificateSubmission
	var errMsg sql.NullString
	var startedAt, completedAt sql.NullTime
	err := row.Scan(&sub.ID, &sub.StudentID, &sub.OriginalFilename, &sub.ObjectKey,
		&sub.FileChecksum, &sub.FileSize, &sub.MimeType, &sub.Status, &errMsg,
		&sub.SubmittedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	sub.ErrorMessage = nullableString(errMsg)
	sub.ProcessingStartedAt = nullableTime(startedAt)
	sub.ProcessingCompletedAt = nullableTime(completedAt)
	return &sub, nil
}
