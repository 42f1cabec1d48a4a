package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/complementa/backend/internal/domain"
)

// ReviewQueueItem is one row of the coordinator queue: the activity plus the
// submission and student context needed to render it.
type ReviewQueueItem struct {
	Activity         domain.ExtractedActivity      `json:"activity"`
	Submission       domain.CertificateSubmission  `json:"submission"`
	StudentName      string                        `json:"student_name"`
	EnrollmentNumber string                        `json:"enrollment_number"`
}

// ReviewQueuePage is a paginated slice of the queue with the unpaged total.
type ReviewQueuePage struct {
	Items   []ReviewQueueItem
	Total   int
	Page    int
	PerPage int
}

// ListReviewQueue pages through submissions awaiting (or past) review.
// status filters on the submission status, enrollment on the student's
// enrollment number; both are optional.
func (s *Store) ListReviewQueue(ctx context.Context, status *domain.Status, enrollment *string, page, perPage int) (*ReviewQueuePage, error) {
	where := `WHERE ($1::text IS NULL OR cs.status = $1)
	            AND ($2::text IS NULL OR st.enrollment_number = $2)`

	var statusArg, enrollmentArg any
	if status != nil {
		statusArg = string(*status)
	}
	if enrollment != nil {
		enrollmentArg = *enrollment
	}

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM extracted_activities ea
		JOIN certificate_submissions cs ON cs.id = ea.submission_id
		JOIN students st ON st.id = ea.student_id `+where,
		statusArg, enrollmentArg).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count review queue: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixColumns("ea", activityColumns)+`,
		       `+prefixColumns("cs", submissionColumns)+`,
		       st.name, st.enrollment_number
		FROM extracted_activities ea
		JOIN certificate_submissions cs ON cs.id = ea.submission_id
		JOIN students st ON st.id = ea.student_id `+where+`
		ORDER BY ea.processed_at ASC
		LIMIT $3 OFFSET $4`,
		statusArg, enrollmentArg, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}
	defer rows.Close()

	out := &ReviewQueuePage{Total: total, Page: page, PerPage: perPage}
	for rows.Next() {
		item, err := scanReviewQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review queue item: %w", err)
		}
		out.Items = append(out.Items, *item)
	}
	return out, rows.Err()
}

// ApprovalParams is a coordinator's approve decision, optionally overriding
// the pipeline's category or hours.
type ApprovalParams struct {
	SubmissionID       int64
	CoordinatorID      string
	Comments           *string
	OverrideCategoryID *int64
	OverrideHours      *int
	OverrideReasoning  *string
}

// Overridden reports whether the decision changes the pipeline's result.
func (p ApprovalParams) Overridden() bool {
	return p.OverrideCategoryID != nil || p.OverrideHours != nil
}

// ApproveSubmission applies an approval atomically: the activity gets its
// review and final fields, the submission moves to approved, and the final
// hours accrue onto the student. Requires the submission to be in
// pending_review.
func (s *Store) ApproveSubmission(ctx context.Context, p ApprovalParams) (*domain.ExtractedActivity, error) {
	var approved *domain.ExtractedActivity
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		activity, err := lockPendingActivity(ctx, tx, p.SubmissionID)
		if err != nil {
			return err
		}

		finalCategory := activity.CategoryID
		if p.OverrideCategoryID != nil {
			finalCategory = *p.OverrideCategoryID
		}
		finalHours := activity.CalculatedHours
		if p.OverrideHours != nil {
			finalHours = *p.OverrideHours
		}
		row := tx.QueryRowContext(ctx, `
			UPDATE extracted_activities
			SET review_status = $2, coordinator_id = $3, coordinator_comments = $4,
			    reviewed_at = now(), override_category_id = $5, override_hours = $6,
			    override_reasoning = $7, final_category_id = $8, final_hours = $9
			WHERE id = $1
			RETURNING `+activityColumns,
			activity.ID, domain.ReviewApproved, p.CoordinatorID, p.Comments,
			p.OverrideCategoryID, p.OverrideHours, p.OverrideReasoning,
			finalCategory, finalHours)
		approved, err = scanActivity(row)
		if err != nil {
			return fmt.Errorf("update activity: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE certificate_submissions
			SET status = $2, processing_completed_at = COALESCE(processing_completed_at, now())
			WHERE id = $1`,
			p.SubmissionID, domain.StatusApproved)
		if err != nil {
			return fmt.Errorf("update submission: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE students
			SET total_approved_hours = total_approved_hours + $2, updated_at = now()
			WHERE id = $1`,
			activity.StudentID, finalHours)
		if err != nil {
			return fmt.Errorf("accrue student hours: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// RejectSubmission applies a rejection atomically: the activity records the
// decision and reason, the submission moves to rejected, and no hours accrue.
func (s *Store) RejectSubmission(ctx context.Context, submissionID int64, coordinatorID, reason string) (*domain.ExtractedActivity, error) {
	var rejected *domain.ExtractedActivity
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		activity, err := lockPendingActivity(ctx, tx, submissionID)
		if err != nil {
			return err
		}

		row := tx.QueryRowContext(ctx, `
			UPDATE extracted_activities
			SET review_status = $2, coordinator_id = $3, coordinator_comments = $4,
			    reviewed_at = now()
			WHERE id = $1
			RETURNING `+activityColumns,
			activity.ID, domain.ReviewRejected, coordinatorID, reason)
		rejected, err = scanActivity(row)
		if err != nil {
			return fmt.Errorf("update activity: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE certificate_submissions
			SET status = $2, processing_completed_at = COALESCE(processing_completed_at, now())
			WHERE id = $1`,
			submissionID, domain.StatusRejected)
		if err != nil {
			return fmt.Errorf("update submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// lockPendingActivity locks the submission row, verifies it awaits review and
// returns its activity.
func lockPendingActivity(ctx context.Context, tx *sql.Tx, submissionID int64) (*domain.ExtractedActivity, error) {
	var status domain.Status
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM certificate_submissions WHERE id = $1 FOR UPDATE`,
		submissionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock submission: %w", err)
	}
	if status != domain.StatusPendingReview {
		return nil, domain.Conflictf("submission %d is %s, not pending_review", submissionID, status)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT `+activityColumns+`
		FROM extracted_activities
		WHERE submission_id = $1
		ORDER BY processed_at DESC
		LIMIT 1`, submissionID)
	activity, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	return activity, nil
}

func scanReviewQueueItem(row rowScanner) (*ReviewQueueItem, error) {
	var item ReviewQueueItem
	a := &item.Activity
	sub := &item.Submission

	var metadataID, overrideCategoryID, finalCategoryID sql.NullInt64
	var participant, event, location, date, hours sql.NullString
	var numericHours, overrideHours, finalHours sql.NullInt64
	var reasoning, rawText, coordinatorID, comments, overrideReasoning sql.NullString
	var reviewedAt sql.NullTime
	var errMsg sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.SubmissionID, &metadataID, &a.StudentID, &a.EnrollmentNumber,
		&a.Filename, &participant, &event, &location, &date,
		&hours, &numericHours, &a.CategoryID, &a.CalculatedHours,
		&reasoning, &rawText, &a.ReviewStatus, &coordinatorID,
		&comments, &reviewedAt, &overrideCategoryID, &overrideHours,
		&overrideReasoning, &finalCategoryID, &finalHours, &a.ProcessedAt,
		&sub.ID, &sub.StudentID, &sub.OriginalFilename, &sub.ObjectKey,
		&sub.FileChecksum, &sub.FileSize, &sub.MimeType, &sub.Status, &errMsg,
		&sub.SubmittedAt, &startedAt, &completedAt,
		&item.StudentName, &item.EnrollmentNumber)
	if err != nil {
		return nil, err
	}

	a.MetadataID = nullableInt64(metadataID)
	a.ParticipantName = nullableString(participant)
	a.EventName = nullableString(event)
	a.Location = nullableString(location)
	a.EventDate = nullableString(date)
	a.OriginalHours = nullableString(hours)
	a.NumericHours = nullableInt(numericHours)
	a.LLMReasoning = nullableString(reasoning)
	a.RawText = nullableString(rawText)
	a.CoordinatorID = nullableString(coordinatorID)
	a.CoordinatorComments = nullableString(comments)
	a.ReviewedAt = nullableTime(reviewedAt)
	a.OverrideCategoryID = nullableInt64(overrideCategoryID)
	a.OverrideHours = nullableInt(overrideHours)
	a.OverrideReasoning = nullableString(overrideReasoning)
	a.FinalCategoryID = nullableInt64(finalCategoryID)
	a.FinalHours = nullableInt(finalHours)

	sub.ErrorMessage = nullableString(errMsg)
	sub.ProcessingStartedAt = nullableTime(startedAt)
	sub.ProcessingCompletedAt = nullableTime(completedAt)
	return &item, nil
}
