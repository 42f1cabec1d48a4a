package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/complementa/backend/internal/domain"
)

const activityColumns = `id, submission_id, metadata_id, student_id, enrollment_number,
	filename, participant_name, event_name, location, event_date,
	original_hours, numeric_hours, category_id, calculated_hours,
	llm_reasoning, raw_text, review_status, coordinator_id,
	coordinator_comments, reviewed_at, override_category_id, override_hours,
	override_reasoning, final_category_id, final_hours, processed_at`

// NewActivity carries the stage-3 result awaiting coordinator review.
type NewActivity struct {
	SubmissionID     int64
	MetadataID       *int64
	StudentID        int64
	EnrollmentNumber string
	Filename         string
	Fields           domain.ExtractedFields
	NumericHours     *int
	CategoryID       int64
	CalculatedHours  int
	LLMReasoning     *string
	RawText          *string
}

// CreateActivity persists the categorized activity in pending_review state.
func (s *Store) CreateActivity(ctx context.Context, a NewActivity) (*domain.ExtractedActivity, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO extracted_activities
			(submission_id, metadata_id, student_id, enrollment_number, filename,
			 participant_name, event_name, location, event_date, original_hours,
			 numeric_hours, category_id, calculated_hours, llm_reasoning, raw_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+activityColumns,
		a.SubmissionID, a.MetadataID, a.StudentID, a.EnrollmentNumber, a.Filename,
		a.Fields.NomeParticipante, a.Fields.Evento, a.Fields.Local, a.Fields.Data,
		a.Fields.CargaHoraria, a.NumericHours, a.CategoryID, a.CalculatedHours,
		a.LLMReasoning, a.RawText)

	activity, err := scanActivity(row)
	if err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	return activity, nil
}

// ActivityBySubmission fetches the activity record for a submission.
func (s *Store) ActivityBySubmission(ctx context.Context, submissionID int64) (*domain.ExtractedActivity, error) {
	row := s.db.QueryRowContext(ctx, `
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
		return nil, fmt.Errorf("activity by submission: %w", err)
	}
	return activity, nil
}

func scanActivity(row rowScanner) (*domain.ExtractedActivity, error) {
	var a domain.ExtractedActivity
	var metadataID, overrideCategoryID, finalCategoryID sql.NullInt64
	var participant, event, location, date, hours sql.NullString
	var numericHours, overrideHours, finalHours sql.NullInt64
	var reasoning, rawText, coordinatorID, comments, overrideReasoning sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(&a.ID, &a.SubmissionID, &metadataID, &a.StudentID, &a.EnrollmentNumber,
		&a.Filename, &participant, &event, &location, &date,
		&hours, &numericHours, &a.CategoryID, &a.CalculatedHours,
		&reasoning, &rawText, &a.ReviewStatus, &coordinatorID,
		&comments, &reviewedAt, &overrideCategoryID, &overrideHours,
		&overrideReasoning, &finalCategoryID, &finalHours, &a.ProcessedAt)
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
	return &a, nil
}
