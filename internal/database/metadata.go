package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/complementa/backend/internal/domain"
)

const metadataColumns = `id, submission_id, participant_name, event_name, location,
	event_date, original_hours, numeric_hours, extraction_method,
	extraction_confidence, processing_time_ms, extracted_at`

// NewMetadata carries the stage-2 extraction result for persistence.
type NewMetadata struct {
	SubmissionID     int64
	Fields           domain.ExtractedFields
	NumericHours     *int
	ProcessingTimeMs int64
}

// CreateMetadata persists the stage-2 LLM extraction.
func (s *Store) CreateMetadata(ctx context.Context, m NewMetadata) (*domain.CertificateMetadata, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO certificate_metadata
			(submission_id, participant_name, event_name, location, event_date,
			 original_hours, numeric_hours, processing_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+metadataColumns,
		m.SubmissionID, m.Fields.NomeParticipante, m.Fields.Evento, m.Fields.Local,
		m.Fields.Data, m.Fields.CargaHoraria, m.NumericHours, m.ProcessingTimeMs)

	meta, err := scanMetadata(row)
	if err != nil {
		return nil, fmt.Errorf("create metadata: %w", err)
	}
	return meta, nil
}

// MetadataBySubmission fetches the most recent stage-2 record for a
// submission.
func (s *Store) MetadataBySubmission(ctx context.Context, submissionID int64) (*domain.CertificateMetadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+metadataColumns+`
		FROM certificate_metadata
		WHERE submission_id = $1
		ORDER BY extracted_at DESC
		LIMIT 1`, submissionID)
	meta, err := scanMetadata(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("metadata by submission: %w", err)
	}
	return meta, nil
}

func scanMetadata(row rowScanner) (*domain.CertificateMetadata, error) {
	var m domain.CertificateMetadata
	var participant, event, location, date, hours sql.NullString
	var numericHours sql.NullInt64
	var confidence sql.NullFloat64
	err := row.Scan(&m.ID, &m.SubmissionID, &participant, &event, &location,
		&date, &hours, &numericHours, &m.ExtractionMethod,
		&confidence, &m.ProcessingTimeMs, &m.ExtractedAt)
	if err != nil {
		return nil, err
	}
	m.ParticipantName = nullableString(participant)
	m.EventName = nullableString(event)
	m.Location = nullableString(location)
	m.EventDate = nullableString(date)
	m.OriginalHours = nullableString(hours)
	m.NumericHours = nullableInt(numericHours)
	m.ExtractionConfidence = nullableFloat(confidence)
	return &m, nil
}
