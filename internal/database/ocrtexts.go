package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/complementa/backend/internal/domain"
)

const ocrTextColumns = `id, submission_id, raw_text, ocr_confidence, processing_time_ms, extracted_at`

// CreateOcrText persists the stage-1 output. One row per submission; a second
// insert for the same submission fails on the unique constraint.
func (s *Store) CreateOcrText(ctx context.Context, submissionID int64, rawText string, confidence float64, processingTimeMs int64) (*domain.CertificateOcrText, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO certificate_ocr_texts (submission_id, raw_text, ocr_confidence, processing_time_ms)
		VALUES ($1, $2, $3, $4)
		RETURNING `+ocrTextColumns,
		submissionID, rawText, confidence, processingTimeMs)

	text, err := scanOcrText(row)
	if err != nil {
		return nil, fmt.Errorf("create ocr text: %w", err)
	}
	return text, nil
}

// OcrTextBySubmission fetches the stage-1 output for a submission. Its
// presence is the idempotency marker for redelivered ingest messages.
func (s *Store) OcrTextBySubmission(ctx context.Context, submissionID int64) (*domain.CertificateOcrText, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ocrTextColumns+` FROM certificate_ocr_texts WHERE submission_id = $1`, submissionID)
	text, err := scanOcrText(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ocr text by submission: %w", err)
	}
	return text, nil
}

func scanOcrText(row rowScanner) (*domain.CertificateOcrText, error) {
	var t domain.CertificateOcrText
	err := row.Scan(&t.ID, &t.SubmissionID, &t.RawText, &t.OcrConfidence,
		&t.ProcessingTimeMs, &t.ExtractedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
