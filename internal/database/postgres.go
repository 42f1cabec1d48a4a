// Package database is the Postgres gateway. All authoritative state lives
// here; every read and write goes through hand-written SQL against the
// schema below.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

const schema = `
CREATE TABLE IF NOT EXISTS students (
    id                   BIGSERIAL PRIMARY KEY,
    enrollment_number    TEXT NOT NULL UNIQUE,
    name                 TEXT NOT NULL,
    email                TEXT,
    total_approved_hours INTEGER NOT NULL DEFAULT 0 CHECK (total_approved_hours >= 0),
    created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at           TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS certificate_submissions (
    id                      BIGSERIAL PRIMARY KEY,
    student_id              BIGINT NOT NULL REFERENCES students (id),
    original_filename       TEXT NOT NULL,
    object_key              TEXT NOT NULL,
    file_checksum           CHAR(64) NOT NULL,
    file_size               BIGINT NOT NULL,
    mime_type               TEXT NOT NULL,
    status                  TEXT NOT NULL,
    error_message           TEXT,
    submitted_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    processing_started_at   TIMESTAMPTZ,
    processing_completed_at TIMESTAMPTZ,
    UNIQUE (student_id, file_checksum)
);

CREATE TABLE IF NOT EXISTS certificate_ocr_texts (
    id                 BIGSERIAL PRIMARY KEY,
    submission_id      BIGINT NOT NULL UNIQUE REFERENCES certificate_submissions (id),
    raw_text           TEXT NOT NULL,
    ocr_confidence     DOUBLE PRECISION NOT NULL,
    processing_time_ms BIGINT NOT NULL,
    extracted_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS certificate_metadata (
    id                    BIGSERIAL PRIMARY KEY,
    submission_id         BIGINT NOT NULL REFERENCES certificate_submissions (id),
    participant_name      TEXT,
    event_name            TEXT,
    location              TEXT,
    event_date            TEXT,
    original_hours        TEXT,
    numeric_hours         INTEGER,
    extraction_method     TEXT NOT NULL DEFAULT 'llm',
    extraction_confidence DOUBLE PRECISION,
    processing_time_ms    BIGINT NOT NULL DEFAULT 0,
    extracted_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS activity_categories (
    id               BIGSERIAL PRIMARY KEY,
    name             TEXT NOT NULL,
    description      TEXT NOT NULL,
    calculation_type TEXT NOT NULL,
    hours_awarded    INTEGER,
    input_unit       TEXT NOT NULL,
    input_quantity   INTEGER,
    output_hours     INTEGER,
    max_total_hours  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS extracted_activities (
    id                   BIGSERIAL PRIMARY KEY,
    submission_id        BIGINT NOT NULL REFERENCES certificate_submissions (id),
    metadata_id          BIGINT REFERENCES certificate_metadata (id),
    student_id           BIGINT NOT NULL REFERENCES students (id),
    enrollment_number    TEXT NOT NULL,
    filename             TEXT NOT NULL,
    participant_name     TEXT,
    event_name           TEXT,
    location             TEXT,
    event_date           TEXT,
    original_hours       TEXT,
    numeric_hours        INTEGER,
    category_id          BIGINT NOT NULL REFERENCES activity_categories (id),
    calculated_hours     INTEGER NOT NULL,
    llm_reasoning        TEXT,
    raw_text             TEXT,
    review_status        TEXT NOT NULL DEFAULT 'pending_review',
    coordinator_id       TEXT,
    coordinator_comments TEXT,
    reviewed_at          TIMESTAMPTZ,
    override_category_id BIGINT REFERENCES activity_categories (id),
    override_hours       INTEGER,
    override_reasoning   TEXT,
    final_category_id    BIGINT REFERENCES activity_categories (id),
    final_hours          INTEGER,
    processed_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_submissions_student_status
    ON certificate_submissions (student_id, status);
CREATE INDEX IF NOT EXISTS idx_activities_submission
    ON extracted_activities (submission_id);
`

// Store is the shared database handle. It is safe for concurrent use; each
// unit of work runs on its own connection or transaction from the pool.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db, logger: slog.With("component", "database")}, nil
}

// EnsureSchema creates all tables and indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
