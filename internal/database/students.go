package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/complementa/backend/internal/domain"
)

const studentColumns = `id, enrollment_number, name, email, total_approved_hours, created_at, updated_at`

// CreateStudent registers a new student. A duplicate enrollment number is a
// conflict, never an upsert.
func (s *Store) CreateStudent(ctx context.Context, enrollmentNumber, name string, email *string) (*domain.Student, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO students (enrollment_number, name, email)
		VALUES ($1, $2, $3)
		RETURNING `+studentColumns,
		enrollmentNumber, name, email)

	student, err := scanStudent(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, domain.Conflictf("student with enrollment number %s already exists", enrollmentNumber)
		}
		return nil, fmt.Errorf("create student: %w", err)
	}
	return student, nil
}

// StudentByEnrollment looks a student up by enrollment number.
func (s *Store) StudentByEnrollment(ctx context.Context, enrollmentNumber string) (*domain.Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE enrollment_number = $1`, enrollmentNumber)
	student, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("student by enrollment: %w", err)
	}
	return student, nil
}

// StudentByID looks a student up by primary key.
func (s *Store) StudentByID(ctx context.Context, id int64) (*domain.Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	student, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("student by id: %w", err)
	}
	return student, nil
}

// UpdateStudent changes a student's name and/or email.
func (s *Store) UpdateStudent(ctx context.Context, enrollmentNumber string, name *string, email *string) (*domain.Student, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE students
		SET name = COALESCE($2, name), email = COALESCE($3, email), updated_at = now()
		WHERE enrollment_number = $1
		RETURNING `+studentColumns,
		enrollmentNumber, name, email)

	student, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update student: %w", err)
	}
	return student, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*domain.Student, error) {
	var st domain.Student
	var email sql.NullString
	var updatedAt sql.NullTime
	err := row.Scan(&st.ID, &st.EnrollmentNumber, &st.Name, &email,
		&st.TotalApprovedHours, &st.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	st.Email = nullableString(email)
	st.UpdatedAt = nullableTime(updatedAt)
	return &st, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
