package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/complementa/backend/internal/domain"
)

// StudentStore is the database surface of student management.
type StudentStore interface {
	CreateStudent(ctx context.Context, enrollmentNumber, name string, email *string) (*domain.Student, error)
	StudentByEnrollment(ctx context.Context, enrollmentNumber string) (*domain.Student, error)
	UpdateStudent(ctx context.Context, enrollmentNumber string, name *string, email *string) (*domain.Student, error)
}

// Students implements registration and profile operations.
type Students struct {
	store  StudentStore
	logger *slog.Logger
}

// NewStudents wires the student service.
func NewStudents(store StudentStore) *Students {
	return &Students{store: store, logger: slog.With("component", "service.students")}
}

// Register creates a student. Enrollment number and name are mandatory.
func (s *Students) Register(ctx context.Context, enrollmentNumber, name string, email *string) (*domain.Student, error) {
	enrollmentNumber = strings.TrimSpace(enrollmentNumber)
	name = strings.TrimSpace(name)
	if enrollmentNumber == "" {
		return nil, domain.Validationf("enrollment_number is required")
	}
	if name == "" {
		return nil, domain.Validationf("name is required")
	}

	student, err := s.store.CreateStudent(ctx, enrollmentNumber, name, email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student registered", "enrollment_number", enrollmentNumber)
	return student, nil
}

// Get fetches a student by enrollment number.
func (s *Students) Get(ctx context.Context, enrollmentNumber string) (*domain.Student, error) {
	return s.store.StudentByEnrollment(ctx, enrollmentNumber)
}

// Update changes a student's name and/or email. At least one field must be
// present.
func (s *Students) Update(ctx context.Context, enrollmentNumber string, name *string, email *string) (*domain.Student, error) {
	if name == nil && email == nil {
		return nil, domain.Validationf("at least one of name or email is required")
	}
	if name != nil && strings.TrimSpace(*name) == "" {
		return nil, domain.Validationf("name must not be empty")
	}

	student, err := s.store.UpdateStudent(ctx, enrollmentNumber, name, email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student updated", "enrollment_number", enrollmentNumber)
	return student, nil
}
