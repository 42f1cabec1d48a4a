package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel error kinds. Handlers map these to HTTP status codes; everything
// else is treated as an internal error.
var (
	ErrNotFound     = errors.New("not found")
	ErrUploadFailed = errors.New("failed to upload file to storage")
	ErrQueueFailed  = errors.New("failed to queue file for processing")
)

// ValidationError reports bad input at the service boundary.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports an operation against a record in the wrong state,
// for example approving a submission that is not pending review.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Conflictf builds a ConflictError from a format string.
func Conflictf(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// DuplicateFileError is returned when intake sees content a student has
// already submitted. It carries the prior submission so the client can
// point the user at it.
type DuplicateFileError struct {
	SubmissionID int64
	SubmittedAt  time.Time
}

func (e *DuplicateFileError) Error() string {
	return fmt.Sprintf("duplicate file: already submitted as submission %d", e.SubmissionID)
}
