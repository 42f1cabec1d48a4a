package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complementa/backend/internal/bus"
	"github.com/complementa/backend/internal/database"
	"github.com/complementa/backend/internal/domain"
	"github.com/complementa/backend/internal/metrics"
)

type fakeIntakeStore struct {
	student    *domain.Student
	existing   *domain.CertificateSubmission
	created    *domain.CertificateSubmission
	createErr  error
	failedID   int64
	failedMsg  string
	createArgs database.NewSubmission
}

func (f *fakeIntakeStore) StudentByEnrollment(_ context.Context, enrollment string) (*domain.Student, error) {
	if f.student == nil || f.student.EnrollmentNumber != enrollment {
		return nil, domain.ErrNotFound
	}
	return f.student, nil
}

func (f *fakeIntakeStore) SubmissionByChecksum(_ context.Context, _ int64, _ string) (*domain.CertificateSubmission, error) {
	if f.existing == nil {
		return nil, domain.ErrNotFound
	}
	return f.existing, nil
}

func (f *fakeIntakeStore) CreateQueuedSubmission(_ context.Context, sub database.NewSubmission) (*domain.CertificateSubmission, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createArgs = sub
	f.created = &domain.CertificateSubmission{
		ID:               42,
		StudentID:        sub.StudentID,
		OriginalFilename: sub.OriginalFilename,
		ObjectKey:        sub.ObjectKey,
		FileChecksum:     sub.FileChecksum,
		FileSize:         sub.FileSize,
		MimeType:         sub.MimeType,
		Status:           domain.StatusQueued,
		SubmittedAt:      time.Now(),
	}
	return f.created, nil
}

func (f *fakeIntakeStore) MarkFailed(_ context.Context, id int64, message string) error {
	f.failedID = id
	f.failedMsg = message
	return nil
}

type fakeUploader struct {
	err      error
	key      string
	metadata map[string]string
}

func (f *fakeUploader) Upload(_ context.Context, key string, _ []byte, metadata map[string]string) error {
	f.key = key
	f.metadata = metadata
	return f.err
}

type fakeIngestPublisher struct {
	err error
	msg *bus.IngestMessage
}

func (f *fakeIngestPublisher) PublishIngest(_ context.Context, msg bus.IngestMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msg = &msg
	return nil
}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func testStudent() *domain.Student {
	return &domain.Student{ID: 7, EnrollmentNumber: "2021001", Name: "Ana Maria Silva"}
}

func TestIntakeSubmit_HappyPath(t *testing.T) {
	store := &fakeIntakeStore{student: testStudent()}
	uploader := &fakeUploader{}
	publisher := &fakeIngestPublisher{}
	intake := NewIntake(store, uploader, publisher, testMetrics())

	receipt, err := intake.Submit(context.Background(),
		[]byte("pdf bytes"), "cert.pdf", "2021001", "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, int64(42), receipt.SubmissionID)
	assert.Equal(t, "2021001", receipt.EnrollmentNumber)
	assert.Equal(t, "cert.pdf", receipt.Filename)
	assert.Equal(t, domain.StatusQueued, receipt.Status)
	assert.Len(t, receipt.Checksum, 11)
	assert.Equal(t, "...", receipt.Checksum[8:])

	// Object key is content-addressed under the student's enrollment.
	assert.Contains(t, uploader.key, "certificates/2021001/")
	assert.Equal(t, "cert.pdf", uploader.metadata["original_filename"])

	require.NotNil(t, publisher.msg)
	assert.Equal(t, int64(42), publisher.msg.SubmissionID)
	assert.Equal(t, uploader.key, publisher.msg.ObjectKey)
	assert.Equal(t, store.createArgs.FileChecksum, publisher.msg.Checksum)
}

func TestIntakeSubmit_StudentNotFound(t *testing.T) {
	intake := NewIntake(&fakeIntakeStore{}, &fakeUploader{}, &fakeIngestPublisher{}, testMetrics())

	_, err := intake.Submit(context.Background(), []byte("x"), "cert.pdf", "9999", "application/pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIntakeSubmit_DuplicateFile(t *testing.T) {
	submitted := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &fakeIntakeStore{
		student:  testStudent(),
		existing: &domain.CertificateSubmission{ID: 11, SubmittedAt: submitted},
	}
	uploader := &fakeUploader{}
	intake := NewIntake(store, uploader, &fakeIngestPublisher{}, testMetrics())

	_, err := intake.Submit(context.Background(), []byte("same bytes"), "cert.pdf", "2021001", "application/pdf")

	var dup *domain.DuplicateFileError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, int64(11), dup.SubmissionID)
	assert.Equal(t, submitted, dup.SubmittedAt)
	// Duplicates are rejected before any upload.
	assert.Empty(t, uploader.key)
}

func TestIntakeSubmit_UploadFailure(t *testing.T) {
	store := &fakeIntakeStore{student: testStudent()}
	uploader := &fakeUploader{err: errors.New("connection refused")}
	intake := NewIntake(store, uploader, &fakeIngestPublisher{}, testMetrics())

	_, err := intake.Submit(context.Background(), []byte("x"), "cert.pdf", "2021001", "application/pdf")
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	assert.Nil(t, store.created, "no row may exist after a failed upload")
}

func TestIntakeSubmit_PublishFailureMarksSubmissionFailed(t *testing.T) {
	store := &fakeIntakeStore{student: testStudent()}
	publisher := &fakeIngestPublisher{err: errors.New("kafka down")}
	intake := NewIntake(store, &fakeUploader{}, publisher, testMetrics())

	_, err := intake.Submit(context.Background(), []byte("x"), "cert.pdf", "2021001", "application/pdf")
	assert.ErrorIs(t, err, domain.ErrQueueFailed)
	assert.Equal(t, int64(42), store.failedID)
	assert.Equal(t, "Failed to publish to processing queue", store.failedMsg)
}
