package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complementa/backend/internal/database"
	"github.com/complementa/backend/internal/domain"
)

type fakeReviewStore struct {
	queue      *database.ReviewQueuePage
	listStatus *domain.Status
	listPage   int
	listPer    int

	submission *domain.CertificateSubmission
	student    *domain.Student
	activity   *domain.ExtractedActivity
	categories []domain.ActivityCategory

	approveParams *database.ApprovalParams
	rejectReason  string
}

func (f *fakeReviewStore) ListReviewQueue(_ context.Context, status *domain.Status, _ *string, page, perPage int) (*database.ReviewQueuePage, error) {
	f.listStatus = status
	f.listPage = page
	f.listPer = perPage
	if f.queue != nil {
		return f.queue, nil
	}
	return &database.ReviewQueuePage{Page: page, PerPage: perPage}, nil
}

func (f *fakeReviewStore) SubmissionByID(_ context.Context, id int64) (*domain.CertificateSubmission, error) {
	if f.submission == nil || f.submission.ID != id {
		return nil, domain.ErrNotFound
	}
	return f.submission, nil
}

func (f *fakeReviewStore) StudentByID(_ context.Context, id int64) (*domain.Student, error) {
	if f.student == nil || f.student.ID != id {
		return nil, domain.ErrNotFound
	}
	return f.student, nil
}

func (f *fakeReviewStore) OcrTextBySubmission(context.Context, int64) (*domain.CertificateOcrText, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeReviewStore) MetadataBySubmission(context.Context, int64) (*domain.CertificateMetadata, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeReviewStore) ActivityBySubmission(_ context.Context, submissionID int64) (*domain.ExtractedActivity, error) {
	if f.activity == nil || f.activity.SubmissionID != submissionID {
		return nil, domain.ErrNotFound
	}
	return f.activity, nil
}

func (f *fakeReviewStore) ListCategories(context.Context) ([]domain.ActivityCategory, error) {
	return f.categories, nil
}

func (f *fakeReviewStore) CategoryByID(_ context.Context, id int64) (*domain.ActivityCategory, error) {
	for i := range f.categories {
		if f.categories[i].ID == id {
			return &f.categories[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeReviewStore) ApproveSubmission(_ context.Context, p database.ApprovalParams) (*domain.ExtractedActivity, error) {
	f.approveParams = &p
	out := *f.activity
	out.ReviewStatus = domain.ReviewApproved
	out.CoordinatorID = &p.CoordinatorID
	out.OverrideCategoryID = p.OverrideCategoryID
	out.OverrideHours = p.OverrideHours
	out.OverrideReasoning = p.OverrideReasoning

	finalCategory := out.CategoryID
	if p.OverrideCategoryID != nil {
		finalCategory = *p.OverrideCategoryID
	}
	finalHours := out.CalculatedHours
	if p.OverrideHours != nil {
		finalHours = *p.OverrideHours
	}
	out.FinalCategoryID = &finalCategory
	out.FinalHours = &finalHours
	return &out, nil
}

func (f *fakeReviewStore) RejectSubmission(_ context.Context, _ int64, coordinatorID, reason string) (*domain.ExtractedActivity, error) {
	f.rejectReason = reason
	out := *f.activity
	out.ReviewStatus = domain.ReviewRejected
	out.CoordinatorID = &coordinatorID
	out.CoordinatorComments = &reason
	return &out, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignGet(_ context.Context, key string) (string, error) {
	return "https://minio.local/" + key, nil
}

func reviewStore() *fakeReviewStore {
	one := 1
	return &fakeReviewStore{
		submission: &domain.CertificateSubmission{
			ID: 42, StudentID: 7, ObjectKey: "certificates/2021001/abc.pdf",
			Status: domain.StatusPendingReview, SubmittedAt: time.Now(),
		},
		student: &domain.Student{ID: 7, EnrollmentNumber: "2021001", Name: "Ana Maria Silva"},
		activity: &domain.ExtractedActivity{
			ID: 5, SubmissionID: 42, StudentID: 7,
			CategoryID: 3, CalculatedHours: 40,
			ReviewStatus: domain.ReviewPending,
		},
		categories: []domain.ActivityCategory{
			{ID: 3, Name: "Cursos e minicursos", CalculationType: "ratio_hours",
				InputQuantity: &one, OutputHours: &one, MaxTotalHours: 60},
			{ID: 5, Name: "Publicações", CalculationType: "ratio_pages", MaxTotalHours: 50},
			{ID: 6, Name: "Representação estudantil", CalculationType: "fixed_per_semester", MaxTotalHours: 30},
		},
	}
}

func newTestReview(store *fakeReviewStore) *Review {
	return NewReview(store, fakePresigner{}, testMetrics())
}

func TestReviewListPending_Defaults(t *testing.T) {
	store := reviewStore()
	svc := newTestReview(store)

	_, err := svc.ListPending(context.Background(), nil, nil, 0, 0)
	require.NoError(t, err)

	require.NotNil(t, store.listStatus)
	assert.Equal(t, domain.StatusPendingReview, *store.listStatus)
	assert.Equal(t, 1, store.listPage)
	assert.Equal(t, DefaultReviewPerPage, store.listPer)
}

func TestReviewListPending_ClampsPerPage(t *testing.T) {
	store := reviewStore()
	svc := newTestReview(store)

	_, err := svc.ListPending(context.Background(), nil, nil, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, MaxReviewPerPage, store.listPer)
}

func TestReviewListPending_Entries(t *testing.T) {
	store := reviewStore()
	store.queue = &database.ReviewQueuePage{
		Items: []database.ReviewQueueItem{{
			Activity:         *store.activity,
			Submission:       *store.submission,
			StudentName:      store.student.Name,
			EnrollmentNumber: store.student.EnrollmentNumber,
		}},
		Total: 41, Page: 2, PerPage: 20,
	}
	svc := newTestReview(store)

	page, err := svc.ListPending(context.Background(), nil, nil, 2, 20)
	require.NoError(t, err)

	assert.Equal(t, 41, page.Total)
	assert.Equal(t, 3, page.Pages)
	require.Len(t, page.Entries, 1)

	entry := page.Entries[0]
	assert.Equal(t, int64(42), entry.SubmissionID)
	assert.Equal(t, "Ana Maria Silva", entry.StudentName)
	require.NotNil(t, entry.Activity.CategoryName)
	assert.Equal(t, "Cursos e minicursos", *entry.Activity.CategoryName)
	require.NotNil(t, entry.DownloadURL)
	assert.Equal(t, "https://minio.local/certificates/2021001/abc.pdf", *entry.DownloadURL)
}

func TestReviewApprove_NoOverride(t *testing.T) {
	store := reviewStore()
	svc := newTestReview(store)

	approved, err := svc.Approve(context.Background(), ApproveInput{
		SubmissionID:  42,
		CoordinatorID: "coordinator",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ReviewApproved, approved.ReviewStatus)
	require.NotNil(t, approved.FinalHours)
	assert.Equal(t, 40, *approved.FinalHours)
	assert.Nil(t, approved.OverrideHours)
}

func TestReviewApprove_Override(t *testing.T) {
	store := reviewStore()
	svc := newTestReview(store)

	hours := 20
	category := int64(5)
	reason := "certificado indica publicação, não curso"
	approved, err := svc.Approve(context.Background(), ApproveInput{
		SubmissionID:    42,
		CoordinatorID:   "coordinator",
		FinalHours:      &hours,
		FinalCategoryID: &category,
		OverrideReason:  &reason,
	})
	require.NoError(t, err)

	// Overridden approvals stay approved; the override fields carry the change.
	assert.Equal(t, domain.ReviewApproved, approved.ReviewStatus)
	require.NotNil(t, approved.FinalHours)
	assert.Equal(t, 20, *approved.FinalHours)
	require.NotNil(t, approved.FinalCategoryID)
	assert.Equal(t, int64(5), *approved.FinalCategoryID)
	require.NotNil(t, store.approveParams)
	assert.Equal(t, &hours, store.approveParams.OverrideHours)
}

func TestReviewApprove_OverrideRequiresReason(t *testing.T) {
	svc := newTestReview(reviewStore())

	hours := 20
	_, err := svc.Approve(context.Background(), ApproveInput{
		SubmissionID: 42, CoordinatorID: "coordinator", FinalHours: &hours,
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "Override reason is required")
}

func TestReviewApprove_UnknownCategory(t *testing.T) {
	svc := newTestReview(reviewStore())

	category := int64(99999)
	reason := "categoria errada"
	_, err := svc.Approve(context.Background(), ApproveInput{
		SubmissionID: 42, CoordinatorID: "coordinator",
		FinalCategoryID: &category, OverrideReason: &reason,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Category with ID 99999 does not exist")
}

func TestReviewApprove_HoursExceedCategoryMax(t *testing.T) {
	svc := newTestReview(reviewStore())

	hours := 200
	reason := "ajuste"
	_, err := svc.Approve(context.Background(), ApproveInput{
		SubmissionID: 42, CoordinatorID: "coordinator",
		FinalHours: &hours, OverrideReason: &reason,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds category maximum of 60")
}

func TestReviewApprove_CategoryOverrideWithinMax(t *testing.T) {
	store := reviewStore()
	svc := newTestReview(store)

	category := int64(5)
	reason := "certificado indica publicação, não curso"
	approved, err := svc.Approve(context.Background(), ApproveInput{
		SubmissionID:    42,
		CoordinatorID:   "coordinator",
		FinalCategoryID: &category,
		OverrideReason:  &reason,
	})
	require.NoError(t, err)

	// The calculated 40 hours are inherited and fit under the new maximum.
	require.NotNil(t, approved.FinalCategoryID)
	assert.Equal(t, int64(5), *approved.FinalCategoryID)
	require.NotNil(t, approved.FinalHours)
	assert.Equal(t, 40, *approved.FinalHours)
	assert.Nil(t, store.approveParams.OverrideHours)
}

func TestReviewApprove_CategoryOverrideInheritedHoursExceedMax(t *testing.T) {
	store := reviewStore()
	svc := newTestReview(store)

	// No hours override: the calculated 40 hours would carry over, but the
	// new category caps at 30.
	category := int64(6)
	reason := "atividade de representação"
	_, err := svc.Approve(context.Background(), ApproveInput{
		SubmissionID:    42,
		CoordinatorID:   "coordinator",
		FinalCategoryID: &category,
		OverrideReason:  &reason,
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "exceeds category maximum of 30")
	assert.Nil(t, store.approveParams)
}

func TestReviewApprove_NegativeHours(t *testing.T) {
	svc := newTestReview(reviewStore())

	hours := -1
	reason := "ajuste"
	_, err := svc.Approve(context.Background(), ApproveInput{
		SubmissionID: 42, CoordinatorID: "coordinator",
		FinalHours: &hours, OverrideReason: &reason,
	})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestReviewReject(t *testing.T) {
	store := reviewStore()
	svc := newTestReview(store)

	rejected, err := svc.Reject(context.Background(), 42, "coordinator", "Documento ilegível")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewRejected, rejected.ReviewStatus)
	assert.Equal(t, "Documento ilegível", store.rejectReason)
}

func TestReviewReject_RequiresReason(t *testing.T) {
	svc := newTestReview(reviewStore())

	_, err := svc.Reject(context.Background(), 42, "coordinator", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rejection reason is required")
}
