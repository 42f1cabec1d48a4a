package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complementa/backend/internal/database"
	"github.com/complementa/backend/internal/domain"
	"github.com/complementa/backend/internal/metrics"
	"github.com/complementa/backend/internal/service"
)

// coordinatorStore is a canned ReviewStore holding one pending submission.
type coordinatorStore struct {
	activity   *domain.ExtractedActivity
	submission *domain.CertificateSubmission
	student    *domain.Student
	categories []domain.ActivityCategory

	approved *database.ApprovalParams
	rejected string
}

func newCoordinatorStore() *coordinatorStore {
	one := 1
	return &coordinatorStore{
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
		},
	}
}

func (s *coordinatorStore) ListReviewQueue(_ context.Context, status *domain.Status, _ *string, page, perPage int) (*database.ReviewQueuePage, error) {
	items := []database.ReviewQueueItem{}
	if status == nil || *status == s.submission.Status {
		items = append(items, database.ReviewQueueItem{
			Activity:         *s.activity,
			Submission:       *s.submission,
			StudentName:      s.student.Name,
			EnrollmentNumber: s.student.EnrollmentNumber,
		})
	}
	return &database.ReviewQueuePage{Items: items, Total: len(items), Page: page, PerPage: perPage}, nil
}

func (s *coordinatorStore) SubmissionByID(_ context.Context, id int64) (*domain.CertificateSubmission, error) {
	if id != s.submission.ID {
		return nil, domain.ErrNotFound
	}
	return s.submission, nil
}

func (s *coordinatorStore) StudentByID(_ context.Context, id int64) (*domain.Student, error) {
	if id != s.student.ID {
		return nil, domain.ErrNotFound
	}
	return s.student, nil
}

func (s *coordinatorStore) OcrTextBySubmission(context.Context, int64) (*domain.CertificateOcrText, error) {
	return nil, domain.ErrNotFound
}

func (s *coordinatorStore) MetadataBySubmission(context.Context, int64) (*domain.CertificateMetadata, error) {
	return nil, domain.ErrNotFound
}

func (s *coordinatorStore) ActivityBySubmission(_ context.Context, submissionID int64) (*domain.ExtractedActivity, error) {
	if submissionID != s.activity.SubmissionID {
		return nil, domain.ErrNotFound
	}
	return s.activity, nil
}

func (s *coordinatorStore) ListCategories(context.Context) ([]domain.ActivityCategory, error) {
	return s.categories, nil
}

func (s *coordinatorStore) CategoryByID(_ context.Context, id int64) (*domain.ActivityCategory, error) {
	for i := range s.categories {
		if s.categories[i].ID == id {
			return &s.categories[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *coordinatorStore) ApproveSubmission(_ context.Context, p database.ApprovalParams) (*domain.ExtractedActivity, error) {
	s.approved = &p
	out := *s.activity
	out.ReviewStatus = domain.ReviewApproved
	hours := out.CalculatedHours
	if p.OverrideHours != nil {
		hours = *p.OverrideHours
	}
	out.FinalHours = &hours
	return &out, nil
}

func (s *coordinatorStore) RejectSubmission(_ context.Context, _ int64, _, reason string) (*domain.ExtractedActivity, error) {
	s.rejected = reason
	out := *s.activity
	out.ReviewStatus = domain.ReviewRejected
	return &out, nil
}

type noopPresigner struct{}

func (noopPresigner) PresignGet(_ context.Context, key string) (string, error) {
	return "https://minio.local/" + key, nil
}

func coordinatorRouter(store *coordinatorStore) *mux.Router {
	review := service.NewReview(store, noopPresigner{}, metrics.New(prometheus.NewRegistry()))
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/coordinator/pending", pendingSubmissions(review)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/coordinator/submission/{id}", submissionDetail(review)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/coordinator/approve/{id}", approveSubmission(review)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/coordinator/reject/{id}", rejectSubmission(review)).Methods(http.MethodPost)
	return r
}

func doRequest(t *testing.T, router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPendingSubmissions(t *testing.T) {
	router := coordinatorRouter(newCoordinatorStore())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/coordinator/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])

	pagination, ok := body["pagination"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), pagination["page"])
	assert.Equal(t, float64(20), pagination["per_page"])
	assert.Equal(t, float64(1), pagination["total"])

	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	entry := data[0].(map[string]any)
	assert.Equal(t, float64(42), entry["submission_id"])
	assert.Equal(t, "Ana Maria Silva", entry["student_name"])
}

func TestPendingSubmissions_InvalidPage(t *testing.T) {
	router := coordinatorRouter(newCoordinatorStore())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/coordinator/pending?page=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmissionDetail(t *testing.T) {
	router := coordinatorRouter(newCoordinatorStore())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/coordinator/submission/42", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	submission, ok := body["submission"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(42), submission["id"])
	assert.Contains(t, body["download_url"], "certificates/2021001/abc.pdf")
}

func TestSubmissionDetail_NotFound(t *testing.T) {
	router := coordinatorRouter(newCoordinatorStore())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/coordinator/submission/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveSubmission_EmptyBody(t *testing.T) {
	store := newCoordinatorStore()
	router := coordinatorRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coordinator/approve/42", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(40), body["final_hours"])
	require.NotNil(t, store.approved)
	assert.Equal(t, "coordinator", store.approved.CoordinatorID)
	assert.Nil(t, store.approved.OverrideHours)
}

func TestApproveSubmission_WithOverride(t *testing.T) {
	store := newCoordinatorStore()
	router := coordinatorRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coordinator/approve/42",
		`{"final_hours": 20, "override_reason": "carga horária incorreta no certificado"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(20), body["final_hours"])
	require.NotNil(t, store.approved.OverrideHours)
	assert.Equal(t, 20, *store.approved.OverrideHours)
}

func TestApproveSubmission_OverrideWithoutReason(t *testing.T) {
	router := coordinatorRouter(newCoordinatorStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coordinator/approve/42",
		`{"final_hours": 20}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "Override reason is required")
}

func TestApproveSubmission_NonJSONBody(t *testing.T) {
	router := coordinatorRouter(newCoordinatorStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coordinator/approve/42", "not json at all")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body must be JSON or empty", decodeBody(t, rec)["error"])
}

func TestApproveSubmission_UnknownCategory(t *testing.T) {
	router := coordinatorRouter(newCoordinatorStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coordinator/approve/42",
		`{"final_category_id": 99999, "override_reason": "recategorizar"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Category with ID 99999 does not exist", decodeBody(t, rec)["error"])
}

func TestRejectSubmission(t *testing.T) {
	store := newCoordinatorStore()
	router := coordinatorRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coordinator/reject/42",
		`{"reason": "Documento ilegível"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Documento ilegível", body["reason"])
	assert.Equal(t, "Documento ilegível", store.rejected)
}

func TestRejectSubmission_MissingReason(t *testing.T) {
	router := coordinatorRouter(newCoordinatorStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coordinator/reject/42", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Rejection reason is required", decodeBody(t, rec)["error"])

	rec = doRequest(t, router, http.MethodPost, "/api/v1/coordinator/reject/42", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
