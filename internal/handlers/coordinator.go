package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/complementa/backend/internal/domain"
	"github.com/complementa/backend/internal/service"
)

// defaultCoordinatorID is recorded when the client does not identify the
// reviewer. Authentication is out of scope of this service.
const defaultCoordinatorID = "coordinator"

// pendingSubmissions handles GET /api/v1/coordinator/pending.
func pendingSubmissions(review *service.Review) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page := 1
		if raw := q.Get("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "Invalid page")
				return
			}
			page = n
		}
		perPage := 0
		if raw := q.Get("per_page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "Invalid per_page")
				return
			}
			perPage = n
		}

		var enrollment *string
		if raw := q.Get("enrollment"); raw != "" {
			enrollment = &raw
		}
		var status *domain.Status
		if raw := q.Get("status"); raw != "" {
			st := domain.Status(raw)
			status = &st
		}

		queue, err := review.ListPending(r.Context(), status, enrollment, page, perPage)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    queue.Entries,
			"pagination": map[string]any{
				"page":     queue.Page,
				"per_page": queue.PerPage,
				"total":    queue.Total,
				"pages":    queue.Pages,
			},
		})
	}
}

// submissionDetail handles GET /api/v1/coordinator/submission/{id}.
func submissionDetail(review *service.Review) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid submission id")
			return
		}

		detail, err := review.Detail(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// approveSubmission handles POST /api/v1/coordinator/approve/{id}. The body
// is optional JSON with final_hours, final_category_id and override_reason.
func approveSubmission(review *service.Review) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid submission id")
			return
		}

		var req struct {
			FinalHours      *int    `json:"final_hours"`
			FinalCategoryID *int64  `json:"final_category_id"`
			OverrideReason  *string `json:"override_reason"`
			CoordinatorID   string  `json:"coordinator_id"`
			Comments        *string `json:"comments"`
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Could not read request body")
			return
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				writeError(w, http.StatusBadRequest, "Request body must be JSON or empty")
				return
			}
		}
		if req.CoordinatorID == "" {
			req.CoordinatorID = defaultCoordinatorID
		}

		activity, err := review.Approve(r.Context(), service.ApproveInput{
			SubmissionID:    id,
			CoordinatorID:   req.CoordinatorID,
			Comments:        req.Comments,
			FinalHours:      req.FinalHours,
			FinalCategoryID: req.FinalCategoryID,
			OverrideReason:  req.OverrideReason,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"message":       "Submission approved successfully",
			"submission_id": id,
			"final_hours":   activity.FinalHours,
		})
	}
}

// rejectSubmission handles POST /api/v1/coordinator/reject/{id}. The body
// must be JSON with a non-empty reason.
func rejectSubmission(review *service.Review) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid submission id")
			return
		}

		var req struct {
			Reason        string `json:"reason"`
			CoordinatorID string `json:"coordinator_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
			if err != nil && !errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, "Request body must be JSON or empty")
				return
			}
			writeError(w, http.StatusBadRequest, "Rejection reason is required")
			return
		}
		if req.CoordinatorID == "" {
			req.CoordinatorID = defaultCoordinatorID
		}

		_, err = review.Reject(r.Context(), id, req.CoordinatorID, req.Reason)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"message":       "Submission rejected",
			"submission_id": id,
			"reason":        req.Reason,
		})
	}
}
