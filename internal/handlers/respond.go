// Package handlers exposes the HTTP surface: student registration,
// certificate intake and status, the coordinator review API, health and
// metrics.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/complementa/backend/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// writeDomainError maps service errors onto HTTP statuses. Duplicate files
// get a 409 carrying the prior submission for the client to show.
func writeDomainError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var duplicate *domain.DuplicateFileError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &conflict):
		writeError(w, http.StatusBadRequest, conflict.Message)
	case errors.As(err, &duplicate):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":                    "Duplicate file detected",
			"message":                  "This file has already been submitted",
			"existing_submission_id":   duplicate.SubmissionID,
			"existing_submission_date": duplicate.SubmittedAt,
		})
	case errors.Is(err, domain.ErrUploadFailed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrQueueFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
