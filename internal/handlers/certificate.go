package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/complementa/backend/internal/config"
	"github.com/complementa/backend/internal/domain"
	"github.com/complementa/backend/internal/service"
	"github.com/complementa/backend/internal/storage"
)

// submitCertificate handles POST /api/v1/certificate/submit: a multipart
// upload with fields "file" and "enrollment_number". The request body is
// capped at the configured upload limit; oversized bodies get a 413.
func submitCertificate(intake *service.Intake) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)

		if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "File exceeds the 16 MiB upload limit")
				return
			}
			writeError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "No file provided")
			return
		}
		defer file.Close()

		if header.Filename == "" {
			writeError(w, http.StatusBadRequest, "No file selected")
			return
		}
		if !allowedFile(header.Filename, config.AllowedExtensions) {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("File type not allowed. Allowed types: %s", extensionList(config.AllowedExtensions)))
			return
		}

		enrollment := r.FormValue("enrollment_number")
		if enrollment == "" {
			writeError(w, http.StatusBadRequest, "enrollment_number is required")
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "File exceeds the 16 MiB upload limit")
				return
			}
			writeError(w, http.StatusBadRequest, "Could not read uploaded file")
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = storage.ContentTypeFor(storage.Extension(header.Filename))
		}

		receipt, err := intake.Submit(r.Context(), content, header.Filename, enrollment, mimeType)
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Student not found or invalid")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, receipt)
	}
}

// submissionStatus handles GET /api/v1/certificate/status/{id}.
func submissionStatus(reader *service.StatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid submission id")
			return
		}

		view, err := reader.SubmissionStatus(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// studentSubmissions handles
// GET /api/v1/certificate/student/{enrollment_number}/submissions.
func studentSubmissions(reader *service.StatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enrollment := mux.Vars(r)["enrollment_number"]

		var status *domain.Status
		if raw := r.URL.Query().Get("status"); raw != "" {
			st := domain.Status(raw)
			status = &st
		}
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid limit")
				return
			}
			limit = n
		}

		listing, err := reader.StudentSubmissions(r.Context(), enrollment, status, limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listing)
	}
}

func allowedFile(filename string, allowed map[string]bool) bool {
	if !strings.Contains(filename, ".") {
		return false
	}
	return allowed[storage.Extension(filename)]
}

func extensionList(allowed map[string]bool) string {
	exts := make([]string, 0, len(allowed))
	for ext := range allowed {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
