package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/complementa/backend/internal/service"
)

// registerStudent handles POST /api/v1/student/register.
func registerStudent(students *service.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			EnrollmentNumber string  `json:"enrollment_number"`
			Name             string  `json:"name"`
			Email            *string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		student, err := students.Register(r.Context(), req.EnrollmentNumber, req.Name, req.Email)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, student)
	}
}

// getStudent handles GET /api/v1/student/{enrollment_number}.
func getStudent(students *service.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enrollment := mux.Vars(r)["enrollment_number"]

		student, err := students.Get(r.Context(), enrollment)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, student)
	}
}

// updateStudent handles PUT /api/v1/student/{enrollment_number}.
func updateStudent(students *service.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enrollment := mux.Vars(r)["enrollment_number"]

		var req struct {
			Name  *string `json:"name"`
			Email *string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		student, err := students.Update(r.Context(), enrollment, req.Name, req.Email)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, student)
	}
}
