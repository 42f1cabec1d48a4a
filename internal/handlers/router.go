package handlers

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/complementa/backend/internal/service"
)

// Services bundles the application services the HTTP surface exposes.
type Services struct {
	Students *service.Students
	Intake   *service.Intake
	Status   *service.StatusReader
	Review   *service.Review
}

// NewRouter builds the full route table under /api/v1 plus the /health and
// /metrics endpoints.
func NewRouter(svc Services, healthChecks map[string]HealthChecker) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck(healthChecks)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", healthCheck(healthChecks)).Methods("GET")

	api.HandleFunc("/student/register", registerStudent(svc.Students)).Methods("POST")
	api.HandleFunc("/student/{enrollment_number}", getStudent(svc.Students)).Methods("GET")
	api.HandleFunc("/student/{enrollment_number}", updateStudent(svc.Students)).Methods("PUT")

	api.HandleFunc("/certificate/submit", submitCertificate(svc.Intake)).Methods("POST")
	api.HandleFunc("/certificate/status/{id}", submissionStatus(svc.Status)).Methods("GET")
	api.HandleFunc("/certificate/student/{enrollment_number}/submissions", studentSubmissions(svc.Status)).Methods("GET")

	api.HandleFunc("/coordinator/pending", pendingSubmissions(svc.Review)).Methods("GET")
	api.HandleFunc("/coordinator/submission/{id}", submissionDetail(svc.Review)).Methods("GET")
	api.HandleFunc("/coordinator/approve/{id}", approveSubmission(svc.Review)).Methods("POST")
	api.HandleFunc("/coordinator/reject/{id}", rejectSubmission(svc.Review)).Methods("POST")

	router.Use(corsMiddleware)
	router.Use(loggingMiddleware)

	return router
}
