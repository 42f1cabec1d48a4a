package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is any adapter that can report its own liveness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

const healthCheckTimeout = 5 * time.Second

// healthCheck handles GET /health. The service reports healthy as long as it
// is serving; each adapter's connectivity is reported individually.
func healthCheck(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		adapters := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.HealthCheck(ctx); err != nil {
				adapters[name] = "error: " + err.Error()
			} else {
				adapters[name] = "connected"
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "healthy",
			"service":  "complementa-api",
			"adapters": adapters,
		})
	}
}
