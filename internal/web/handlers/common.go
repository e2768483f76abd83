package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// dayParam reads the date query parameter (ISO format). An absent value means
// today; a malformed value is reported to the caller.
func dayParam(r *http.Request) (string, bool) {
	day := r.URL.Query().Get("date")
	if day == "" {
		return ledger.Today(), true
	}
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return "", false
	}
	return day, true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
