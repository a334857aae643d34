// Package api provides the HTTP API handlers for the monitoring dashboard.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/vigil/internal/app"
)

// Monitor is the part of the running application the API exposes.
type Monitor interface {
	Snapshot() app.Update
	ResetSession() (*app.Session, error)
	IsEnabled() bool
	SetEnabled(enabled bool)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
