package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/vigil/internal/app"
)

// SessionHandler exposes the live session state.
//
//	GET  /api/session             latest update
//	POST /api/session/reset       end the session and start a fresh one
//	PUT  /api/session/monitoring  {"enabled": bool}
type SessionHandler struct {
	monitor Monitor
}

// NewSessionHandler creates a SessionHandler for the given monitor.
func NewSessionHandler(m Monitor) *SessionHandler {
	return &SessionHandler{monitor: m}
}

type sessionResponse struct {
	app.Update
	Enabled bool `json:"enabled"`
}

type monitoringRequest struct {
	Enabled *bool `json:"enabled"`
}

// ServeHTTP routes session requests.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/session")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.get(w)
	case "reset":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.reset(w)
	case "monitoring":
		if r.Method != http.MethodPut {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.setMonitoring(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SessionHandler) get(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, sessionResponse{
		Update:  h.monitor.Snapshot(),
		Enabled: h.monitor.IsEnabled(),
	})
}

func (h *SessionHandler) reset(w http.ResponseWriter) {
	if _, err := h.monitor.ResetSession(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset session")
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		Update:  h.monitor.Snapshot(),
		Enabled: h.monitor.IsEnabled(),
	})
}

func (h *SessionHandler) setMonitoring(w http.ResponseWriter, r *http.Request) {
	var req monitoringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	h.monitor.SetEnabled(*req.Enabled)
	h.get(w)
}
