package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/vigil/internal/store"
)

// HistoryHandler serves the in-memory event log and incident reports.
// Both endpoints default to the current session when no session is given.
type HistoryHandler struct {
	store   *store.Store
	monitor Monitor
}

// NewHistoryHandler creates a HistoryHandler. The monitor may be nil, in which
// case a session query parameter is required.
func NewHistoryHandler(s *store.Store, m Monitor) *HistoryHandler {
	return &HistoryHandler{store: s, monitor: m}
}

type listEventsResponse struct {
	SessionID string         `json:"session_id"`
	Events    []*store.Event `json:"events"`
}

type listReportsResponse struct {
	SessionID string          `json:"session_id"`
	Reports   []*store.Report `json:"reports"`
}

// sessionID resolves the session query parameter.
func (h *HistoryHandler) sessionID(r *http.Request) string {
	if id := r.URL.Query().Get("session"); id != "" {
		return id
	}
	if h.monitor != nil {
		return h.monitor.Snapshot().SessionID
	}
	return ""
}

// Events handles GET /api/events?session=&kind=.
func (h *HistoryHandler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := h.sessionID(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, "session is required")
		return
	}

	var (
		events []*store.Event
		err    error
	)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		events, err = h.store.Events().ListByKind(id, kind)
	} else {
		events, err = h.store.Events().ListBySession(id)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if events == nil {
		events = []*store.Event{}
	}

	writeJSON(w, http.StatusOK, listEventsResponse{SessionID: id, Events: events})
}

// Reports handles GET /api/reports?session=&episode=.
func (h *HistoryHandler) Reports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := h.sessionID(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, "session is required")
		return
	}

	if ep := r.URL.Query().Get("episode"); ep != "" {
		episode, err := strconv.Atoi(ep)
		if err != nil || episode < 1 {
			writeError(w, http.StatusBadRequest, "episode must be a positive integer")
			return
		}
		h.reportByEpisode(w, id, episode)
		return
	}

	reports, err := h.store.Reports().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}
	if reports == nil {
		reports = []*store.Report{}
	}

	writeJSON(w, http.StatusOK, listReportsResponse{SessionID: id, Reports: reports})
}

func (h *HistoryHandler) reportByEpisode(w http.ResponseWriter, sessionID string, episode int) {
	rep, err := h.store.Reports().GetByEpisode(sessionID, episode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Report not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
