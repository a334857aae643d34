// Package server provides the HTTP server for the monitoring dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/vigil/internal/logging"
	"github.com/ayusman/vigil/internal/server/api"
	"github.com/ayusman/vigil/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Monitor   api.Monitor
	Logger    *zap.Logger
}

// Server represents the HTTP server for the dashboard.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	live   *LiveHub
	stream *StreamHandler
	logger *zap.Logger
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := logging.OrNop(config.Logger).Named("server")

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		stream: NewStreamHandler(DefaultStreamInterval),
		logger: logger,
	}

	var snapshot SnapshotFunc
	if config.Monitor != nil {
		snapshot = config.Monitor.Snapshot
	}
	s.live = NewLiveHub(snapshot, logger)

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/live", s.live)
	s.mux.Handle("/api/stream", s.stream)

	if s.config.Monitor != nil {
		sessionHandler := api.NewSessionHandler(s.config.Monitor)
		s.mux.Handle("/api/session", sessionHandler)
		s.mux.Handle("/api/session/", sessionHandler)
	}

	if s.config.Store != nil {
		history := api.NewHistoryHandler(s.config.Store, s.config.Monitor)
		s.mux.HandleFunc("/api/events", history.Events)
		s.mux.HandleFunc("/api/reports", history.Reports)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Live returns the websocket hub. Register it as an app sink.
func (s *Server) Live() *LiveHub {
	return s.live
}

// Stream returns the MJPEG handler. Register it as an app frame sink.
func (s *Server) Stream() *StreamHandler {
	return s.stream
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"clients": s.live.Clients(),
		"viewers": s.stream.Viewers(),
	}
	if s.config.Monitor != nil {
		snap := s.config.Monitor.Snapshot()
		response["session_id"] = snap.SessionID
		response["state"] = snap.State
		response["monitoring"] = s.config.Monitor.IsEnabled()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
// It returns nil after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes live connections and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.live.Close()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
