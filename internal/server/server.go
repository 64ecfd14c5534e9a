// Package server provides the debug and monitoring HTTP server for the
// lane controller.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/evzhukov/lanekeeper/internal/app"
	"github.com/evzhukov/lanekeeper/internal/telemetry"
)

// Controller is the read-only view of the running controller the server
// exposes. It is never written through.
type Controller interface {
	Snapshot() app.Snapshot
	IsEnabled() bool
	SessionID() string
}

// Config holds the server configuration.
type Config struct {
	Store      *telemetry.Store
	Controller Controller
}

// Server serves the debug endpoints.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		sessionsHandler := NewSessionsHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessionsHandler)
		s.mux.Handle("/api/sessions/", sessionsHandler)
	}

	if s.config.Controller != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Controller))
		s.mux.Handle("/api/telemetry", NewTelemetryHandler(s.config.Controller))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Controller != nil {
		response["enabled"] = s.config.Controller.IsEnabled()
		response["session_id"] = s.config.Controller.SessionID()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// SessionsHandler serves telemetry session listings and summaries.
type SessionsHandler struct {
	store *telemetry.Store
}

// NewSessionsHandler creates a new SessionsHandler backed by the store.
func NewSessionsHandler(store *telemetry.Store) *SessionsHandler {
	return &SessionsHandler{store: store}
}

// ServeHTTP routes session requests:
//
//	GET /api/sessions             -> list sessions
//	GET /api/sessions/{id}/stats  -> summary for one session
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		h.handleList(w)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) == 2 && parts[1] == "stats" {
		h.handleStats(w, parts[0])
		return
	}

	http.NotFound(w, r)
}

func (h *SessionsHandler) handleList(w http.ResponseWriter) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessions)
}

func (h *SessionsHandler) handleStats(w http.ResponseWriter, sessionID string) {
	summary, err := h.store.Frames().SummaryBySession(sessionID)
	if err != nil {
		http.Error(w, "Failed to summarize session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
