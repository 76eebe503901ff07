// Package server provides the HTTP server for the asana pose checker.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/asana/internal/server/api"
	"github.com/ayusman/asana/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Checker   api.Checker
	UploadDir string
	// MaxUploadBytes bounds POST /api/checks bodies; zero uses api.DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// Server represents the HTTP server for the pose checker.
type Server struct {
	config   Config
	mux      *http.ServeMux
	verdicts *VerdictHub
	start    time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config:   config,
		mux:      http.NewServeMux(),
		verdicts: NewVerdictHub(),
		start:    time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	checkHandler := api.NewCheckHandler(s.config.Checker, s.config.Store, s.config.UploadDir, s.config.MaxUploadBytes)
	s.mux.Handle("/api/checks", checkHandler)
	s.mux.Handle("/api/checks/", checkHandler)

	// Live verdict feed; the exact pattern wins over the /api/checks/ subtree
	s.mux.Handle("/api/checks/live", s.verdicts)

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// Verdicts returns the hub that pushes check results to live clients.
func (s *Server) Verdicts() *VerdictHub {
	return s.verdicts
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

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status":  "ok",
		"uptime":  uptime.String(),
		"history": s.config.Store != nil,
		"clients": s.verdicts.ClientCount(),
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
