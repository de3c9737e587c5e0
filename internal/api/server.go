// Package api exposes the operational HTTP surface of the pipeline.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/drive-search/pipeline/internal/dedup"
	"github.com/drive-search/pipeline/internal/runner"
)

// Server is the HTTP API server for the pipeline.
type Server struct {
	router  chi.Router
	runners []*runner.Runner
	index   dedup.Index
	log     *slog.Logger
	apiKey  string
}

// NewServer creates and configures the HTTP server. An empty apiKey
// leaves the /api endpoints unauthenticated.
func NewServer(runners []*runner.Runner, index dedup.Index, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		runners: runners,
		index:   index,
		log:     log,
		apiKey:  apiKey,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(AuthMiddleware(s.apiKey, s.log))
		}

		r.Get("/api/runners", s.handleListRunners)
		r.Get("/api/runners/{name}", s.handleRunner)
		r.Get("/api/dedup", s.handleDedup)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleListRunners(w http.ResponseWriter, r *http.Request) {
	snaps := make([]runner.Snapshot, 0, len(s.runners))
	for _, rn := range s.runners {
		snaps = append(snaps, rn.Snapshot())
	}
	writeJSON(w, map[string]any{"runners": snaps})
}

func (s *Server) handleRunner(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, rn := range s.runners {
		snap := rn.Snapshot()
		if snap.Name == name {
			writeJSON(w, snap)
			return
		}
	}
	jsonError(w, "runner not found", http.StatusNotFound)
}

func (s *Server) handleDedup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"trackedFiles": s.index.Len()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
