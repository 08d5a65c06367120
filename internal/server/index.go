package server

import (
	"net/http"

	"github.com/cwbudde/gradual/internal/objective"
)

// Endpoint describes one API route for the index page.
type Endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var endpoints = []Endpoint{
	{http.MethodGet, "/api/v1/objectives", "list the objective catalogue"},
	{http.MethodPost, "/api/v1/gradient", "evaluate value and gradient of an objective at a point"},
	{http.MethodPost, "/api/v1/jobs", "start a background minimisation"},
	{http.MethodGet, "/api/v1/jobs", "list jobs"},
	{http.MethodGet, "/api/v1/jobs/{id}", "job status"},
	{http.MethodGet, "/api/v1/jobs/{id}/stream", "job progress as server-sent events"},
	{http.MethodGet, "/api/v1/runs", "list persisted runs"},
	{http.MethodGet, "/api/v1/runs/{id}", "persisted run record"},
}

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service":    "gradual",
		"objectives": objective.Names(),
		"jobs":       len(s.jobManager.ListJobs()),
		"persistent": s.runStore != nil,
		"endpoints":  endpoints,
	})
}
