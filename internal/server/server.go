package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/gradual/grad"
	"github.com/cwbudde/gradual/internal/objective"
	"github.com/cwbudde/gradual/internal/runner"
	"github.com/cwbudde/gradual/internal/store"
	"github.com/cwbudde/gradual/vector"
)

const (
	defaultProgressInterval = 500 * time.Millisecond // Throttle to 2 updates per second
	defaultPingInterval     = 30 * time.Second
)

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	runStore   store.Store
	addr       string
	server     *http.Server

	progressInterval time.Duration
	pingInterval     time.Duration
}

// NewServer creates a new HTTP server. runStore may be nil, in which case
// finished jobs are kept in memory only.
func NewServer(addr string, runStore store.Store) *Server {
	s := &Server{
		jobManager:       NewJobManager(),
		runStore:         runStore,
		addr:             addr,
		progressInterval: defaultProgressInterval,
		pingInterval:     defaultPingInterval,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed and wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)

	mux.HandleFunc("/api/v1/objectives", s.handleObjectives)
	mux.HandleFunc("/api/v1/gradient", s.handleGradient)
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/runs/", s.handleRunWithID)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("Starting HTTP server", "addr", s.addr, "persistent", s.runStore != nil)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", "running_jobs", len(s.jobManager.GetRunningJobs()))
	return s.server.Shutdown(ctx)
}

// handleObjectives handles GET /api/v1/objectives
func (s *Server) handleObjectives(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all := objective.All()
	infos := make([]objective.Info, len(all))
	for i, o := range all {
		infos[i] = o.ToInfo()
	}
	writeJSON(w, http.StatusOK, infos)
}

// GradientRequest is the body of POST /api/v1/gradient
type GradientRequest struct {
	Objective string    `json:"objective"`
	Point     []float64 `json:"point"`
}

// GradientResponse is the reply to POST /api/v1/gradient
type GradientResponse struct {
	Objective string    `json:"objective"`
	Point     []float64 `json:"point"`
	Gradient  []float64 `json:"gradient"`
	Norm      float64   `json:"norm"`
	Value     float64   `json:"value"`
}

// handleGradient handles POST /api/v1/gradient
func (s *Server) handleGradient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GradientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	obj, err := objective.Lookup(req.Objective)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err := objective.Check(obj, len(req.Point)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pt := vector.FromSlice(req.Point)
	g := grad.Gradient(obj.Dual, pt)
	resp := GradientResponse{
		Objective: obj.Name,
		Point:     req.Point,
		Gradient:  g.Slice(),
		Norm:      g.Norm(),
		Value:     grad.Value(obj.Dual, pt),
	}
	if !g.IsFinite() || !finite(resp.Value) {
		http.Error(w, "objective is not finite at this point", http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := parts[0]

	switch {
	case len(parts) == 1 || parts[1] == "status":
		s.handleGetJobStatus(w, r, jobID)
	case parts[1] == "stream":
		s.handleJobStream(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	config := store.DefaultRunConfig()
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	// Resolve once up front so bad requests fail here rather than in the worker
	if _, err := runner.NewPlan(config); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, objective.ErrUnknownObjective) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	job := s.jobManager.CreateJob(config)

	go runJob(context.Background(), s.jobManager, s.runStore, job.ID, s.progressInterval)

	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// JobStatus is the reply to GET /api/v1/jobs/:id
type JobStatus struct {
	Job
	Elapsed float64 `json:"elapsed"`
	// IterationsPerSecond is the update throughput so far
	IterationsPerSecond float64 `json:"iterationsPerSecond"`
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	ips := float64(0)
	if elapsed.Seconds() > 0 {
		ips = float64(job.Iterations) / elapsed.Seconds()
	}

	writeJSON(w, http.StatusOK, JobStatus{
		Job:                 job,
		Elapsed:             elapsed.Seconds(),
		IterationsPerSecond: ips,
	})
}

// handleRuns handles GET /api/v1/runs
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.runStore == nil {
		writeJSON(w, http.StatusOK, []store.RunInfo{})
		return
	}

	infos, err := s.runStore.ListRecords()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list runs: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleRunWithID handles GET /api/v1/runs/:id
func (s *Server) handleRunWithID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/runs/"), "/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}
	if s.runStore == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	record, err := s.runStore.LoadRecord(id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load run: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
