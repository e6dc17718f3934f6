// Package daemon exposes the course service over HTTP: module listings,
// task details, submissions and progress reads. Routing and identity are
// thin; everything consequential lives in the services behind it.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/teoneo-site/teoneo-courses/internal/cache"
	"github.com/teoneo-site/teoneo-courses/internal/config"
	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

// maxSubmissionBytes bounds submission payloads; free-text prompts are the
// largest legitimate body by far.
const maxSubmissionBytes = 64 << 10

// ProgressService is the submission and progress surface the daemon serves.
type ProgressService interface {
	Submit(ctx context.Context, userID, taskID int64, payload json.RawMessage) error
	GetProgress(ctx context.Context, userID, taskID int64) (*domain.Progress, error)
}

// CatalogService is the catalog read surface the daemon serves.
type CatalogService interface {
	TasksForModule(ctx context.Context, moduleID int64, userID *int64) ([]domain.TaskShortInfo, error)
	Task(ctx context.Context, moduleID, taskID int64, userID *int64) (*domain.Task, error)
	UserStats(ctx context.Context, userID int64) (*domain.UserStats, error)
}

// Server is the course daemon HTTP server
type Server struct {
	cfg    *config.Config
	server *http.Server
	router *http.ServeMux

	progress ProgressService
	catalog  CatalogService
	cache    cache.Cache
	verifier IdentityVerifier

	// queueConnected reports broker health for the status endpoint; nil when
	// grading runs in-process.
	queueConnected func() bool
}

// ServerConfig holds the dependencies for creating a server
type ServerConfig struct {
	Config         *config.Config
	Progress       ProgressService
	Catalog        CatalogService
	Cache          cache.Cache
	Verifier       IdentityVerifier
	QueueConnected func() bool
}

// NewServer creates the daemon server with its routes and middleware chain.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		cfg:            cfg.Config,
		router:         http.NewServeMux(),
		progress:       cfg.Progress,
		catalog:        cfg.Catalog,
		cache:          cfg.Cache,
		verifier:       cfg.Verifier,
		queueConnected: cfg.QueueConnected,
	}

	s.setupRoutes()

	handler := recoveryMiddleware(correlationIDMiddleware(loggingMiddleware(s.router)))
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Catalog
	s.router.HandleFunc("GET /v1/courses/{courseID}/modules/{moduleID}/tasks", s.handleListTasks)
	s.router.HandleFunc("GET /v1/courses/{courseID}/modules/{moduleID}/tasks/{taskID}", s.handleGetTask)

	// Progress
	s.router.HandleFunc("POST /v1/courses/{courseID}/modules/{moduleID}/tasks/{taskID}/submit", s.handleSubmit)
	s.router.HandleFunc("GET /v1/courses/{courseID}/modules/{moduleID}/tasks/{taskID}/progress", s.handleGetProgress)
	s.router.HandleFunc("GET /v1/users/me/stats", s.handleUserStats)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting course daemon", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")
	return s.server.Shutdown(ctx)
}

// Handler returns the full middleware-wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Handler implementations

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":        "running",
		"cache_dropped": s.cache.Dropped(),
	}
	if s.queueConnected != nil {
		status["queue_connected"] = s.queueConnected()
	} else {
		status["grading"] = "in-process"
	}
	s.jsonResponse(w, http.StatusOK, status)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	moduleID, err := pathID(r, "moduleID")
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid module id", err)
		return
	}

	tasks, err := s.catalog.TasksForModule(r.Context(), moduleID, s.optionalUser(r))
	if err != nil {
		s.serviceError(w, "failed to list tasks", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"module_id": moduleID,
		"tasks":     tasks,
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	moduleID, err := pathID(r, "moduleID")
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid module id", err)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid task id", err)
		return
	}

	task, err := s.catalog.Task(r.Context(), moduleID, taskID, s.optionalUser(r))
	if err != nil {
		s.serviceError(w, "failed to get task", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, task)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, err := s.verifier.UserID(r)
	if err != nil {
		s.serviceError(w, "authentication required", err)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid task id", err)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxSubmissionBytes+1))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "failed to read body", err)
		return
	}
	if len(payload) > maxSubmissionBytes {
		s.jsonError(w, http.StatusRequestEntityTooLarge, "submission too large", nil)
		return
	}
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}

	if err := s.progress.Submit(r.Context(), userID, taskID, payload); err != nil {
		s.serviceError(w, "submission failed", err)
		return
	}

	// Synchronous types already carry a terminal record here; prompt tasks
	// report the interim EVAL state until the grading worker completes.
	record, err := s.progress.GetProgress(r.Context(), userID, taskID)
	if err != nil {
		s.serviceError(w, "failed to read progress", err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, record)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := s.verifier.UserID(r)
	if err != nil {
		s.serviceError(w, "authentication required", err)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid task id", err)
		return
	}

	record, err := s.progress.GetProgress(r.Context(), userID, taskID)
	if err != nil {
		s.serviceError(w, "failed to read progress", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, record)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := s.verifier.UserID(r)
	if err != nil {
		s.serviceError(w, "authentication required", err)
		return
	}

	stats, err := s.catalog.UserStats(r.Context(), userID)
	if err != nil {
		s.serviceError(w, "failed to read stats", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

// optionalUser resolves the requesting user for endpoints that serve both
// anonymous and personalized views.
func (s *Server) optionalUser(r *http.Request) *int64 {
	userID, err := s.verifier.UserID(r)
	if err != nil {
		return nil
	}
	return &userID
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad %s", name)
	}
	return id, nil
}

// serviceError maps domain sentinels onto HTTP statuses.
func (s *Server) serviceError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, domain.ErrProgressNotFound),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrAnswerKeyNotFound):
		s.jsonError(w, http.StatusNotFound, message, err)
	case errors.Is(err, domain.ErrMaxAttemptsExceeded):
		s.jsonError(w, http.StatusConflict, message, err)
	case errors.Is(err, domain.ErrInvalidSubmission),
		errors.Is(err, domain.ErrUnknownTaskType):
		s.jsonError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, domain.ErrUnauthorized):
		s.jsonError(w, http.StatusUnauthorized, message, err)
	case errors.Is(err, domain.ErrGraderUnavailable):
		s.jsonError(w, http.StatusServiceUnavailable, message, err)
	default:
		s.jsonError(w, http.StatusInternalServerError, message, err)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}
