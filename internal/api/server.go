package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"taskboard/pkg/suggest"
	"taskboard/pkg/task"
	"taskboard/pkg/tracker"
)

const maxBodyBytes = 1 << 20

// Server is the HTTP API server.
type Server struct {
	svc *tracker.Service
	log *log.Logger
	mux *http.ServeMux
}

// New creates a new Server.
func New(svc *tracker.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		svc: svc,
		log: logger,
		mux: http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
}

func (s *Server) routes() {
	// Tasks
	s.mux.HandleFunc("GET /api/tasks", s.handleTaskList)
	s.mux.HandleFunc("POST /api/tasks", s.handleTaskCreate)
	s.mux.HandleFunc("POST /api/tasks/generate", s.handleTaskGenerate)
	s.mux.HandleFunc("GET /api/tasks/{id}", s.handleTaskGet)
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.handleTaskUpdate)
	s.mux.HandleFunc("PUT /api/tasks/{id}", s.handleTaskUpdate)
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.handleTaskDelete)

	// Subtasks
	s.mux.HandleFunc("POST /api/tasks/{id}/subtasks", s.handleSubtaskCreate)
	s.mux.HandleFunc("GET /api/tasks/{id}/subtasks/{subtaskId}", s.handleSubtaskGet)
	s.mux.HandleFunc("PATCH /api/tasks/{id}/subtasks/{subtaskId}", s.handleSubtaskUpdate)
	s.mux.HandleFunc("PUT /api/tasks/{id}/subtasks/{subtaskId}", s.handleSubtaskUpdate)
	s.mux.HandleFunc("DELETE /api/tasks/{id}/subtasks/{subtaskId}", s.handleSubtaskDelete)

	// Reports
	s.mux.HandleFunc("GET /api/reports/status", s.handleReportStatus)
	s.mux.HandleFunc("GET /api/reports/assignees", s.handleReportAssignees)

	// Directory and suggestions
	s.mux.HandleFunc("GET /api/users", s.handleUsers)
	s.mux.HandleFunc("POST /api/suggestions", s.handleSuggest)

	// System
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/events/stream", s.handleEventStream)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// decodeJSON reads the request body into v. Decode failures are
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, task.ErrValidation) {
			return err
		}
		return &task.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, task.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, task.ErrDuplicateID), errors.Is(err, task.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, task.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, task.ErrStoreUnavailable), errors.Is(err, tracker.ErrSuggestionsDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, suggest.ErrUpstreamFormat), errors.Is(err, suggest.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("write json", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
