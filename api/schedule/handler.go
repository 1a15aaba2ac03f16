// Package schedule exposes the asynchronous scheduling API over HTTP.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/alphapile/pilesched/core/planner"
	"github.com/alphapile/pilesched/core/tasks"
	"github.com/alphapile/pilesched/infra/logger"
	"github.com/alphapile/pilesched/pkg/export"
)

// Version is reported by the info endpoint.
const Version = "1.0.0"

// TaskService queues requests and reports their state. *tasks.Runner
// implements it.
type TaskService interface {
	Submit(ctx context.Context, req planner.Request) (tasks.Task, error)
	Get(ctx context.Context, id string) (tasks.Task, error)
}

// Options configure NewHandler.
type Options struct {
	// Token enables bearer authentication on /schedule routes when set.
	Token string
	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string
	// MaxBodyBytes bounds request bodies; zero means no limit.
	MaxBodyBytes int64
	// Metrics is served under MetricsPath when both are set.
	Metrics     http.Handler
	MetricsPath string
	Log         logger.Logger
}

// SubmitResponse acknowledges a queued request.
type SubmitResponse struct {
	TaskID  string       `json:"task_id"`
	Status  tasks.Status `json:"status"`
	Message string       `json:"message"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}

type handler struct {
	svc  TaskService
	opts Options
	log  logger.Logger
}

// NewHandler returns the API router:
//
//	GET  /                       service info
//	POST /schedule               queue a request
//	GET  /schedule/{id}          task state and result
//	GET  /schedule/{id}/export   schedule as json or csv
//	GET  /schedule/{id}/chart    HTML chart of the schedule
func NewHandler(svc TaskService, opts Options) http.Handler {
	h := &handler{svc: svc, opts: opts, log: opts.Log}
	if h.log == nil {
		h.log = logger.NopLogger{}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.info)
	mux.Handle("POST /schedule", h.auth(http.HandlerFunc(h.submit)))
	mux.Handle("GET /schedule/{id}", h.auth(http.HandlerFunc(h.status)))
	mux.Handle("GET /schedule/{id}/export", h.auth(http.HandlerFunc(h.export)))
	mux.Handle("GET /schedule/{id}/chart", h.auth(http.HandlerFunc(h.chart)))
	if opts.Metrics != nil && opts.MetricsPath != "" {
		mux.Handle("GET "+opts.MetricsPath, opts.Metrics)
	}
	return cors(opts.AllowedOrigins, mux)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail any) {
	writeJSON(w, code, errorResponse{Detail: detail})
}

func (h *handler) info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Pile construction scheduling API",
		"version": Version,
	})
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	if h.opts.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
	}
	var req planner.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		var verr *planner.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusUnprocessableEntity, verr.Fields)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	task, err := h.svc.Submit(r.Context(), req)
	switch {
	case errors.Is(err, tasks.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, "all workers busy, retry later")
		return
	case err != nil:
		h.log.Errorf("submit: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	h.log.Infof("task %s queued: %d piles on %d machines", task.ID, len(req.Piles), req.NumMachines)
	writeJSON(w, http.StatusAccepted, SubmitResponse{
		TaskID:  task.ID,
		Status:  task.Status,
		Message: "task created and queued for processing",
	})
}

// lookup writes the error response itself and returns false when the task
// cannot be served.
func (h *handler) lookup(w http.ResponseWriter, r *http.Request) (tasks.Task, bool) {
	id := r.PathValue("id")
	task, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, tasks.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("task %s not found", id))
		return tasks.Task{}, false
	}
	if err != nil {
		h.log.Errorf("get task %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to read task")
		return tasks.Task{}, false
	}
	return task, true
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	task, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// completed additionally requires a finished task with a result.
func (h *handler) completed(w http.ResponseWriter, r *http.Request) (tasks.Task, bool) {
	task, ok := h.lookup(w, r)
	if !ok {
		return task, false
	}
	if task.Status != tasks.Completed || task.Result == nil {
		writeError(w, http.StatusConflict, fmt.Sprintf("task %s is %s, no schedule available", task.ID, task.Status))
		return task, false
	}
	return task, true
}

func (h *handler) export(w http.ResponseWriter, r *http.Request) {
	task, ok := h.completed(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="schedule-%s.json"`, task.ID))
		if err := export.WriteJSON(w, task.Result.Schedule); err != nil {
			h.log.Errorf("export %s: %v", task.ID, err)
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="schedule-%s.csv"`, task.ID))
		if err := export.WriteCSV(w, task.Result.Schedule); err != nil {
			h.log.Errorf("export %s: %v", task.ID, err)
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
	}
}

func (h *handler) chart(w http.ResponseWriter, r *http.Request) {
	task, ok := h.completed(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := export.WriteChart(w, "Schedule "+task.ID, task.Result.Schedule); err != nil {
		h.log.Errorf("chart %s: %v", task.ID, err)
	}
}
