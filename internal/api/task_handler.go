package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/macrofit/coach-api/internal/api/shared"
	"github.com/macrofit/coach-api/internal/platform/logger"
	"github.com/macrofit/coach-api/internal/task"
)

// TaskDirectory is the slice of the task registry the handler needs.
type TaskDirectory interface {
	Snapshot() []task.Task
	Cancel(id string) bool
}

// TaskHandler exposes the registry's tracked tasks.
type TaskHandler struct {
	registry TaskDirectory
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(registry TaskDirectory) *TaskHandler {
	return &TaskHandler{registry: registry}
}

// List handles GET /tasks. It returns every tracked task, running and
// recently terminal alike, oldest first.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks := h.registry.Snapshot()

	resp := TaskListResponse{Tasks: make([]TaskResponse, 0, len(tasks))}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, toTaskResponse(t))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Cancel handles DELETE /tasks/{id}. Cancelling an unknown or already
// terminal task returns 404; the operation's goroutine observes the
// cancellation through its context.
func (h *TaskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())
	id := chi.URLParam(r, "id")

	if !h.registry.Cancel(id) {
		shared.RespondWithError(w, r, http.StatusNotFound, "No running task with that id")
		return
	}

	log.Info("task cancelled", slog.String("task_id", id))
	w.WriteHeader(http.StatusNoContent)
}
