package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/macrofit/coach-api/internal/api/shared"
	"github.com/macrofit/coach-api/internal/platform/logger"
)

// LifecycleNotifier is the slice of the lifecycle hooks the handler
// needs.
type LifecycleNotifier interface {
	EnterBackground(ctx context.Context)
	EnterForeground(ctx context.Context)
}

// LifecycleHandler lets clients report app lifecycle transitions.
// Backgrounding triggers retention cleanup of the durable stores;
// foregrounding fans out to registered resume listeners.
type LifecycleHandler struct {
	hooks LifecycleNotifier
}

// NewLifecycleHandler creates a new LifecycleHandler.
func NewLifecycleHandler(hooks LifecycleNotifier) *LifecycleHandler {
	return &LifecycleHandler{hooks: hooks}
}

// Background handles POST /lifecycle/background.
func (h *LifecycleHandler) Background(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())
	log.Info("client entered background")

	h.hooks.EnterBackground(r.Context())
	shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]string{"status": "cleanup started"})
}

// Foreground handles POST /lifecycle/foreground.
func (h *LifecycleHandler) Foreground(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())
	log.Info("client entered foreground")

	h.hooks.EnterForeground(r.Context())
	shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]string{"status": "resume delivered"})
}
