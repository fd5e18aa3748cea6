// Package lifecycle translates the app shell's background/foreground
// signals into the subsystem's maintenance work: background entry runs
// the durable stores' age-based eviction, and foreground entry tells
// the active views to re-run reconciliation. These hooks are the only
// trigger points for persisted cleanup; the in-memory task sweep runs
// separately on its own ticker.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/macrofit/coach-api/internal/store"
)

// Retention bundles the eviction windows for the durable stores.
type Retention struct {
	Results   time.Duration
	ViewState time.Duration
}

// DefaultRetention returns the recommended windows: a day for results,
// a week for view state.
func DefaultRetention() Retention {
	return Retention{
		Results:   24 * time.Hour,
		ViewState: 7 * 24 * time.Hour,
	}
}

// ResumeFunc is invoked for each registered view when the app enters
// the foreground, so the view can re-run the reconciliation protocol.
type ResumeFunc func(ctx context.Context)

// Hooks wires lifecycle signals to cleanup sweeps and resume fan-out.
type Hooks struct {
	results   store.ResultStore
	views     store.ViewStateStore
	retention Retention
	logger    *slog.Logger

	mu        sync.Mutex
	listeners map[int]ResumeFunc
	nextID    int
}

// NewHooks creates lifecycle hooks over the durable stores.
func NewHooks(results store.ResultStore, views store.ViewStateStore, retention Retention, logger *slog.Logger) *Hooks {
	return &Hooks{
		results:   results,
		views:     views,
		retention: retention,
		logger:    logger.With("component", "lifecycle"),
		listeners: make(map[int]ResumeFunc),
	}
}

// OnResume registers a listener for foreground entry and returns a
// function that unregisters it. Views register here on appear and
// unregister on disappear.
func (h *Hooks) OnResume(fn ResumeFunc) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// EnterBackground runs the age-based eviction sweeps on both durable
// stores. Store errors are logged, not propagated: cleanup is
// best-effort and the next background entry retries it.
func (h *Hooks) EnterBackground(ctx context.Context) {
	resultsDeleted, err := h.results.Cleanup(ctx, h.retention.Results)
	if err != nil {
		h.logger.Error("result store cleanup failed", "error", err)
	}

	viewsDeleted, err := h.views.Cleanup(ctx, h.retention.ViewState)
	if err != nil {
		h.logger.Error("view state store cleanup failed", "error", err)
	}

	h.logger.Info("background cleanup finished",
		"results_deleted", resultsDeleted,
		"view_rows_deleted", viewsDeleted)
}

// EnterForeground signals every registered view to re-run
// reconciliation. Listeners run serially on the caller's goroutine.
func (h *Hooks) EnterForeground(ctx context.Context) {
	h.mu.Lock()
	listeners := make([]ResumeFunc, 0, len(h.listeners))
	for _, fn := range h.listeners {
		listeners = append(listeners, fn)
	}
	h.mu.Unlock()

	h.logger.Info("foreground resume", "listener_count", len(listeners))
	for _, fn := range listeners {
		fn(ctx)
	}
}
