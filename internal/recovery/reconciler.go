package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/macrofit/coach-api/internal/store"
	"github.com/macrofit/coach-api/internal/task"
)

// User-facing messages for the protocol's terminal error paths.
const (
	// MsgResultMissing is surfaced when the registry says a task
	// completed but no durable result can be found.
	MsgResultMissing = "Something went wrong finishing your request. Please try again."

	// MsgTaskLost is surfaced when neither the registry nor the result
	// store knows anything about the remembered task (crash or timeout
	// took it).
	MsgTaskLost = "That request didn't finish. Please try again."
)

// Resolution is the protocol's verdict for one view: at most one of
// Payload and ErrMessage is set, and Loading is true only when the
// remembered task is still genuinely running.
type Resolution struct {
	// TaskID is the task the resolution concerns, if any.
	TaskID string

	// Payload is the consumed result the view should apply to its
	// state. Nil when there is nothing to apply.
	Payload json.RawMessage

	// ErrMessage is a terminal user-facing error. Empty when the pass
	// found a result or nothing at all.
	ErrMessage string

	// Loading reports whether the view should keep its loading
	// indicator: the remembered task is still genuinely running, even
	// if the pass also consumed an older orphan's result.
	Loading bool

	// ClearRemembered tells the caller to drop the view's remembered
	// task id when it next persists its snapshot.
	ClearRemembered bool
}

// Reconciler runs the reconciliation protocol: the procedure a view
// executes on appear and on app-resume to resynchronize its displayed
// state with the true outcome of work it started earlier, possibly in
// a previous process.
type Reconciler struct {
	registry *task.Registry
	results  store.ResultStore
	views    store.ViewStateStore
	logger   *slog.Logger
}

// NewReconciler creates a reconciler over the given registry and stores.
func NewReconciler(
	registry *task.Registry,
	results store.ResultStore,
	views store.ViewStateStore,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		registry: registry,
		results:  results,
		views:    views,
		logger:   logger.With("component", "reconciler"),
	}
}

// Reconcile resolves the view's state against ground truth. Steps run
// in order and the first successful match wins: (1) orphan scan over
// the view's task associations, (2) the snapshot's own remembered id,
// (3) the durable result store when the registry has no record (the
// process may have relaunched after the result was written). The
// loading indicator stays on only while the remembered task is still
// running, so the protocol can never leave a stuck spinner, and
// running it twice with unchanged store state is idempotent.
func (r *Reconciler) Reconcile(ctx context.Context, viewKind string, snap store.ViewSnapshot) (Resolution, error) {
	log := r.logger.With("view_kind", viewKind)

	// Step 1: orphan scan. A completed task still associated with this
	// view finished while the view was off-screen.
	taskIDs, err := r.views.AssociationsFor(ctx, viewKind)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to scan associations: %w", err)
	}
	for _, taskID := range taskIDs {
		info, ok := r.registry.Info(taskID)
		if !ok || info.Status != task.StatusCompleted {
			continue
		}
		log.Info("reconciling orphaned task", "task_id", taskID)
		res, err := r.consume(ctx, log, taskID, info.Kind, snap)
		if err != nil {
			return Resolution{}, err
		}
		// The view may have launched a newer task since this orphan
		// finished; that one still owns the loading indicator.
		if snap.RememberedTaskID != "" && snap.RememberedTaskID != taskID {
			if cur, ok := r.registry.Info(snap.RememberedTaskID); ok && cur.Status == task.StatusRunning {
				res.Loading = true
			}
		}
		return res, nil
	}

	// Step 2: the view's own remembered task id.
	rememberedID := snap.RememberedTaskID
	if rememberedID == "" {
		return Resolution{}, nil
	}

	if info, ok := r.registry.Info(rememberedID); ok {
		switch info.Status {
		case task.StatusCompleted:
			return r.consume(ctx, log, rememberedID, info.Kind, snap)

		case task.StatusFailed:
			log.Info("remembered task failed",
				"task_id", rememberedID,
				"error", info.Error)
			r.clearAssociation(ctx, log, rememberedID)
			return Resolution{
				TaskID:          rememberedID,
				ErrMessage:      failureMessage(info.Error),
				ClearRemembered: true,
			}, nil

		case task.StatusRunning:
			// Still in flight: keep the loading indicator and take no
			// further action. A later resume re-runs the protocol.
			return Resolution{TaskID: rememberedID, Loading: true}, nil
		}
	}

	// Step 3: the registry has no record (process relaunch emptied the
	// table), but a result may have been durably written before the
	// process ended.
	if kind, ok := task.KindOf(rememberedID); ok {
		payload, err := r.results.Load(ctx, kind, rememberedID)
		if err == nil {
			log.Info("recovered durable result for unknown task", "task_id", rememberedID)
			r.clearAssociation(ctx, log, rememberedID)
			return Resolution{
				TaskID:          rememberedID,
				Payload:         payload,
				ClearRemembered: true,
			}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return Resolution{}, fmt.Errorf("failed to load result: %w", err)
		}
	}

	log.Info("remembered task lost", "task_id", rememberedID)
	r.clearAssociation(ctx, log, rememberedID)
	return Resolution{
		TaskID:          rememberedID,
		ErrMessage:      MsgTaskLost,
		ClearRemembered: true,
	}, nil
}

// consume loads and claims a completed task's result. The association
// is cleared whether or not a result exists: a completed-but-unconsumed
// association must never be left dangling.
func (r *Reconciler) consume(
	ctx context.Context,
	log *slog.Logger,
	taskID string,
	kind task.Kind,
	snap store.ViewSnapshot,
) (Resolution, error) {
	payload, err := r.results.Load(ctx, kind, taskID)
	r.clearAssociation(ctx, log, taskID)
	clearRemembered := snap.RememberedTaskID == taskID

	if errors.Is(err, store.ErrNotFound) {
		log.Warn("task completed but no result found", "task_id", taskID)
		return Resolution{
			TaskID:          taskID,
			ErrMessage:      MsgResultMissing,
			ClearRemembered: clearRemembered,
		}, nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to load result: %w", err)
	}

	return Resolution{
		TaskID:          taskID,
		Payload:         payload,
		ClearRemembered: clearRemembered,
	}, nil
}

func (r *Reconciler) clearAssociation(ctx context.Context, log *slog.Logger, taskID string) {
	if err := r.views.ClearAssociation(ctx, taskID); err != nil {
		// Cleanup will age the association out eventually; don't fail
		// the pass over it.
		log.Error("failed to clear association", "task_id", taskID, "error", err)
	}
}

func failureMessage(taskErr string) string {
	if taskErr == task.ErrorTimeout {
		return "That request took too long and was stopped. Please try again."
	}
	if taskErr == task.ErrorCancelled {
		return "That request was cancelled."
	}
	return "That request failed. Please try again."
}
