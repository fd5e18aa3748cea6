package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/macrofit/coach-api/internal/domain"
	"github.com/macrofit/coach-api/internal/recovery"
	"github.com/macrofit/coach-api/internal/store"
)

// ViewState is what a client sees when it asks for a view: the
// durable display state after reconciliation, whether work is still
// in flight, and a user-facing error when the remembered work is
// known to have failed.
type ViewState struct {
	View          string          `json:"view"`
	State         json.RawMessage `json:"state"`
	Loading       bool            `json:"loading"`
	PendingTaskID string          `json:"pending_task_id,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// ViewService reads view state. Every read runs the reconciliation
// pass first, so a client that vanished mid-operation and comes back
// later (or after a server restart) always sees the true outcome.
type ViewService struct {
	views      store.ViewStateStore
	reconciler *recovery.Reconciler
	logger     *slog.Logger
}

// NewViewService creates a view service over the given store and
// reconciler.
func NewViewService(
	views store.ViewStateStore,
	reconciler *recovery.Reconciler,
	logger *slog.Logger,
) *ViewService {
	return &ViewService{
		views:      views,
		reconciler: reconciler,
		logger:     logger.With(slog.String("component", "view_service")),
	}
}

// GetState reconciles and returns the view's current state. Consumed
// results are folded into the durable state before it is returned, so
// the read is also the commit point for orphaned work.
func (s *ViewService) GetState(ctx context.Context, view domain.ViewKind) (*ViewState, error) {
	if !view.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
	log := s.logger.With(slog.String("view_kind", string(view)))

	snap, err := s.views.LoadState(ctx, string(view))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to load view snapshot: %w", err)
		}
		snap = store.ViewSnapshot{ViewKind: string(view)}
	}

	res, err := s.reconciler.Reconcile(ctx, string(view), snap)
	if err != nil {
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}

	changed := false
	if res.Payload != nil {
		newState, err := applyPayload(view, snap.State, res.Payload)
		if err != nil {
			return nil, err
		}
		snap.State = newState
		changed = true
	}
	if res.ClearRemembered && snap.RememberedTaskID != "" {
		snap.RememberedTaskID = ""
		changed = true
	}
	if snap.IsLoading != res.Loading {
		snap.IsLoading = res.Loading
		changed = true
	}

	if changed {
		if err := s.views.SaveState(ctx, snap); err != nil {
			return nil, fmt.Errorf("failed to save reconciled snapshot: %w", err)
		}
		log.Info("view state reconciled",
			slog.String("task_id", res.TaskID),
			slog.Bool("applied_result", res.Payload != nil),
			slog.Bool("loading", snap.IsLoading))
	}

	state := snap.State
	if len(state) == 0 {
		state = json.RawMessage("{}")
	}

	return &ViewState{
		View:          string(view),
		State:         state,
		Loading:       snap.IsLoading,
		PendingTaskID: snap.RememberedTaskID,
		Error:         res.ErrMessage,
	}, nil
}
