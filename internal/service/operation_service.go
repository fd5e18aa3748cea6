package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/macrofit/coach-api/internal/domain"
	"github.com/macrofit/coach-api/internal/generation"
	"github.com/macrofit/coach-api/internal/store"
	"github.com/macrofit/coach-api/internal/task"
)

// OperationService launches the app's long-latency operations. Each
// Start method registers a task, remembers it in the owning view's
// snapshot, records the task-to-view association, and hands the actual
// work to the generator on a background goroutine. Successful results
// are written to the durable result store before the task reports
// completed, so a later reconciliation pass can always find them even
// if the process restarts in between.
type OperationService struct {
	registry  *task.Registry
	results   store.ResultStore
	views     store.ViewStateStore
	generator generation.Generator
	logger    *slog.Logger
}

// NewOperationService creates an operation service over the given
// registry, stores, and generator.
func NewOperationService(
	registry *task.Registry,
	results store.ResultStore,
	views store.ViewStateStore,
	generator generation.Generator,
	logger *slog.Logger,
) *OperationService {
	return &OperationService{
		registry:  registry,
		results:   results,
		views:     views,
		generator: generator,
		logger:    logger.With(slog.String("component", "operation_service")),
	}
}

// StartWorkoutGeneration launches plan generation for the workout
// plan view and returns the new task's id.
func (s *OperationService) StartWorkoutGeneration(
	ctx context.Context,
	req generation.WorkoutPlanRequest,
) (string, error) {
	if req.Goal == "" {
		return "", fmt.Errorf("%w: goal is required", ErrEmptyInput)
	}
	if req.DaysPerWeek < 1 || req.DaysPerWeek > 7 {
		return "", fmt.Errorf("%w: days per week must be between 1 and 7", ErrEmptyInput)
	}

	op := func(ctx context.Context) (json.RawMessage, error) {
		plan, err := s.generator.GenerateWorkoutPlan(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(plan)
	}

	return s.launch(ctx, domain.ViewWorkoutPlan, task.KindWorkoutGeneration, nil, op)
}

// StartWorkoutEdit launches an edit of the current workout plan and
// returns the new task's id. It fails with ErrNoPlan when the view
// has no plan yet.
func (s *OperationService) StartWorkoutEdit(ctx context.Context, instruction string) (string, error) {
	if instruction == "" {
		return "", fmt.Errorf("%w: edit instruction is required", ErrEmptyInput)
	}

	snap, err := s.loadSnapshot(ctx, domain.ViewWorkoutPlan)
	if err != nil {
		return "", err
	}

	var state workoutPlanState
	decodeState(snap.State, &state)
	if len(state.Plan) == 0 {
		return "", ErrNoPlan
	}

	var plan domain.WorkoutPlan
	if err := json.Unmarshal(state.Plan, &plan); err != nil {
		return "", ErrNoPlan
	}

	op := func(ctx context.Context) (json.RawMessage, error) {
		revised, err := s.generator.EditWorkoutPlan(ctx, &plan, instruction)
		if err != nil {
			return nil, err
		}
		return json.Marshal(revised)
	}

	return s.launch(ctx, domain.ViewWorkoutPlan, task.KindWorkoutEdit, nil, op)
}

// StartMealParse launches parsing of a free-text meal description for
// the macro chat view and returns the new task's id.
func (s *OperationService) StartMealParse(ctx context.Context, description string) (string, error) {
	if description == "" {
		return "", fmt.Errorf("%w: meal description is required", ErrEmptyInput)
	}

	op := func(ctx context.Context) (json.RawMessage, error) {
		entry, err := s.generator.ParseMeal(ctx, description)
		if err != nil {
			return nil, err
		}
		return json.Marshal(entry)
	}

	return s.launch(ctx, domain.ViewMacroChat, task.KindMealParse, nil, op)
}

// StartCoachChat appends the user's message to the coach chat history
// and launches generation of the coach's reply, returning the new
// task's id.
func (s *OperationService) StartCoachChat(ctx context.Context, message string) (string, error) {
	userMsg, err := domain.NewChatMessage(domain.ChatRoleUser, message)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmptyInput, err)
	}

	snap, err := s.loadSnapshot(ctx, domain.ViewCoachChat)
	if err != nil {
		return "", err
	}

	userMsgJSON, err := json.Marshal(userMsg)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat message: %w", err)
	}
	newState, err := applyPayload(domain.ViewCoachChat, snap.State, userMsgJSON)
	if err != nil {
		return "", err
	}

	history := coachHistory(newState)
	op := func(ctx context.Context) (json.RawMessage, error) {
		reply, err := s.generator.CoachReply(ctx, history)
		if err != nil {
			return nil, err
		}
		return json.Marshal(reply)
	}

	return s.launch(ctx, domain.ViewCoachChat, task.KindCoachChat, newState, op)
}

// StartTranscription launches transcription of a voice recording for
// the voice log view and returns the new task's id.
func (s *OperationService) StartTranscription(
	ctx context.Context,
	audio []byte,
	mimeType string,
) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: audio data is required", ErrEmptyInput)
	}
	if mimeType == "" {
		return "", fmt.Errorf("%w: audio mime type is required", ErrEmptyInput)
	}

	op := func(ctx context.Context) (json.RawMessage, error) {
		transcript, err := s.generator.Transcribe(ctx, audio, mimeType)
		if err != nil {
			return nil, err
		}
		return json.Marshal(transcript)
	}

	return s.launch(ctx, domain.ViewVoiceLog, task.KindTranscription, nil, op)
}

// launch wires one operation into the registry and the stores: the
// view's snapshot remembers the new task id with its loading flag on,
// and the association map routes the eventual result back to the
// view. Successful payloads are written to the durable result store
// inside the operation itself, before the registry records the
// terminal transition, so any observer that sees the task completed
// can also load its result. When newState is non-nil it replaces the
// snapshot's state in the same write.
func (s *OperationService) launch(
	ctx context.Context,
	view domain.ViewKind,
	kind task.Kind,
	newState json.RawMessage,
	op task.Operation,
) (string, error) {
	id := task.NewID(kind)
	log := s.logger.With(slog.String("task_id", id), slog.String("view_kind", string(view)))

	snap, err := s.loadSnapshot(ctx, view)
	if err != nil {
		return "", err
	}
	if newState != nil {
		snap.State = newState
	}
	snap.RememberedTaskID = id
	snap.IsLoading = true
	if err := s.views.SaveState(ctx, snap); err != nil {
		return "", fmt.Errorf("failed to save view snapshot: %w", err)
	}

	if err := s.views.Associate(ctx, id, string(view)); err != nil {
		return "", fmt.Errorf("failed to associate task with view: %w", err)
	}

	// The payload is written durably before the operation returns, so
	// the task never reports completed with nothing to load.
	wrapped := func(ctx context.Context) (json.RawMessage, error) {
		payload, err := op(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.results.Save(ctx, kind, id, payload); err != nil {
			return nil, fmt.Errorf("failed to persist operation result: %w", err)
		}
		return payload, nil
	}

	onComplete := func(res task.Result) {
		if res.Err != nil {
			log.Warn("operation failed", slog.String("error", res.Err.Error()))
			return
		}
		log.Info("operation result persisted")
	}

	if err := s.registry.Start(id, kind, wrapped, onComplete); err != nil {
		s.rollbackLaunch(ctx, log, snap, id)
		return "", fmt.Errorf("failed to start task: %w", err)
	}

	return id, nil
}

// rollbackLaunch undoes the snapshot and association writes when the
// registry refuses the task.
func (s *OperationService) rollbackLaunch(
	ctx context.Context,
	log *slog.Logger,
	snap store.ViewSnapshot,
	id string,
) {
	if err := s.views.ClearAssociation(ctx, id); err != nil {
		log.Warn("failed to clear association during rollback", slog.String("error", err.Error()))
	}
	snap.RememberedTaskID = ""
	snap.IsLoading = false
	if err := s.views.SaveState(ctx, snap); err != nil {
		log.Warn("failed to restore view snapshot during rollback", slog.String("error", err.Error()))
	}
}

// loadSnapshot returns the view's snapshot, or an empty one when
// nothing has been persisted yet.
func (s *OperationService) loadSnapshot(
	ctx context.Context,
	view domain.ViewKind,
) (store.ViewSnapshot, error) {
	snap, err := s.views.LoadState(ctx, string(view))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ViewSnapshot{ViewKind: string(view)}, nil
		}
		return store.ViewSnapshot{}, fmt.Errorf("failed to load view snapshot: %w", err)
	}
	return snap, nil
}
