package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/macrofit/coach-api/internal/api/shared"
	"github.com/macrofit/coach-api/internal/domain"
	"github.com/macrofit/coach-api/internal/generation"
	"github.com/macrofit/coach-api/internal/platform/logger"
)

// OperationStarter is the slice of the operation service the handler
// needs.
type OperationStarter interface {
	StartWorkoutGeneration(ctx context.Context, req generation.WorkoutPlanRequest) (string, error)
	StartWorkoutEdit(ctx context.Context, instruction string) (string, error)
	StartMealParse(ctx context.Context, description string) (string, error)
	StartCoachChat(ctx context.Context, message string) (string, error)
	StartTranscription(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// OperationHandler starts long-latency operations on behalf of views.
type OperationHandler struct {
	starter   OperationStarter
	validator *validator.Validate
}

// NewOperationHandler creates a new OperationHandler.
func NewOperationHandler(starter OperationStarter) *OperationHandler {
	return &OperationHandler{
		starter:   starter,
		validator: validator.New(),
	}
}

// Start handles POST /views/{view}/operations. The request body shape
// depends on the view; the response is always 202 with the new task's
// id, which the client can watch via the view's state or the task
// list.
func (h *OperationHandler) Start(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	view := domain.ViewKind(chi.URLParam(r, "view"))
	if !view.Valid() {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown view")
		return
	}

	var taskID string
	var err error
	switch view {
	case domain.ViewWorkoutPlan:
		taskID, err = h.startWorkoutPlanOperation(w, r)
	case domain.ViewMacroChat:
		taskID, err = h.startMealParse(w, r)
	case domain.ViewCoachChat:
		taskID, err = h.startCoachChat(w, r)
	case domain.ViewVoiceLog:
		taskID, err = h.startTranscription(w, r)
	}
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return
		}
		log.Warn("failed to start operation",
			slog.String("view_kind", string(view)),
			slog.String("error", err.Error()))
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	log.Info("operation started",
		slog.String("view_kind", string(view)),
		slog.String("task_id", taskID))
	shared.RespondWithJSON(w, r, http.StatusAccepted, StartOperationResponse{TaskID: taskID})
}

// errResponseWritten signals that a helper already wrote the response.
var errResponseWritten = errors.New("response already written")

func (h *OperationHandler) startWorkoutPlanOperation(
	w http.ResponseWriter,
	r *http.Request,
) (string, error) {
	var req WorkoutPlanOperationRequest
	if !h.decode(w, r, &req) {
		return "", errResponseWritten
	}

	if req.Operation == "edit" {
		return h.starter.StartWorkoutEdit(r.Context(), req.Instruction)
	}

	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return "", errResponseWritten
	}
	return h.starter.StartWorkoutGeneration(r.Context(), generation.WorkoutPlanRequest{
		UserID:      userID,
		Goal:        req.Goal,
		DaysPerWeek: req.DaysPerWeek,
		Experience:  req.Experience,
		Equipment:   req.Equipment,
	})
}

func (h *OperationHandler) startMealParse(w http.ResponseWriter, r *http.Request) (string, error) {
	var req MealParseRequest
	if !h.decode(w, r, &req) {
		return "", errResponseWritten
	}
	return h.starter.StartMealParse(r.Context(), req.Description)
}

func (h *OperationHandler) startCoachChat(w http.ResponseWriter, r *http.Request) (string, error) {
	var req CoachChatRequest
	if !h.decode(w, r, &req) {
		return "", errResponseWritten
	}
	return h.starter.StartCoachChat(r.Context(), req.Message)
}

func (h *OperationHandler) startTranscription(
	w http.ResponseWriter,
	r *http.Request,
) (string, error) {
	var req TranscriptionRequest
	if !h.decode(w, r, &req) {
		return "", errResponseWritten
	}
	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid base64 audio")
		return "", errResponseWritten
	}
	return h.starter.StartTranscription(r.Context(), audio, req.MimeType)
}

// decode parses and validates the JSON request body. It writes the
// error response itself and returns false when the body is unusable.
func (h *OperationHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error")
		return false
	}
	return true
}

// getUserIDFromContext extracts the authenticated user's UUID placed
// in the context by the authentication middleware.
func getUserIDFromContext(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}
