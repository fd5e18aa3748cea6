package api

import (
	"time"

	"github.com/macrofit/coach-api/internal/task"
)

// WorkoutPlanOperationRequest starts work on the workout plan view:
// either generating a fresh plan or editing the current one.
type WorkoutPlanOperationRequest struct {
	Operation   string   `json:"operation"             validate:"required,oneof=generate edit"`
	Goal        string   `json:"goal,omitempty"`
	DaysPerWeek int      `json:"days_per_week,omitempty"`
	Experience  string   `json:"experience,omitempty"`
	Equipment   []string `json:"equipment,omitempty"`
	Instruction string   `json:"instruction,omitempty"`
}

// MealParseRequest starts parsing of a meal description on the macro
// chat view.
type MealParseRequest struct {
	Description string `json:"description" validate:"required"`
}

// CoachChatRequest starts generation of the coach's reply on the
// coach chat view.
type CoachChatRequest struct {
	Message string `json:"message" validate:"required"`
}

// TranscriptionRequest starts transcription of a base64-encoded
// recording on the voice log view.
type TranscriptionRequest struct {
	Audio    string `json:"audio"     validate:"required,base64"`
	MimeType string `json:"mime_type" validate:"required"`
}

// StartOperationResponse acknowledges a launched operation. The
// client polls the view's state (or the task list) to observe the
// outcome.
type StartOperationResponse struct {
	TaskID string `json:"task_id"`
}

// TaskResponse is one tracked task in API form.
type TaskResponse struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// TaskListResponse is the full registry snapshot.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

func toTaskResponse(t task.Task) TaskResponse {
	resp := TaskResponse{
		ID:        t.ID,
		Kind:      string(t.Kind),
		Status:    string(t.Status),
		StartedAt: t.StartedAt,
		Error:     t.Error,
	}
	if !t.CompletedAt.IsZero() {
		completed := t.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
}
