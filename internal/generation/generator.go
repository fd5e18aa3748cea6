package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/macrofit/coach-api/internal/domain"
)

// WorkoutPlanRequest describes what the user wants from a generated
// training plan.
type WorkoutPlanRequest struct {
	UserID      uuid.UUID `json:"user_id"`
	Goal        string    `json:"goal"`
	DaysPerWeek int       `json:"days_per_week"`
	Experience  string    `json:"experience,omitempty"`
	Equipment   []string  `json:"equipment,omitempty"`
}

// Generator is the boundary between the application core and the
// LLM/speech services that back the long-latency operations. Every
// method may block on network I/O and must honor ctx for cancellation.
type Generator interface {
	// GenerateWorkoutPlan creates a new training plan from the request.
	GenerateWorkoutPlan(ctx context.Context, req WorkoutPlanRequest) (*domain.WorkoutPlan, error)

	// EditWorkoutPlan applies a free-text instruction to an existing
	// plan and returns the revised plan.
	EditWorkoutPlan(ctx context.Context, plan *domain.WorkoutPlan, instruction string) (*domain.WorkoutPlan, error)

	// ParseMeal turns a free-text meal description into a structured
	// entry with per-item and total macros.
	ParseMeal(ctx context.Context, description string) (*domain.MealEntry, error)

	// CoachReply produces the coach's next message given the
	// conversation so far. The last message is the user's latest turn.
	CoachReply(ctx context.Context, history []domain.ChatMessage) (*domain.ChatMessage, error)

	// Transcribe converts an audio recording into text.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*domain.Transcript, error)
}
