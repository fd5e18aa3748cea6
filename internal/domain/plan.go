package domain

import (
	"time"

	"github.com/google/uuid"
)

// Exercise is a single prescribed movement within a workout day.
type Exercise struct {
	Name     string `json:"name"`
	Sets     int    `json:"sets"`
	Reps     string `json:"reps"`
	RestSecs int    `json:"rest_secs,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// WorkoutDay groups the exercises prescribed for one training day.
type WorkoutDay struct {
	Title     string     `json:"title"`
	Focus     string     `json:"focus,omitempty"`
	Exercises []Exercise `json:"exercises"`
}

// WorkoutPlan is a complete multi-day training plan produced by the
// plan-generation or plan-edit operations.
type WorkoutPlan struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	Title     string       `json:"title"`
	Days      []WorkoutDay `json:"days"`
	Summary   string       `json:"summary,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewWorkoutPlan creates a workout plan owned by the given user.
func NewWorkoutPlan(userID uuid.UUID, title string, days []WorkoutDay) (*WorkoutPlan, error) {
	now := time.Now().UTC()
	plan := &WorkoutPlan{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Days:      days,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Validate checks that the plan satisfies the domain's invariants.
func (p *WorkoutPlan) Validate() error {
	if p.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if p.Title == "" {
		return ErrEmptyPlanTitle
	}
	if len(p.Days) == 0 {
		return ErrEmptyPlanDays
	}
	for _, day := range p.Days {
		if len(day.Exercises) == 0 {
			return ErrEmptyPlanDays
		}
	}
	return nil
}
