package gemini

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/macrofit/coach-api/internal/domain"
	"github.com/macrofit/coach-api/internal/generation"
)

// planSchema is the JSON structure the model is instructed to return
// for plan generation and plan editing.
type planSchema struct {
	Title   string      `json:"title"`
	Summary string      `json:"summary,omitempty"`
	Days    []daySchema `json:"days"`
}

type daySchema struct {
	Title     string           `json:"title"`
	Focus     string           `json:"focus,omitempty"`
	Exercises []exerciseSchema `json:"exercises"`
}

type exerciseSchema struct {
	Name     string `json:"name"`
	Sets     int    `json:"sets"`
	Reps     string `json:"reps"`
	RestSecs int    `json:"rest_secs,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// toDomain converts the model's plan response into a validated
// domain.WorkoutPlan owned by the given user.
func (s *planSchema) toDomain(userID uuid.UUID) (*domain.WorkoutPlan, error) {
	if len(s.Days) == 0 {
		return nil, fmt.Errorf("%w: plan has no days", generation.ErrInvalidResponse)
	}

	days := make([]domain.WorkoutDay, 0, len(s.Days))
	for i, d := range s.Days {
		if len(d.Exercises) == 0 {
			return nil, fmt.Errorf("%w: day %d has no exercises", generation.ErrInvalidResponse, i+1)
		}
		exercises := make([]domain.Exercise, 0, len(d.Exercises))
		for _, e := range d.Exercises {
			exercises = append(exercises, domain.Exercise{
				Name:     e.Name,
				Sets:     e.Sets,
				Reps:     e.Reps,
				RestSecs: e.RestSecs,
				Notes:    e.Notes,
			})
		}
		days = append(days, domain.WorkoutDay{
			Title:     d.Title,
			Focus:     d.Focus,
			Exercises: exercises,
		})
	}

	plan, err := domain.NewWorkoutPlan(userID, s.Title, days)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}
	plan.Summary = s.Summary
	return plan, nil
}

// mealSchema is the JSON structure the model returns for meal parsing.
type mealSchema struct {
	Items  []mealItemSchema `json:"items"`
	Totals macrosSchema     `json:"totals"`
}

type mealItemSchema struct {
	Name     string       `json:"name"`
	Quantity string       `json:"quantity,omitempty"`
	Macros   macrosSchema `json:"macros"`
}

type macrosSchema struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

func (m macrosSchema) toDomain() domain.Macros {
	return domain.Macros{
		Calories: m.Calories,
		Protein:  m.Protein,
		Carbs:    m.Carbs,
		Fat:      m.Fat,
	}
}

// toDomain converts the model's meal response into a domain.MealEntry
// for the original free-text description.
func (s *mealSchema) toDomain(description string) (*domain.MealEntry, error) {
	if len(s.Items) == 0 {
		return nil, fmt.Errorf("%w: no recognized food items", generation.ErrInvalidResponse)
	}

	items := make([]domain.MealItem, 0, len(s.Items))
	for _, item := range s.Items {
		if item.Name == "" {
			return nil, fmt.Errorf("%w: food item missing name", generation.ErrInvalidResponse)
		}
		items = append(items, domain.MealItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Macros:   item.Macros.toDomain(),
		})
	}

	entry, err := domain.NewMealEntry(description, items, s.Totals.toDomain())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}
	return entry, nil
}

// transcriptSchema is the JSON structure the model returns for audio
// transcription.
type transcriptSchema struct {
	Text         string  `json:"text"`
	DurationSecs float64 `json:"duration_secs,omitempty"`
}

func (s *transcriptSchema) toDomain() (*domain.Transcript, error) {
	transcript, err := domain.NewTranscript(s.Text, s.DurationSecs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}
	return transcript, nil
}

// editedPlan carries identity from the plan being edited onto the
// revised plan so callers see an update, not a replacement.
func editedPlan(revised *domain.WorkoutPlan, original *domain.WorkoutPlan) *domain.WorkoutPlan {
	revised.ID = original.ID
	revised.CreatedAt = original.CreatedAt
	revised.UpdatedAt = time.Now().UTC()
	return revised
}
