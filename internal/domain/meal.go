package domain

import (
	"time"

	"github.com/google/uuid"
)

// Macros holds the macronutrient breakdown of a meal in grams, plus
// total calories.
type Macros struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// MealEntry is the structured result of parsing a free-text meal
// description into named items and a macro total.
type MealEntry struct {
	ID          uuid.UUID  `json:"id"`
	Description string     `json:"description"`
	Items       []MealItem `json:"items"`
	Totals      Macros     `json:"totals"`
	LoggedAt    time.Time  `json:"logged_at"`
}

// MealItem is a single recognized food within a meal description.
type MealItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Macros   Macros `json:"macros"`
}

// NewMealEntry creates a meal entry from a parsed description.
func NewMealEntry(description string, items []MealItem, totals Macros) (*MealEntry, error) {
	if description == "" {
		return nil, ErrEmptyMealDescription
	}
	return &MealEntry{
		ID:          uuid.New(),
		Description: description,
		Items:       items,
		Totals:      totals,
		LoggedAt:    time.Now().UTC(),
	}, nil
}
