package domain

import "errors"

// Validation errors returned by the domain constructors.
var (
	ErrEmptyUserID          = errors.New("user ID cannot be empty")
	ErrEmptyPlanTitle       = errors.New("workout plan title cannot be empty")
	ErrEmptyPlanDays        = errors.New("workout plan must contain at least one day with exercises")
	ErrEmptyMealDescription = errors.New("meal description cannot be empty")
	ErrEmptyChatContent     = errors.New("chat message content cannot be empty")
	ErrInvalidChatRole      = errors.New("chat message role must be user or coach")
	ErrEmptyTranscript      = errors.New("transcript text cannot be empty")
)
