package task

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a task.
type Status string

// Possible task status values. Running is the sole non-terminal state;
// completed and failed are terminal and mutually exclusive.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Kind identifies the type of operation a task tracks.
type Kind string

// Task kind constants for the long-latency operations the app runs.
const (
	KindWorkoutGeneration Kind = "workout_generation"
	KindWorkoutEdit       Kind = "workout_edit"
	KindMealParse         Kind = "meal_parse"
	KindCoachChat         Kind = "coach_chat"
	KindTranscription     Kind = "transcription"
)

// Valid reports whether k is a known task kind.
func (k Kind) Valid() bool {
	switch k {
	case KindWorkoutGeneration, KindWorkoutEdit, KindMealParse, KindCoachChat, KindTranscription:
		return true
	}
	return false
}

// Error strings recorded for failures the registry synthesizes itself.
const (
	ErrorTimeout   = "timeout"
	ErrorCancelled = "cancelled"
)

// Task is one tracked invocation of a long-running asynchronous
// operation. Tasks are created by Registry.Start and mutated only by
// the registry; status transitions are monotonic (running to exactly
// one of completed or failed, never reversed).
type Task struct {
	ID          string
	Kind        Kind
	Status      Status
	StartedAt   time.Time
	CompletedAt time.Time // zero while running
	Error       string    // empty unless failed
}

// NewID returns a fresh task id in the canonical "<kind>_<uuid>" form.
func NewID(kind Kind) string {
	return fmt.Sprintf("%s_%s", kind, uuid.New())
}

// KindOf extracts the kind prefix from a canonical task id. It returns
// false for ids that do not carry a known kind.
func KindOf(id string) (Kind, bool) {
	idx := strings.LastIndex(id, "_")
	if idx <= 0 {
		return "", false
	}
	kind := Kind(id[:idx])
	if !kind.Valid() {
		return "", false
	}
	return kind, true
}

// Operation is the unit of work a task executes. It runs on its own
// goroutine, must honor ctx for cancellation, and returns the
// kind-specific payload serialized as JSON. The registry is
// payload-agnostic.
type Operation func(ctx context.Context) (json.RawMessage, error)

// Result carries an operation's outcome into its completion callback.
// Exactly one of Value and Err is meaningful.
type Result struct {
	Value json.RawMessage
	Err   error
}

// CompletionFunc receives a task's terminal result. Callbacks for all
// tasks are delivered serially on a single dispatch goroutine, so
// callback code can mutate shared state without extra synchronization.
type CompletionFunc func(Result)
