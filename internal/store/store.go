package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/macrofit/coach-api/internal/task"
)

// ResultStore durably persists the output of completed operations,
// keyed by task id. A record is written exactly once, at the moment an
// operation succeeds, and read by at most one reconciliation pass in
// the common case; age-based cleanup removes whatever was never
// consumed.
type ResultStore interface {
	// Save writes an envelope {payload, savedAt, kind} for the task,
	// overwriting any prior entry for that id.
	Save(ctx context.Context, kind task.Kind, taskID string, payload json.RawMessage) error

	// Load returns the payload for the task, or ErrNotFound if the
	// record is missing or undecodable.
	Load(ctx context.Context, kind task.Kind, taskID string) (json.RawMessage, error)

	// Cleanup deletes all envelopes older than maxAge and returns the
	// number deleted.
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
}

// ViewSnapshot is a view's resumable state: its serialized display
// state, the id of the task it is waiting on (if any), and whether it
// was showing a loading indicator when the snapshot was written.
type ViewSnapshot struct {
	ViewKind         string
	State            json.RawMessage
	RememberedTaskID string
	IsLoading        bool
	SavedAt          time.Time
}

// ViewStateStore durably persists per-view snapshots plus the
// task-to-view association map that routes orphaned results back to
// the view that started them.
type ViewStateStore interface {
	// SaveState overwrites the snapshot for snap.ViewKind.
	SaveState(ctx context.Context, snap ViewSnapshot) error

	// LoadState returns the snapshot for the view, or ErrNotFound if
	// none exists or the stored state is undecodable.
	LoadState(ctx context.Context, viewKind string) (ViewSnapshot, error)

	// Associate records that the task belongs to the view, overwriting
	// any prior association for that task id.
	Associate(ctx context.Context, taskID, viewKind string) error

	// ViewFor returns the view associated with the task, or
	// ErrNotFound.
	ViewFor(ctx context.Context, taskID string) (string, error)

	// AssociationsFor returns the task ids currently associated with
	// the view, oldest first.
	AssociationsFor(ctx context.Context, viewKind string) ([]string, error)

	// ClearAssociation removes the association for the task. Clearing
	// an absent association is a no-op.
	ClearAssociation(ctx context.Context, taskID string) error

	// Cleanup deletes snapshots and associations older than maxAge and
	// returns the number of rows deleted.
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
}
