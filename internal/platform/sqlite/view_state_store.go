package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/macrofit/coach-api/internal/platform/logger"
	"github.com/macrofit/coach-api/internal/store"
)

// ViewStateStore implements store.ViewStateStore on SQLite.
type ViewStateStore struct {
	db  store.DBTX
	now func() time.Time
}

var _ store.ViewStateStore = (*ViewStateStore)(nil)

// NewViewStateStore creates a ViewStateStore backed by db.
func NewViewStateStore(db store.DBTX) *ViewStateStore {
	return &ViewStateStore{
		db:  db,
		now: time.Now,
	}
}

// SaveState overwrites the snapshot for snap.ViewKind.
func (s *ViewStateStore) SaveState(ctx context.Context, snap store.ViewSnapshot) error {
	if snap.ViewKind == "" {
		return errors.New("view kind cannot be empty")
	}

	state := snap.State
	if len(state) == 0 {
		state = json.RawMessage("{}")
	}

	query := `
		INSERT INTO view_states (view_kind, state, remembered_task_id, is_loading, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (view_kind) DO UPDATE SET
			state = excluded.state,
			remembered_task_id = excluded.remembered_task_id,
			is_loading = excluded.is_loading,
			saved_at = excluded.saved_at
	`

	var remembered sql.NullString
	if snap.RememberedTaskID != "" {
		remembered = sql.NullString{String: snap.RememberedTaskID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		snap.ViewKind, string(state), remembered, snap.IsLoading, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save view state: %w", err)
	}
	return nil
}

// LoadState returns the snapshot for the view, or store.ErrNotFound if
// none exists or the stored state is undecodable.
func (s *ViewStateStore) LoadState(ctx context.Context, viewKind string) (store.ViewSnapshot, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT state, remembered_task_id, is_loading, saved_at
		FROM view_states
		WHERE view_kind = ?
	`

	var (
		state      string
		remembered sql.NullString
		isLoading  bool
		savedAt    time.Time
	)
	err := s.db.QueryRowContext(ctx, query, viewKind).Scan(&state, &remembered, &isLoading, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ViewSnapshot{}, store.ErrNotFound
	}
	if err != nil {
		return store.ViewSnapshot{}, fmt.Errorf("failed to load view state: %w", err)
	}

	if !json.Valid([]byte(state)) {
		log.Warn("undecodable view state, treating as absent", "view_kind", viewKind)
		return store.ViewSnapshot{}, store.ErrNotFound
	}

	return store.ViewSnapshot{
		ViewKind:         viewKind,
		State:            json.RawMessage(state),
		RememberedTaskID: remembered.String,
		IsLoading:        isLoading,
		SavedAt:          savedAt,
	}, nil
}

// Associate records that the task belongs to the view.
func (s *ViewStateStore) Associate(ctx context.Context, taskID, viewKind string) error {
	if taskID == "" || viewKind == "" {
		return errors.New("task id and view kind cannot be empty")
	}

	query := `
		INSERT INTO view_associations (task_id, view_kind, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (task_id) DO UPDATE SET
			view_kind = excluded.view_kind,
			created_at = excluded.created_at
	`

	_, err := s.db.ExecContext(ctx, query, taskID, viewKind, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save association: %w", err)
	}
	return nil
}

// ViewFor returns the view associated with the task.
func (s *ViewStateStore) ViewFor(ctx context.Context, taskID string) (string, error) {
	var viewKind string
	err := s.db.QueryRowContext(ctx,
		`SELECT view_kind FROM view_associations WHERE task_id = ?`, taskID).Scan(&viewKind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load association: %w", err)
	}
	return viewKind, nil
}

// AssociationsFor returns the task ids associated with the view,
// oldest first.
func (s *ViewStateStore) AssociationsFor(ctx context.Context, viewKind string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id FROM view_associations WHERE view_kind = ? ORDER BY created_at ASC, task_id ASC`,
		viewKind)
	if err != nil {
		return nil, fmt.Errorf("failed to query associations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var taskIDs []string
	for rows.Next() {
		var taskID string
		if err := rows.Scan(&taskID); err != nil {
			return nil, fmt.Errorf("failed to scan association row: %w", err)
		}
		taskIDs = append(taskIDs, taskID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating association rows: %w", err)
	}
	return taskIDs, nil
}

// ClearAssociation removes the association for the task.
func (s *ViewStateStore) ClearAssociation(ctx context.Context, taskID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM view_associations WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("failed to clear association: %w", err)
	}
	return nil
}

// Cleanup deletes snapshots and associations older than maxAge.
func (s *ViewStateStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-maxAge)

	var total int64

	res, err := s.db.ExecContext(ctx, `DELETE FROM view_states WHERE saved_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up view states: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleaned up view states: %w", err)
	}
	total += n

	res, err = s.db.ExecContext(ctx, `DELETE FROM view_associations WHERE created_at < ?`, cutoff)
	if err != nil {
		return total, fmt.Errorf("failed to clean up associations: %w", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return total, fmt.Errorf("failed to count cleaned up associations: %w", err)
	}
	total += n

	return total, nil
}
