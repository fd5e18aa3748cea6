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
	"github.com/macrofit/coach-api/internal/task"
)

// ResultStore implements store.ResultStore on SQLite.
type ResultStore struct {
	db  store.DBTX
	now func() time.Time
}

var _ store.ResultStore = (*ResultStore)(nil)

// NewResultStore creates a ResultStore backed by db.
func NewResultStore(db store.DBTX) *ResultStore {
	return &ResultStore{
		db:  db,
		now: time.Now,
	}
}

// Save writes the result envelope for the task, overwriting any prior
// entry for that id.
func (s *ResultStore) Save(ctx context.Context, kind task.Kind, taskID string, payload json.RawMessage) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO results (task_id, kind, payload, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (task_id) DO UPDATE SET
			kind = excluded.kind,
			payload = excluded.payload,
			saved_at = excluded.saved_at
	`

	_, err := s.db.ExecContext(ctx, query, taskID, string(kind), string(payload), s.now().UTC())
	if err != nil {
		log.Error("failed to save result",
			"task_id", taskID,
			"task_kind", kind,
			"error", err)
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// Load returns the payload for the task. Missing rows, kind mismatches,
// and undecodable payloads all report store.ErrNotFound.
func (s *ResultStore) Load(ctx context.Context, kind task.Kind, taskID string) (json.RawMessage, error) {
	log := logger.FromContext(ctx)

	query := `SELECT kind, payload FROM results WHERE task_id = ?`

	var storedKind, payload string
	err := s.db.QueryRowContext(ctx, query, taskID).Scan(&storedKind, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result: %w", err)
	}

	if task.Kind(storedKind) != kind {
		log.Warn("result kind mismatch, treating as absent",
			"task_id", taskID,
			"want_kind", kind,
			"stored_kind", storedKind)
		return nil, store.ErrNotFound
	}
	if !json.Valid([]byte(payload)) {
		log.Warn("undecodable result payload, treating as absent",
			"task_id", taskID,
			"task_kind", kind)
		return nil, store.ErrNotFound
	}

	return json.RawMessage(payload), nil
}

// Cleanup deletes all envelopes older than maxAge.
func (s *ResultStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-maxAge)

	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE saved_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up results: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleaned up results: %w", err)
	}
	return deleted, nil
}
