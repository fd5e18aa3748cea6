package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrofit/coach-api/internal/store"
	"github.com/macrofit/coach-api/internal/task"
)

// storeClock mirrors the fake clock used in the task package tests.
type storeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStoreClock() *storeClock {
	return &storeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *storeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *storeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "coach-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func TestResultStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	s := NewResultStore(db)
	ctx := context.Background()

	payload := json.RawMessage(`{"totals":{"calories":430}}`)
	taskID := task.NewID(task.KindMealParse)

	require.NoError(t, s.Save(ctx, task.KindMealParse, taskID, payload))

	got, err := s.Load(ctx, task.KindMealParse, taskID)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))
}

func TestResultStore_SaveOverwrites(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	s := NewResultStore(db)
	ctx := context.Background()
	taskID := task.NewID(task.KindCoachChat)

	require.NoError(t, s.Save(ctx, task.KindCoachChat, taskID, json.RawMessage(`{"v":1}`)))
	require.NoError(t, s.Save(ctx, task.KindCoachChat, taskID, json.RawMessage(`{"v":2}`)))

	got, err := s.Load(ctx, task.KindCoachChat, taskID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))
}

func TestResultStore_LoadAbsent(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	s := NewResultStore(db)
	ctx := context.Background()

	t.Run("missing row", func(t *testing.T) {
		t.Parallel()
		_, err := s.Load(ctx, task.KindMealParse, "meal_parse_missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		t.Parallel()
		taskID := task.NewID(task.KindMealParse)
		require.NoError(t, s.Save(ctx, task.KindMealParse, taskID, json.RawMessage(`{}`)))

		_, err := s.Load(ctx, task.KindCoachChat, taskID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("corrupt payload swallowed", func(t *testing.T) {
		t.Parallel()
		taskID := task.NewID(task.KindWorkoutGeneration)
		_, err := db.ExecContext(ctx,
			`INSERT INTO results (task_id, kind, payload, saved_at) VALUES (?, ?, ?, ?)`,
			taskID, string(task.KindWorkoutGeneration), `{"truncated`, time.Now().UTC())
		require.NoError(t, err)

		_, err = s.Load(ctx, task.KindWorkoutGeneration, taskID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestResultStore_Cleanup(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	s := NewResultStore(db)
	clock := newStoreClock()
	s.now = clock.Now
	ctx := context.Background()

	oldID := task.NewID(task.KindMealParse)
	require.NoError(t, s.Save(ctx, task.KindMealParse, oldID, json.RawMessage(`{}`)))

	clock.Advance(25 * time.Hour)
	freshID := task.NewID(task.KindMealParse)
	require.NoError(t, s.Save(ctx, task.KindMealParse, freshID, json.RawMessage(`{}`)))

	deleted, err := s.Cleanup(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = s.Load(ctx, task.KindMealParse, oldID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Load(ctx, task.KindMealParse, freshID)
	assert.NoError(t, err)
}
