package task

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestRegistry_WatchObservesLifecycle(t *testing.T) {
	t.Parallel()

	r, clock := newTestRegistry(t)
	ch, unregister := r.Watch(16)
	defer unregister()

	id := NewID(KindMealParse)
	require.NoError(t, r.Start(id, KindMealParse, func(ctx context.Context) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}, nil))

	started := collectEvent(t, ch)
	assert.Equal(t, EventStarted, started.Type)
	assert.Equal(t, id, started.Task.ID)
	assert.Equal(t, StatusRunning, started.Task.Status)

	completed := collectEvent(t, ch)
	assert.Equal(t, EventCompleted, completed.Type)
	assert.Equal(t, StatusCompleted, completed.Task.Status)

	clock.Advance(11 * time.Minute)
	r.EvictTerminal(10 * time.Minute)

	evicted := collectEvent(t, ch)
	assert.Equal(t, EventEvicted, evicted.Type)
	assert.Equal(t, id, evicted.Task.ID)
}

func TestRegistry_WatchUnregisterClosesChannel(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)
	ch, unregister := r.Watch(1)

	unregister()
	// Unregistering twice must not panic.
	unregister()

	_, open := <-ch
	assert.False(t, open)
}

func TestRegistry_SlowWatcherDoesNotBlock(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)
	_, unregister := r.Watch(1)
	defer unregister()

	// More events than the watcher buffer holds; starts must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			id := NewID(KindCoachChat)
			_ = r.Start(id, KindCoachChat, func(ctx context.Context) (json.RawMessage, error) {
				return json.RawMessage(`{}`), nil
			}, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("registry blocked on a slow watcher")
	}
}
