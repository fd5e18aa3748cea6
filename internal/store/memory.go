package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/macrofit/coach-api/internal/task"
)

// MemoryResultStore is an in-memory ResultStore used by tests and by
// environments that do not need durability across restarts.
type MemoryResultStore struct {
	mu      sync.Mutex
	entries map[string]resultEnvelope

	// Now is the clock used for savedAt stamps and cleanup; tests may
	// replace it.
	Now func() time.Time
}

type resultEnvelope struct {
	kind    task.Kind
	payload json.RawMessage
	savedAt time.Time
}

var _ ResultStore = (*MemoryResultStore)(nil)

// NewMemoryResultStore creates an empty in-memory result store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{
		entries: make(map[string]resultEnvelope),
		Now:     time.Now,
	}
}

// Save stores the envelope, overwriting any prior entry for the id.
func (s *MemoryResultStore) Save(ctx context.Context, kind task.Kind, taskID string, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[taskID] = resultEnvelope{
		kind:    kind,
		payload: append(json.RawMessage(nil), payload...),
		savedAt: s.Now().UTC(),
	}
	return nil
}

// Load returns the stored payload or ErrNotFound.
func (s *MemoryResultStore) Load(ctx context.Context, kind task.Kind, taskID string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env, ok := s.entries[taskID]
	if !ok || env.kind != kind || !json.Valid(env.payload) {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), env.payload...), nil
}

// Cleanup removes envelopes older than maxAge.
func (s *MemoryResultStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.Now().UTC().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, env := range s.entries {
		if env.savedAt.Before(cutoff) {
			delete(s.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

// MemoryViewStateStore is an in-memory ViewStateStore counterpart to
// MemoryResultStore.
type MemoryViewStateStore struct {
	mu           sync.Mutex
	snapshots    map[string]ViewSnapshot
	associations map[string]association

	Now func() time.Time
}

type association struct {
	viewKind  string
	createdAt time.Time
}

var _ ViewStateStore = (*MemoryViewStateStore)(nil)

// NewMemoryViewStateStore creates an empty in-memory view-state store.
func NewMemoryViewStateStore() *MemoryViewStateStore {
	return &MemoryViewStateStore{
		snapshots:    make(map[string]ViewSnapshot),
		associations: make(map[string]association),
		Now:          time.Now,
	}
}

// SaveState overwrites the snapshot for snap.ViewKind.
func (s *MemoryViewStateStore) SaveState(ctx context.Context, snap ViewSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.SavedAt = s.Now().UTC()
	if len(snap.State) == 0 {
		snap.State = json.RawMessage("{}")
	}
	s.snapshots[snap.ViewKind] = snap
	return nil
}

// LoadState returns the snapshot for the view, or ErrNotFound.
func (s *MemoryViewStateStore) LoadState(ctx context.Context, viewKind string) (ViewSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[viewKind]
	if !ok || !json.Valid(snap.State) {
		return ViewSnapshot{}, ErrNotFound
	}
	return snap, nil
}

// Associate records that the task belongs to the view.
func (s *MemoryViewStateStore) Associate(ctx context.Context, taskID, viewKind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.associations[taskID] = association{viewKind: viewKind, createdAt: s.Now().UTC()}
	return nil
}

// ViewFor returns the view associated with the task, or ErrNotFound.
func (s *MemoryViewStateStore) ViewFor(ctx context.Context, taskID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.associations[taskID]
	if !ok {
		return "", ErrNotFound
	}
	return a.viewKind, nil
}

// AssociationsFor returns the task ids associated with the view,
// oldest first.
func (s *MemoryViewStateStore) AssociationsFor(ctx context.Context, viewKind string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type pair struct {
		id string
		at time.Time
	}
	var pairs []pair
	for id, a := range s.associations {
		if a.viewKind == viewKind {
			pairs = append(pairs, pair{id: id, at: a.createdAt})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].at.Equal(pairs[j].at) {
			return pairs[i].id < pairs[j].id
		}
		return pairs[i].at.Before(pairs[j].at)
	})
	ids := make([]string, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.id)
	}
	return ids, nil
}

// ClearAssociation removes the association for the task.
func (s *MemoryViewStateStore) ClearAssociation(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.associations, taskID)
	return nil
}

// Cleanup removes snapshots and associations older than maxAge.
func (s *MemoryViewStateStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.Now().UTC().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for kind, snap := range s.snapshots {
		if snap.SavedAt.Before(cutoff) {
			delete(s.snapshots, kind)
			deleted++
		}
	}
	for id, a := range s.associations {
		if a.createdAt.Before(cutoff) {
			delete(s.associations, id)
			deleted++
		}
	}
	return deleted, nil
}
