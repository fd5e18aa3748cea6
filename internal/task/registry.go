package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Common errors returned by the Registry.
var (
	ErrRegistryClosed = errors.New("task registry is closed")
	ErrDuplicateID    = errors.New("task id already registered")
	ErrInvalidKind    = errors.New("unknown task kind")

	errCancelled = errors.New(ErrorCancelled)
)

// callbackQueueSize bounds the serial dispatch queue. Completions past
// this bound block their operation goroutine until the queue drains.
const callbackQueueSize = 64

type entry struct {
	task       Task
	onComplete CompletionFunc
	cancel     context.CancelCauseFunc
}

// Registry is the in-memory catalog of tasks and the single source of
// truth for their status. Operations run concurrently, one goroutine
// each; every read and write of the task table is serialized behind
// the registry mutex, and completion callbacks are delivered one at a
// time on a dedicated dispatch goroutine.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*entry

	wmu      sync.Mutex
	watchers map[int]chan Event
	nextID   int

	callbacks    chan func()
	done         chan struct{}
	dispatchDone chan struct{}
	stopOnce     sync.Once

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	logger *slog.Logger
	now    func() time.Time
}

// NewRegistry creates a registry and starts its callback dispatcher.
// Call Stop to shut it down.
func NewRegistry(logger *slog.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())

	r := &Registry{
		tasks:        make(map[string]*entry),
		watchers:     make(map[int]chan Event),
		callbacks:    make(chan func(), callbackQueueSize),
		done:         make(chan struct{}),
		dispatchDone: make(chan struct{}),
		ctx:          ctx,
		cancelFunc:   cancel,
		logger:       logger.With("component", "task_registry"),
		now:          time.Now,
	}

	go r.dispatchLoop()

	return r
}

// Start registers a task with status running and launches the
// operation on its own goroutine. It never blocks the caller. On
// success the task becomes completed and onComplete receives the
// payload; on failure the task becomes failed with the error message
// and onComplete receives the error. Exactly one terminal transition
// and one callback occur per id.
func (r *Registry) Start(id string, kind Kind, op Operation, onComplete CompletionFunc) error {
	if id == "" {
		return errors.New("task id cannot be empty")
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if op == nil {
		return errors.New("operation cannot be nil")
	}

	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		return ErrRegistryClosed
	default:
	}
	if _, exists := r.tasks[id]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	opCtx, cancel := context.WithCancelCause(r.ctx)
	e := &entry{
		task: Task{
			ID:        id,
			Kind:      kind,
			Status:    StatusRunning,
			StartedAt: r.now().UTC(),
		},
		onComplete: onComplete,
		cancel:     cancel,
	}
	r.tasks[id] = e
	snapshot := e.task
	r.wg.Add(1)
	r.mu.Unlock()

	r.logger.Info("task started", "task_id", id, "task_kind", kind)
	r.publish(Event{Type: EventStarted, Task: snapshot})

	go r.run(opCtx, id, op)

	return nil
}

// Info returns a non-blocking snapshot of the task with the given id.
func (r *Registry) Info(id string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return e.task, true
}

// Snapshot returns a copy of all current tasks ordered by start time.
// Together with Watch it backs the "N operations in flight" indicator.
func (r *Registry) Snapshot() []Task {
	r.mu.Lock()
	tasks := make([]Task, 0, len(r.tasks))
	for _, e := range r.tasks {
		tasks = append(tasks, e.task)
	}
	r.mu.Unlock()

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].StartedAt.Equal(tasks[j].StartedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].StartedAt.Before(tasks[j].StartedAt)
	})
	return tasks
}

// Cancel requests cooperative cancellation of a running task. The task
// transitions to failed with a "cancelled" error immediately; the
// operation's context is cancelled so it can stop early, and whatever
// it eventually returns is discarded. Returns false if the task is
// unknown or already terminal.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	e, ok := r.tasks[id]
	if !ok || e.task.Status != StatusRunning {
		r.mu.Unlock()
		return false
	}
	e.cancel(errCancelled)
	snapshot, cb := r.finalizeLocked(e, StatusFailed, ErrorCancelled)
	r.mu.Unlock()

	r.logger.Info("task cancelled", "task_id", id, "task_kind", snapshot.Kind)
	r.publish(Event{Type: EventFailed, Task: snapshot})
	r.deliver(cb, Result{Err: errCancelled})
	return true
}

// SweepStale force-fails every running task whose age exceeds the
// threshold, recording a "timeout" error and firing its completion
// callback. Returns the number of tasks failed.
func (r *Registry) SweepStale(threshold time.Duration) int {
	now := r.now().UTC()

	type swept struct {
		task Task
		cb   CompletionFunc
	}

	r.mu.Lock()
	var failed []swept
	for _, e := range r.tasks {
		if e.task.Status != StatusRunning {
			continue
		}
		if now.Sub(e.task.StartedAt) <= threshold {
			continue
		}
		e.cancel(context.DeadlineExceeded)
		snapshot, cb := r.finalizeLocked(e, StatusFailed, ErrorTimeout)
		failed = append(failed, swept{task: snapshot, cb: cb})
	}
	r.mu.Unlock()

	for _, s := range failed {
		r.logger.Warn("task timed out",
			"task_id", s.task.ID,
			"task_kind", s.task.Kind,
			"started_at", s.task.StartedAt)
		r.publish(Event{Type: EventFailed, Task: s.task})
		r.deliver(s.cb, Result{Err: errors.New(ErrorTimeout)})
	}
	return len(failed)
}

// EvictTerminal removes terminal tasks whose completion is older than
// the retention window. Returns the number of tasks evicted.
func (r *Registry) EvictTerminal(retention time.Duration) int {
	now := r.now().UTC()

	r.mu.Lock()
	var evicted []Task
	for id, e := range r.tasks {
		if !e.task.Status.Terminal() {
			continue
		}
		if now.Sub(e.task.CompletedAt) <= retention {
			continue
		}
		delete(r.tasks, id)
		evicted = append(evicted, e.task)
	}
	r.mu.Unlock()

	for _, t := range evicted {
		r.logger.Debug("task evicted", "task_id", t.ID, "task_kind", t.Kind, "status", t.Status)
		r.publish(Event{Type: EventEvicted, Task: t})
	}
	return len(evicted)
}

// Stop cancels all in-flight operation contexts, waits for their
// goroutines to settle, and shuts down the callback dispatcher.
// Callbacks still queued when Stop is called are delivered first.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		r.cancelFunc()
		r.wg.Wait()

		r.mu.Lock()
		close(r.done)
		r.mu.Unlock()

		// Wait for the dispatcher to exit before draining, so only one
		// goroutine ever pops the queue at a time.
		<-r.dispatchDone

		// Drain anything the settled operations enqueued.
		for {
			select {
			case fn := <-r.callbacks:
				fn()
			default:
				r.logger.Info("task registry stopped")
				return
			}
		}
	})
}

// run executes the operation and records its terminal transition.
func (r *Registry) run(ctx context.Context, id string, op Operation) {
	defer r.wg.Done()

	value, err := execute(ctx, op)
	if err != nil && context.Cause(ctx) == errCancelled {
		// Cancel already recorded the terminal state; settle drops this.
		err = errCancelled
	}
	r.settle(id, value, err)
}

// execute invokes the operation, converting panics into errors so a
// misbehaving operation cannot take down the process.
func execute(ctx context.Context, op Operation) (value json.RawMessage, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("operation panicked: %v", p)
		}
	}()
	return op(ctx)
}

// settle applies the operation outcome. If the task already reached a
// terminal state (timeout sweep, cancellation), the outcome is
// discarded so a second terminal transition never occurs.
func (r *Registry) settle(id string, value json.RawMessage, err error) {
	r.mu.Lock()
	e, ok := r.tasks[id]
	if !ok || e.task.Status != StatusRunning {
		r.mu.Unlock()
		r.logger.Debug("dropping late operation outcome", "task_id", id)
		return
	}

	status := StatusCompleted
	errMsg := ""
	if err != nil {
		status = StatusFailed
		errMsg = err.Error()
	}
	snapshot, cb := r.finalizeLocked(e, status, errMsg)
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("task failed",
			"task_id", id,
			"task_kind", snapshot.Kind,
			"error", err)
		r.publish(Event{Type: EventFailed, Task: snapshot})
		r.deliver(cb, Result{Err: err})
		return
	}

	r.logger.Info("task completed", "task_id", id, "task_kind", snapshot.Kind)
	r.publish(Event{Type: EventCompleted, Task: snapshot})
	r.deliver(cb, Result{Value: value})
}

// finalizeLocked records a terminal transition. Caller holds r.mu and
// has verified the task is running. The completion callback is
// detached here so it can never fire twice.
func (r *Registry) finalizeLocked(e *entry, status Status, errMsg string) (Task, CompletionFunc) {
	e.task.Status = status
	e.task.Error = errMsg
	e.task.CompletedAt = r.now().UTC()
	cb := e.onComplete
	e.onComplete = nil
	return e.task, cb
}

// deliver enqueues a completion callback for serial dispatch.
func (r *Registry) deliver(cb CompletionFunc, res Result) {
	if cb == nil {
		return
	}
	select {
	case r.callbacks <- func() { cb(res) }:
	case <-r.done:
		r.logger.Warn("dropping completion callback, registry stopped")
	}
}

// dispatchLoop delivers completion callbacks one at a time, giving
// callers the single consistent execution context the UI-facing state
// expects.
func (r *Registry) dispatchLoop() {
	defer close(r.dispatchDone)
	for {
		select {
		case fn := <-r.callbacks:
			fn()
		case <-r.done:
			return
		}
	}
}
