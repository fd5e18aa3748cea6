package task

// EventType classifies a task table change.
type EventType string

// Event types published to watchers.
const (
	EventStarted   EventType = "started"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventEvicted   EventType = "evicted"
)

// Event describes one task table change, carrying a snapshot of the
// task at the moment of the change.
type Event struct {
	Type EventType
	Task Task
}

// Watch registers an observer of task table changes and returns the
// event channel plus a function that unregisters it. Slow observers do
// not block the registry: events that do not fit the buffer are
// dropped.
func (r *Registry) Watch(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}

	r.wmu.Lock()
	id := r.nextID
	r.nextID++
	ch := make(chan Event, buffer)
	r.watchers[id] = ch
	r.wmu.Unlock()

	unregister := func() {
		r.wmu.Lock()
		if _, ok := r.watchers[id]; ok {
			delete(r.watchers, id)
			close(ch)
		}
		r.wmu.Unlock()
	}
	return ch, unregister
}

// publish fans an event out to all registered watchers.
func (r *Registry) publish(ev Event) {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	for id, ch := range r.watchers {
		select {
		case ch <- ev:
		default:
			r.logger.Debug("watcher buffer full, dropping event",
				"watcher_id", id,
				"event_type", ev.Type,
				"task_id", ev.Task.ID)
		}
	}
}
