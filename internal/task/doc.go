// Package task implements the in-memory task registry at the center of
// the async-operation subsystem. The registry executes long-latency
// operations concurrently and tracks their status independent of the
// caller's lifetime: a view that started an operation may be gone long
// before the operation settles, and discovers the outcome later through
// the reconciliation protocol.
//
// All access to the task table is serialized behind the registry mutex,
// and completion callbacks for every task are delivered one at a time
// on a single dispatch goroutine. Status transitions are monotonic:
// running is the only non-terminal state, and exactly one terminal
// transition (with exactly one completion callback) occurs per task id.
package task
