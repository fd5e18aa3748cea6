// Package store defines the persistence ports for the async-operation
// subsystem: the durable result store, the durable view-state store,
// and the DBTX abstraction their implementations are written against.
// Implementations live under internal/platform.
//
// Both stores share a reading discipline: a record that is missing or
// cannot be decoded is reported as ErrNotFound. Durable state is an
// optimization for recovery, never a source of faults.
package store
