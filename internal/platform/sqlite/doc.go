// Package sqlite implements the store interfaces on a local SQLite
// database, the process's single durable store. Schema management uses
// embedded goose migrations applied at startup.
package sqlite
