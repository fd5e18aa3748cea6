// Package domain defines the core entities exchanged through the
// async-operation subsystem: workout plans, parsed meal entries,
// coaching chat messages, and audio transcripts. These are the typed
// payloads operations produce and views consume; business rules that
// create them (prompting, CRUD against the account backend) live
// outside this package.
package domain
