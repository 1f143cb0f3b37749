// Package queue persists compression jobs and per-user statistics in SQLite.
//
// The Store is the single source of truth for job and user state. Every
// boundary operation is one statement or one transaction, so concurrent job
// slots can update their own records without further coordination. Writes
// retry with backoff when SQLite reports the database as busy.
//
// The database holds in-flight and recent jobs rather than a long-term
// archive. Schema changes bump schemaVersion; operators clear the database to
// adopt a new schema.
package queue
