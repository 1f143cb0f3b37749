// Package notifications mirrors job events to external sinks.
//
// The engine publishes every status, progress and terminal event through the
// Service interface. Redis keeps a job:<id> status hash and fans events out on
// a pub/sub channel, Kafka receives one keyed message per event, and ntfy gets
// a human-readable message for terminal events. Unconfigured sinks are
// skipped; with none configured NewService returns a no-op.
//
// Publishing is best-effort. Callers log failures and carry on.
package notifications
