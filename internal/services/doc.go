// Package services defines shared utilities consumed by the compression
// engine and its collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, user IDs, stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper, and FailureKind which
//     turns any failure into the machine-readable kind persisted on a job.
//
// Use these helpers when wiring new engine steps so error handling and
// observability stay uniform.
package services
