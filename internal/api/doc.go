// Package api defines wire-format types and converters shared by the HTTP
// API and the IPC layer. It translates queue and workflow models into
// transport-friendly DTOs so clients never couple to internal types.
//
// # Key Types
//
// Job: transport representation of a compression job with settings,
// progress, result and failure details.
//
// WorkflowStatus / DaemonStatus: running state, slot usage, queue counts,
// dependency and preflight checks.
//
// Event: one engine event as streamed over server-sent events.
//
// Action: the closed set of caller actions (submit, cancel, show, queue,
// stats, defaults) decoded once from a {"type": ...} envelope.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Enumerated settings travel as strings and are
// parsed strictly at the boundary by Settings.JobSettings. Timestamps use
// RFC3339 with milliseconds.
package api
