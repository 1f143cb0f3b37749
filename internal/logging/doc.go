// Package logging assembles structured slog loggers and formatting helpers used
// across clipress.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so engine code tags log lines with job
// IDs, user IDs, stages, and correlation IDs. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
