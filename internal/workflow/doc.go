// Package workflow runs compression jobs from admission to a terminal state.
//
// The Manager is constructed once per process with its collaborators
// (store, prober, encoder, thumbnailer, deliverer, event sinks) and owns the
// in-memory admission queue plus a fixed number of slots. Submit validates
// and persists a job without blocking; slots pick jobs up in admission order
// and drive them through preflight, probe, encode, re-probe, thumbnail,
// delivery and cleanup.
//
// Every job emits an ordered stream of events to subscribers (queued,
// started, non-decreasing progress, exactly one terminal event). The same
// stream is mirrored to the configured notification sinks.
//
// Processing jobs left behind by a crashed daemon are failed as interrupted
// on Start; queued jobs are re-admitted in their original order.
package workflow
