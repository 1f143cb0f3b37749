// Package settings defines the enumerated compression options and the
// per-job settings bundle.
//
// Every option set is closed: presets, resolutions, and the audio/video
// bitrate ladders are fixed tables, and values outside them fail validation
// (or text decoding) instead of being coerced. JobSettings snapshots are
// persisted as JSON and decode through the same strict parsers, so a stored
// job never silently loses an enumerated value.
//
// Recommend derives a suggested bundle from a probed source; it never
// overrides settings an operator chose explicitly.
package settings
