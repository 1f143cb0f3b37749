// Package ffprobe wraps the ffprobe CLI and reduces its JSON output to the
// metadata the compression engine needs.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - MediaInfo: read-only snapshot of duration, size, container, and the
//     first video/audio streams
//   - Prober: bounded-time probe entry point used by the engine
//   - ProbeError: classified failure (tool missing, timeout, bad output,
//     non-zero exit)
//
// Inspect executes ffprobe and returns the raw Result; Prober.Probe adds the
// timeout and the MediaInfo reduction.
package ffprobe
