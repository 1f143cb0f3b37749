// Package encoding turns job settings into an ffmpeg invocation and
// supervises the resulting process.
//
// BuildArgs owns every encoder flag; Monitor derives a monotonic completion
// percentage from ffmpeg's stderr; Runner starts ffmpeg in its own process
// group, streams stderr lines to a callback, and funnels cancellation and
// timeouts through one terminate-then-kill path.
package encoding
