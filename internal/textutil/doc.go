// Package textutil holds small string helpers shared by the CLI and the job
// engine: filename sanitizing and human-readable sizes and durations.
package textutil
