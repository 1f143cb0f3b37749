// Package daemon coordinates the long-running clipress process.
//
// It wires configuration, queue storage, the compression engine and the
// staging janitor into a single lifecycle with flock-based locking so only one
// instance processes jobs. The daemon also serves the HTTP API (job
// submission, queries and a server-sent event stream) and reports dependency
// health for status commands.
//
// Keep orchestration here. Job processing lives in the workflow package while
// the daemon focuses on startup, shutdown and transport.
package daemon
