// Package main hosts the clipress CLI.
//
// The Cobra command tree translates terminal invocations into IPC calls
// against the daemon: submitting files for compression, cancelling and
// inspecting jobs, per-user defaults and stats, queue maintenance, and a live
// progress view. A few commands (recommend, config) work without a running
// daemon. Configuration resolution and socket discovery live in
// commandContext so subcommands only render results.
package main
