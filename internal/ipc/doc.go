// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Errors
// cross the socket as "[kind] message" strings; the client turns them back
// into *RemoteError values so callers keep the machine-readable kind.
package ipc
