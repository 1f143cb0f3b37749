// Package logs reads the daemon log file for `clipress logs`.
//
// Last returns the trailing lines with bounded memory; Follow polls for
// appended lines from an offset and restarts from the top when the file is
// truncated or replaced.
package logs
