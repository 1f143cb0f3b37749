package ffprobe

import (
	"fmt"
	"strings"
)

// ErrorKind classifies probe failures.
type ErrorKind string

const (
	KindToolNotFound    ErrorKind = "tool_not_found"
	KindTimeout         ErrorKind = "timeout"
	KindMalformedOutput ErrorKind = "malformed_output"
	KindNonZeroExit     ErrorKind = "non_zero_exit"
)

// ProbeError reports why ffprobe could not describe a file.
type ProbeError struct {
	Kind     ErrorKind
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProbeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ffprobe %s", strings.ReplaceAll(string(e.Kind), "_", " "))
	if e.Path != "" {
		fmt.Fprintf(&b, " for %q", e.Path)
	}
	if e.Kind == KindNonZeroExit {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProbeError) Unwrap() error { return e.Err }

// ErrorKind satisfies services.ErrorClassifier.
func (e *ProbeError) ErrorKind() string { return "probe_" + string(e.Kind) }
