package encoding

import (
	"fmt"
	"strings"

	"clipress/internal/services"
)

// ErrorKind classifies encoder failures.
type ErrorKind string

const (
	KindNonZeroExit  ErrorKind = "non_zero_exit"
	KindTimeout      ErrorKind = "timeout"
	KindSpawnFailure ErrorKind = "spawn_failure"
	KindCancelled    ErrorKind = "cancelled"
)

// EncodeError reports how an ffmpeg run ended unsuccessfully.
type EncodeError struct {
	Kind       ErrorKind
	ExitCode   int
	StderrTail string
	Err        error
}

func (e *EncodeError) Error() string {
	switch e.Kind {
	case KindNonZeroExit:
		msg := fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
		if last := lastLine(e.StderrTail); last != "" {
			msg += ": " + last
		}
		return msg
	case KindTimeout:
		return "ffmpeg exceeded the compression timeout and was terminated"
	case KindCancelled:
		return "ffmpeg was cancelled"
	default:
		return fmt.Sprintf("ffmpeg could not be started: %v", e.Err)
	}
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Is maps encoder failures onto the shared service markers.
func (e *EncodeError) Is(target error) bool {
	switch target {
	case services.ErrTimeout:
		return e.Kind == KindTimeout
	case services.ErrCancelled:
		return e.Kind == KindCancelled
	case services.ErrExternalTool:
		return e.Kind == KindNonZeroExit || e.Kind == KindSpawnFailure
	}
	return false
}

// ErrorKind satisfies services.ErrorClassifier using the job failure
// vocabulary.
func (e *EncodeError) ErrorKind() string {
	switch e.Kind {
	case KindNonZeroExit:
		return "encoder_error"
	case KindSpawnFailure:
		return "spawn_failure"
	default:
		return string(e.Kind)
	}
}

func lastLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[idx+1:])
	}
	return text
}
