package workflow

import (
	"errors"
	"fmt"

	"clipress/internal/services"
)

// Job failure kinds recorded on terminal jobs that are not already
// classified by a typed error.
const (
	KindProbeFailed     = "probe_failed"
	KindInterrupted     = "interrupted"
	KindPreflightFailed = "preflight_failed"
	KindInternal        = "internal"
)

var (
	ErrQueueFull       = errors.New("queue full")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrSourceNotFound  = errors.New("source not found")

	ErrJobNotFound     = errors.New("job not found")
	ErrAlreadyTerminal = errors.New("job already finished")

	errCancelRequested = errors.New("cancel requested")
	errShutdown        = errors.New("manager stopping")
)

// AdmissionError reports why Submit rejected a job. It matches one of
// ErrQueueFull, ErrFileTooLarge, ErrInvalidSettings or ErrSourceNotFound
// with errors.Is.
type AdmissionError struct {
	Reason  error
	Message string
	Err     error
}

func (e *AdmissionError) Error() string {
	if e.Message == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *AdmissionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// ErrorKind satisfies services.ErrorClassifier.
func (e *AdmissionError) ErrorKind() string {
	switch e.Reason {
	case ErrQueueFull:
		return "queue_full"
	case ErrFileTooLarge:
		return "file_too_large"
	case ErrSourceNotFound:
		return "source_not_found"
	default:
		return "validation_error"
	}
}

// CancelError reports why Cancel could not cancel a job.
type CancelError struct {
	JobID  string
	Reason error
}

func (e *CancelError) Error() string {
	return fmt.Sprintf("cancel %s: %s", e.JobID, e.Reason)
}

func (e *CancelError) Unwrap() error { return e.Reason }

// ErrorKind satisfies services.ErrorClassifier.
func (e *CancelError) ErrorKind() string {
	if e.Reason == ErrAlreadyTerminal {
		return "already_terminal"
	}
	return "not_found"
}

// jobFailure pins a failure kind onto an underlying error when the error's
// own classification is too specific for the job record.
type jobFailure struct {
	kind string
	err  error
}

func (f *jobFailure) Error() string     { return f.err.Error() }
func (f *jobFailure) Unwrap() error     { return f.err }
func (f *jobFailure) ErrorKind() string { return f.kind }

func failWith(kind string, err error) error {
	if err == nil {
		return nil
	}
	return &jobFailure{kind: kind, err: err}
}

// failureKind maps an execution error onto the recorded job kind.
func failureKind(err error) string {
	kind := services.FailureKind(err)
	if kind == "" {
		return KindInternal
	}
	return kind
}
