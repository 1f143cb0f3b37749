package queue

import (
	"errors"
	"fmt"

	"clipress/internal/services"
)

// ErrNotFound is returned when a job or user key does not exist.
var ErrNotFound = fmt.Errorf("record not found: %w", services.ErrNotFound)

// StorageErrorKind classifies store failures.
type StorageErrorKind string

const (
	KindNotFound  StorageErrorKind = "not_found"
	KindIOFailure StorageErrorKind = "io_failure"
)

// StorageError wraps a failed store operation.
type StorageError struct {
	Op   string
	Kind StorageErrorKind
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("queue %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("queue %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrorKind implements services.ErrorClassifier.
func (e *StorageError) ErrorKind() string { return "storage_" + string(e.Kind) }

func ioFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *StorageError
	if errors.As(err, &existing) {
		return err
	}
	return &StorageError{Op: op, Kind: KindIOFailure, Err: err}
}

func notFound(op string) error {
	return &StorageError{Op: op, Kind: KindNotFound, Err: ErrNotFound}
}
