// Package delivery hands finished compressions off to their destination: a
// per-job directory under the output dir, or an S3 bucket.
package delivery

import (
	"context"
	"fmt"
	"strings"

	"clipress/internal/config"
	"clipress/internal/services"
)

// Artifact is the output of a completed job.
type Artifact struct {
	JobID         string
	UserID        string
	VideoPath     string
	ThumbnailPath string
}

// Delivered reports where an artifact ended up.
type Delivered struct {
	Location          string
	ThumbnailLocation string
}

// Deliverer hands an artifact off. Implementations must leave nothing
// half-delivered on error that a retry could not overwrite.
type Deliverer interface {
	Deliver(ctx context.Context, artifact Artifact) (Delivered, error)
}

// Error wraps a failed hand-off.
type Error struct {
	Mode string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s delivery: %v", e.Mode, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind implements services.ErrorClassifier.
func (e *Error) ErrorKind() string { return "delivery_failed" }

// Is lets errors.Is(err, services.ErrExternalTool) match delivery failures.
func (e *Error) Is(target error) bool { return target == services.ErrExternalTool }

// New builds the deliverer selected by cfg.Delivery.Mode.
func New(ctx context.Context, cfg *config.Config) (Deliverer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Delivery.Mode)) {
	case "", config.DeliveryLocal:
		return NewLocal(cfg.Paths.OutputDir), nil
	case config.DeliveryS3:
		d, err := NewS3(ctx, S3Options{
			Bucket:       cfg.Delivery.S3Bucket,
			Prefix:       cfg.Delivery.S3Prefix,
			Region:       cfg.Delivery.S3Region,
			Endpoint:     cfg.Delivery.S3Endpoint,
			UsePathStyle: cfg.Delivery.S3UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown delivery mode %q", cfg.Delivery.Mode)
	}
}
