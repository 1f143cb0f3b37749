package settings

import (
	"fmt"

	"clipress/internal/services"
)

// Field names reported by ValidationError.
const (
	FieldPreset       = "preset"
	FieldResolution   = "resolution"
	FieldAudioBitrate = "audio_bitrate"
	FieldVideoBitrate = "video_bitrate"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	KindInvalidPreset       ErrorKind = "invalid_preset"
	KindInvalidResolution   ErrorKind = "invalid_resolution"
	KindInvalidAudioBitrate ErrorKind = "invalid_audio_bitrate"
	KindInvalidVideoBitrate ErrorKind = "invalid_video_bitrate"
)

// ValidationError names the settings field holding a value outside its
// enumerated set.
type ValidationError struct {
	Field string
	Kind  ErrorKind
	Value string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: value is required", e.Field)
	}
	return fmt.Sprintf("%s: %q is not an accepted value", e.Field, e.Value)
}

// ErrorKind satisfies services.ErrorClassifier.
func (e *ValidationError) ErrorKind() string { return string(e.Kind) }

// Unwrap tags validation failures with the shared marker.
func (e *ValidationError) Unwrap() error { return services.ErrValidation }
