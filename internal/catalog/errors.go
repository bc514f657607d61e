package catalog

import (
	"errors"
	"fmt"
)

var (
	// Validation errors
	ErrTitleRequired       = errors.New("title is required")
	ErrFileRequired        = errors.New("no video file selected")
	ErrNotVideo            = errors.New("file is not a video")
	ErrInvalidRating       = errors.New("rating must be between 1 and 10 in steps of 0.5")
	ErrUnknownGenre        = errors.New("unknown genre")
	ErrFingerprintMismatch = errors.New("file does not match the original upload")

	// Lookup and playback errors
	ErrInvalidID  = errors.New("invalid entry id")
	ErrNotFound   = errors.New("entry not found")
	ErrStaleTick  = errors.New("stale progress tick")
	ErrProbeStuck = errors.New("media metadata did not become available in time")
)

// ValidationError reports a rejected user input. Nothing is persisted when
// an operation fails with it.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ProbeError reports that the duration of an uploaded file could not be read.
type ProbeError struct {
	Ref string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Ref, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// PersistenceError wraps a substrate failure. It is logged, never returned
// to the UI.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsProbe reports whether err is (or wraps) a ProbeError.
func IsProbe(err error) bool {
	var p *ProbeError
	return errors.As(err, &p)
}
