package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Artifact Errors
// ============================================================================

var (
	ErrArtifactLoad            = errors.New("artifact load failed")
	ErrNoArtifact              = errors.New("no model artifact loaded")
	ErrUnsupportedArtifactRef  = errors.New("no artifact source supports this reference")
	ErrArtifactVersionConflict = errors.New("artifact version already loaded with different content")
	ErrInvalidArtifact         = errors.New("invalid artifact document")
)

// ============================================================================
// Prediction Errors
// ============================================================================

var (
	ErrValidation      = errors.New("validation failed")
	ErrInference       = errors.New("inference failed")
	ErrTimeout         = errors.New("prediction timed out")
	ErrShuttingDown    = errors.New("service is shutting down")
	ErrSchedulerClosed = errors.New("batch scheduler is closed")
)

// ============================================================================
// Report Errors
// ============================================================================

var (
	ErrReportsDisabled = errors.New("prediction reports are not enabled")
	ErrInvalidLimit    = errors.New("limit must be between 1 and 100")
)

// FieldError is a ValidationError naming the offending feature.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid feature %q: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// LoadError is an ArtifactLoadError for one artifact reference.
type LoadError struct {
	Ref string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load artifact %q: %v", e.Ref, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrArtifactLoad, e.Err} }

// BatchError is an InferenceError shared by every member of a failed job.
type BatchError struct {
	JobID uint64
	Size  int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (%d requests): %v", e.JobID, e.Size, e.Err)
}

func (e *BatchError) Unwrap() []error { return []error{ErrInference, e.Err} }
