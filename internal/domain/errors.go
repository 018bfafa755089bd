package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the job subsystem. Callers classify failures with
// errors.Is / errors.As rather than string matching.
var (
	// ErrNotFound indicates the requested job or report id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidState indicates an operation was attempted against a record
	// whose current status does not permit it (retry on a non-failed job,
	// enqueue on a non-pending report).
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrStaleWrite indicates a version-guarded update lost a race with a
	// concurrent writer and was not applied.
	ErrStaleWrite = errors.New("stale write rejected")
)

// ValidationError reports a rejected input field: bad filters, bad dates, or
// a bad status value. It is caller-visible and terminal for the request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UpstreamError wraps a failure from an external collaborator (object store
// or broker). Op names the failing operation.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError wraps err as an UpstreamError for operation op.
func NewUpstreamError(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Err: err}
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
