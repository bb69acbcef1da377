// Package evalerr defines the error taxonomy of an evaluation run.
//
// Each typed error matches its sentinel through errors.Is, so callers can branch on
// the category without caring which concrete struct carried it.
package evalerr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the category of shape and dimension mismatches.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientData is the category of empty or too-small inputs.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrBackend is the category of failed calls against the search backend.
	ErrBackend = errors.New("backend operation failed")
	// ErrMissingPrecomputedData is the category of absent upstream artifacts.
	ErrMissingPrecomputedData = errors.New("missing precomputed data")
)

// ValidationError reports a dimension or shape mismatch.
type ValidationError struct {
	Field    string
	Expected int
	Actual   int
	Msg      string
}

// DimensionMismatch returns a ValidationError for a vector of the wrong length.
func DimensionMismatch(field string, expected, actual int) *ValidationError {
	return &ValidationError{Field: field, Expected: expected, Actual: actual}
}

// Invalid returns a ValidationError with a free-form message.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: dimension mismatch: expected %d, got %d", e.Field, e.Expected, e.Actual)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InsufficientDataError reports an input that is empty or too small to proceed.
type InsufficientDataError struct {
	What string
	Have int
	Need int
}

// Insufficient returns an InsufficientDataError for what, with have < need.
func Insufficient(what string, have, need int) *InsufficientDataError {
	return &InsufficientDataError{What: what, Have: have, Need: need}
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s: have %d, need at least %d", e.What, e.Have, e.Need)
}

// Is matches ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// BackendOperationError reports one failed backend call.
type BackendOperationError struct {
	Op     string
	Index  string
	Status int
	Cause  error
}

func (e *BackendOperationError) Error() string {
	msg := fmt.Sprintf("backend %s on %q failed", e.Op, e.Index)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BackendOperationError) Unwrap() error { return e.Cause }

// Is matches ErrBackend.
func (e *BackendOperationError) Is(target error) bool { return target == ErrBackend }

// MissingPrecomputedDataError reports an artifact that an earlier stage should have produced.
type MissingPrecomputedDataError struct {
	Path  string
	Stage string
}

func (e *MissingPrecomputedDataError) Error() string {
	return fmt.Sprintf("no precomputed data at %s (run the %q stage first)", e.Path, e.Stage)
}

// Is matches ErrMissingPrecomputedData.
func (e *MissingPrecomputedDataError) Is(target error) bool {
	return target == ErrMissingPrecomputedData
}
