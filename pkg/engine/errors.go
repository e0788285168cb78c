package engine

import (
	"errors"
	"fmt"
)

// ErrEventNotFound is returned by Resolve for an unknown event id.
var ErrEventNotFound = fmt.Errorf("no failure event with this id")

// StorageError wraps any failure of the underlying persistence layer: disk
// full, permission denied, lock-wait budget exhausted. It is always surfaced
// to the caller, never swallowed; retrying is the caller's decision.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err unless it already carries a classification.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsStorageError(err) || IsValidationError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ValidationError marks malformed input, rejected before any store access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for one input field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
