// Package errors provides custom error types for the I/O layers of the scanner.
// Detectors never return errors; a missing pattern is a normal result.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrInvalidSeries   = errors.New("invalid bar series")
	ErrDataNotFound    = errors.New("data not found")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrDatabaseError   = errors.New("database error")
	ErrTimeout         = errors.New("operation timed out")
	ErrInputValidation = errors.New("input validation failed")
)

// DataError represents a problem reading bar data from a source.
// Row is the 1-based data row, or 0 when the error is not tied to a row.
type DataError struct {
	Source  string
	Row     int
	Message string
	Err     error
}

func (e *DataError) Error() string {
	loc := e.Source
	if e.Row > 0 {
		loc = fmt.Sprintf("%s:%d", e.Source, e.Row)
	}
	if e.Err != nil {
		return fmt.Sprintf("data error [%s]: %s: %v", loc, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s]: %s", loc, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(source string, row int, message string, err error) *DataError {
	return &DataError{
		Source:  source,
		Row:     row,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// StoreError represents a failed persistence operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [%s]: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrDatabaseError and the driver error.
func (e *StoreError) Unwrap() []error {
	return []error{ErrDatabaseError, e.Err}
}

// NewStoreError creates a new StoreError.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// IsRetryable reports whether err is a transient failure worth retrying,
// such as a timeout or a locked SQLite database.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
