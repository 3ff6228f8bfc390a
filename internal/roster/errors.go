package roster

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for roster operations.
var (
	// ErrEmptyName indicates a required name field is blank.
	ErrEmptyName = errors.New("roster: name is required")

	// ErrInvalidGrade indicates a grade outside 1..MaxGrade.
	ErrInvalidGrade = errors.New("roster: invalid grade")

	// ErrInvalidRole indicates a role other than homeroom or assistant.
	ErrInvalidRole = errors.New("roster: invalid role")

	// ErrNoAssignments indicates a teacher without at least one subject and class.
	ErrNoAssignments = errors.New("roster: at least one subject with one class is required")

	// ErrInvalidSlot indicates a meeting day or period outside 1..7.
	ErrInvalidSlot = errors.New("roster: invalid day or period")

	// ErrInvalidHours indicates a negative hour count.
	ErrInvalidHours = errors.New("roster: invalid hours")

	// ErrDuplicate indicates a name or id that must be unique already exists.
	ErrDuplicate = errors.New("roster: already exists")

	// ErrIndexOutOfRange indicates an index-based update on a missing record.
	ErrIndexOutOfRange = errors.New("roster: index out of range")

	// ErrConfirmationMismatch indicates a removal whose confirmation name does not match.
	ErrConfirmationMismatch = errors.New("roster: confirmation does not match")

	// ErrSaveFailed indicates the change was applied in memory but could not be persisted.
	ErrSaveFailed = errors.New("roster: failed to persist changes")

	// ErrMalformedProject indicates an import payload that is not valid JSON.
	ErrMalformedProject = errors.New("roster: failed to read project file")

	// ErrInvalidProjectFormat indicates an import payload missing teachers or classes.
	ErrInvalidProjectFormat = errors.New("roster: invalid project file format")
)

// ValidationError is a single rejected field.
type ValidationError struct {
	Field   string
	Message string
	Value   any
	Wrapped error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Wrapped
}

// ValidationErrors collects every rejected field of one record.
type ValidationErrors struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Is reports whether any contained error wraps target.
func (e *ValidationErrors) Is(target error) bool {
	for _, ve := range e.Errors {
		if ve.Wrapped != nil && errors.Is(ve.Wrapped, target) {
			return true
		}
	}
	return false
}

func (e *ValidationErrors) add(field, message string, value any, wrapped error) {
	e.Errors = append(e.Errors, ValidationError{Field: field, Message: message, Value: value, Wrapped: wrapped})
}

// err returns nil when nothing was collected.
func (e *ValidationErrors) err() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
