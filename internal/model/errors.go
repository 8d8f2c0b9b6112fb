package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

// DeviceErrorReason classifies capture-device failures.
type DeviceErrorReason string

const (
	DevicePermissionDenied DeviceErrorReason = "permission_denied"
	DeviceNotFound         DeviceErrorReason = "no_device"
	DeviceBusy             DeviceErrorReason = "device_busy"
)

// DeviceError reports a capture-device acquisition or read failure. The
// recording session parks in its error state and may be restarted.
type DeviceError struct {
	Reason  DeviceErrorReason
	Message string
}

func (e DeviceError) Error() string {
	return fmt.Sprintf("device %s: %s", e.Reason, e.Message)
}

// NewDeviceError constructs DeviceError
func NewDeviceError(reason DeviceErrorReason, message string) DeviceError {
	return DeviceError{Reason: reason, Message: message}
}

// IsDeviceError checks if an error is a DeviceError (including wrapped errors)
func IsDeviceError(err error) bool {
	var de DeviceError
	return errors.As(err, &de)
}

// PersistenceError reports a failed durable read/write/delete. The in-memory
// view is unchanged whenever one is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError constructs PersistenceError
func NewPersistenceError(op string, err error) PersistenceError {
	return PersistenceError{Op: op, Err: err}
}

// IsPersistenceError checks if error is PersistenceError
func IsPersistenceError(err error) bool {
	var pe PersistenceError
	return errors.As(err, &pe)
}

// CollaboratorError reports a failed call to an external collaborator such
// as the transcription or insights service. Session and repository state are
// untouched, so the caller may retry without re-recording.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e CollaboratorError) Error() string {
	return fmt.Sprintf("%s collaborator: %v", e.Collaborator, e.Err)
}

func (e CollaboratorError) Unwrap() error { return e.Err }

// NewCollaboratorError constructs CollaboratorError
func NewCollaboratorError(collaborator string, err error) CollaboratorError {
	return CollaboratorError{Collaborator: collaborator, Err: err}
}

// IsCollaboratorError checks if error is CollaboratorError
func IsCollaboratorError(err error) bool {
	var ce CollaboratorError
	return errors.As(err, &ce)
}

// ValidationError represents a validation error in the domain
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error (including wrapped errors)
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
