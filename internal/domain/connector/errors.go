package connector

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors for connector entities
var (
	ErrInvalidBackendName    = errors.New("connector: backend name is required")
	ErrInvalidVersion        = errors.New("connector: unsupported PrestaShop version")
	ErrInvalidLocation       = errors.New("connector: backend location is required")
	ErrInvalidWebserviceKey  = errors.New("connector: webservice key is required")
	ErrInvalidBackendID      = errors.New("connector: invalid backend ID")
	ErrInvalidModel          = errors.New("connector: unknown binding model")
	ErrInvalidExternalID     = errors.New("connector: external ID must be positive")
	ErrInvalidInternalID     = errors.New("connector: invalid internal ID")
	ErrInvalidJobMethod      = errors.New("connector: unknown job method")
	ErrEmptyCheckpoint       = errors.New("connector: checkpoint message is required")
	ErrBindingConflict       = errors.New("connector: PrestaShop record is already bound to another record")
	ErrBackendNotFound       = errors.New("connector: backend not found")
	ErrBindingNotFound       = errors.New("connector: binding not found")
	ErrJobNotFound           = errors.New("connector: job not found")
	ErrCheckpointNotFound    = errors.New("connector: checkpoint not found")
	ErrNoDefaultLanguage     = errors.New("connector: backend has no default language")
	ErrLanguageNotConfigured = errors.New("connector: language is not configured on backend")
)

// RetryableJobError means the job can be run again later, e.g. because a
// lock is held by another worker or the PrestaShop server is unavailable.
type RetryableJobError struct {
	Message string
	// RetryAfter overrides the queue's default retry delay when positive
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableJobError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RetryableJobError) Unwrap() error { return e.Err }

// NewRetryableJobError creates a RetryableJobError
func NewRetryableJobError(message string, retryAfter time.Duration, err error) error {
	return &RetryableJobError{Message: message, RetryAfter: retryAfter, Err: err}
}

// FailedJobError means the job must not be retried without a manual action
type FailedJobError struct {
	Message string
	Err     error
}

func (e *FailedJobError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FailedJobError) Unwrap() error { return e.Err }

// NewFailedJobError creates a FailedJobError
func NewFailedJobError(message string, err error) error {
	return &FailedJobError{Message: message, Err: err}
}

// NothingToDoJob means the job has nothing to do; it is not an error for the queue
type NothingToDoJob struct {
	Message string
}

func (e *NothingToDoJob) Error() string { return e.Message }

// NewNothingToDoJob creates a NothingToDoJob
func NewNothingToDoJob(format string, args ...any) error {
	return &NothingToDoJob{Message: fmt.Sprintf(format, args...)}
}

// MappingError is raised when a value cannot be mapped, typically because
// a related record is not bound yet.
type MappingError struct {
	Message string
}

func (e *MappingError) Error() string { return e.Message }

// NewMappingError creates a MappingError
func NewMappingError(format string, args ...any) error {
	return &MappingError{Message: fmt.Sprintf(format, args...)}
}

// InvalidDataError is raised when PrestaShop data cannot be imported as is
type InvalidDataError struct {
	Message string
	Err     error
}

func (e *InvalidDataError) Error() string { return e.Message }

func (e *InvalidDataError) Unwrap() error { return e.Err }

// NewInvalidDataError creates an InvalidDataError
func NewInvalidDataError(err error, format string, args ...any) error {
	return &InvalidDataError{Message: fmt.Sprintf(format, args...), Err: err}
}

// IDMissingInBackend is returned when the record does not exist on PrestaShop
type IDMissingInBackend struct {
	Resource string
	ID       int64
}

func (e *IDMissingInBackend) Error() string {
	return fmt.Sprintf("connector: %s with id %d does not exist on PrestaShop", e.Resource, e.ID)
}

// IsRetryable reports whether err is a RetryableJobError and returns it
func IsRetryable(err error) (*RetryableJobError, bool) {
	var target *RetryableJobError
	ok := errors.As(err, &target)
	return target, ok
}

// IsNothingToDo reports whether err is a NothingToDoJob
func IsNothingToDo(err error) bool {
	var target *NothingToDoJob
	return errors.As(err, &target)
}

// IsIDMissing reports whether err is an IDMissingInBackend
func IsIDMissing(err error) bool {
	var target *IDMissingInBackend
	return errors.As(err, &target)
}

// IsMappingError reports whether err is a MappingError
func IsMappingError(err error) bool {
	var target *MappingError
	return errors.As(err, &target)
}
