package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates that the request lacks valid authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates that the request was rate limited.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that a backing store is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrPartialWrite indicates that a dual write was accepted by only one store.
	ErrPartialWrite = errors.New("partial write")

	// ErrCancelled indicates that an operation was cancelled.
	ErrCancelled = errors.New("cancelled")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyExistsError provides details about a duplicate entity.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyExistsError) Unwrap() error {
	return ErrAlreadyExists
}

// StoreUnavailableError reports a connection, timeout or driver failure in one store.
// It is never a "zero results" signal.
type StoreUnavailableError struct {
	Store     Store
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StoreUnavailableError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s store unavailable during %s", e.Store, e.Operation)
	}
	return fmt.Sprintf("%s store unavailable during %s: %v", e.Store, e.Operation, e.Cause)
}

// Unwrap exposes both the sentinel and the driver cause, so errors.Is matches
// ErrServiceUnavailable as well as context.DeadlineExceeded.
func (e *StoreUnavailableError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrServiceUnavailable}
	}
	return []error{ErrServiceUnavailable, e.Cause}
}

// PartialWriteError reports a dual write that only one store accepted.
type PartialWriteError struct {
	Operation string
	PaperID   string
	Result    *WriteResult
}

// Error implements the error interface.
func (e *PartialWriteError) Error() string {
	if e.Result == nil {
		return fmt.Sprintf("partial write during %s of paper %s", e.Operation, e.PaperID)
	}
	return fmt.Sprintf("partial write during %s of paper %s: relational=%s document=%s",
		e.Operation, e.PaperID, e.Result.Relational.Status, e.Result.Document.Status)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *PartialWriteError) Unwrap() error {
	return ErrPartialWrite
}

// WriteFailedError reports a dual write that no store accepted, with the
// outcome of each store.
type WriteFailedError struct {
	Operation string
	PaperID   string
	Result    *WriteResult
}

// Error implements the error interface.
func (e *WriteFailedError) Error() string {
	return fmt.Sprintf("%s paper %s failed in both stores: relational: %s; document: %s",
		e.Operation, e.PaperID, e.Result.Relational.Error, e.Result.Document.Error)
}

// Unwrap exposes both store errors.
func (e *WriteFailedError) Unwrap() []error {
	var errs []error
	for _, err := range []error{e.Result.Relational.Err, e.Result.Document.Err} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewStoreUnavailableError creates a new StoreUnavailableError.
func NewStoreUnavailableError(store Store, operation string, cause error) *StoreUnavailableError {
	return &StoreUnavailableError{
		Store:     store,
		Operation: operation,
		Cause:     cause,
	}
}

// NewPartialWriteError creates a new PartialWriteError.
func NewPartialWriteError(operation, paperID string, result *WriteResult) *PartialWriteError {
	return &PartialWriteError{
		Operation: operation,
		PaperID:   paperID,
		Result:    result,
	}
}

// NewWriteFailedError creates a new WriteFailedError.
func NewWriteFailedError(operation, paperID string, result *WriteResult) *WriteFailedError {
	return &WriteFailedError{
		Operation: operation,
		PaperID:   paperID,
		Result:    result,
	}
}
