package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates the referenced id is absent or soft-deleted.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates invalid input or a violated uniqueness constraint.
	ErrValidation = errors.New("validation failed")
	// ErrStorage indicates a persistence or transaction failure. Nothing partial is left visible.
	ErrStorage = errors.New("storage failure")
	// ErrConcurrencyConflict indicates a stale read detected at commit time.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ValidationError carries a human readable message and optional per-field detail.
// Err optionally names a more specific cause, such as a package sentinel.
type ValidationError struct {
	Message string
	Fields  map[string]string
	Err     error
}

// NewValidationError builds a ValidationError without field detail.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// FieldError builds a ValidationError for a single field.
func FieldError(field, message string) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("%s %s", field, message),
		Fields:  map[string]string{field: message},
	}
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// NotFoundError names the entity kind and id that could not be resolved.
type NotFoundError struct {
	Entity string
	ID     string
}

// NewNotFoundError builds a NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StorageError wraps a driver failure with the operation that produced it.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err. A nil err yields nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// IsTaxonomy reports whether err already belongs to one of the error kinds above.
func IsTaxonomy(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrConcurrencyConflict)
}
