package simplepublish

import (
	"errors"
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Error types
var (
	// ErrValidation matches every ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrConflict matches every ConflictError
	ErrConflict = errors.New("already exists")

	// ErrNotFound matches every NotFoundError
	ErrNotFound = errors.New("not found")

	// ErrObjectNotFound is returned by blob stores for missing keys
	ErrObjectNotFound = errors.New("object not found")

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrFileTooLarge indicates an upload exceeded the configured limit
	ErrFileTooLarge = errors.New("file too large")
)

// ValidationError reports bad or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// newValidationError converts an ozzo-validation result. The first field in
// name order becomes Field so the message is stable.
func newValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) && len(errs) > 0 {
		fields := make([]string, 0, len(errs))
		for f := range errs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		return &ValidationError{Field: fields[0], Message: errs[fields[0]].Error()}
	}
	return &ValidationError{Message: err.Error()}
}

// ConflictError reports a duplicate unique key, such as a slug.
type ConflictError struct {
	Resource string
	Key      string
	// Reason replaces the default "already exists" wording when set.
	Reason string
}

// NewConflictError is used by repositories when a unique constraint fails.
func NewConflictError(resource, key string) *ConflictError {
	return &ConflictError{Resource: resource, Key: key}
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %q %s", e.Resource, e.Key, e.Reason)
	}
	return fmt.Sprintf("%s %q already exists", e.Resource, e.Key)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Resource string
	Key      string
}

// NewNotFoundError is used by repositories and stores for missing rows.
func NewNotFoundError(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistenceError represents a failure of the structured store
type PersistenceError struct {
	Resource string
	Key      string
	Op       string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s operation %s failed for %s: %v", e.Resource, e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// MirrorError represents a failed flat-file write after the record itself
// was stored
type MirrorError struct {
	Slug string
	Op   string
	Err  error
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("mirror operation %s failed for %s: %v", e.Op, e.Slug, e.Err)
}

func (e *MirrorError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// isDomainError reports whether err already carries a caller-facing type.
func isDomainError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound)
}
