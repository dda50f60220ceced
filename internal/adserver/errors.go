package adserver

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a lookup that did not resolve. The serving path never
// surfaces it to the widget (an unresolvable slot is a no-fill, not an
// error); the management API maps it to 404.
var ErrNotFound = errors.New("not found")

// ValidationError marks malformed input to a write operation. The write is
// rejected synchronously and never partially applied.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError marks a write that collides with existing state, e.g. a
// duplicate provider name. The caller must retry with a different value.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func conflictf(format string, args ...interface{}) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// StorageError marks a backing-store failure. Retryable from the caller's
// perspective; the wrapped cause is preserved for logging.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return "storage error: " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
