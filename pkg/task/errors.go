package task

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced task or subtask does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateID is returned when an insert collides with an existing id.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable marks a failed load or save. The caller may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConflict is returned by Store.Save when the stored revision moved on.
	ErrConflict = errors.New("revision conflict")
)

// ValidationError describes a malformed request field.
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

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func taskNotFound(id string) error {
	return fmt.Errorf("task %s: %w", id, ErrNotFound)
}

func subtaskNotFound(taskID, subtaskID string) error {
	return fmt.Errorf("subtask %s of task %s: %w", subtaskID, taskID, ErrNotFound)
}
