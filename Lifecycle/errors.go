package Lifecycle

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"Workforce/Models"
)

// ErrNotFound is returned when a task or user does not exist.
var ErrNotFound = Models.ErrRecordNotFound

// AuthorizationError means the actor has the wrong role or the wrong
// relationship to the task for the requested action.
type AuthorizationError struct {
	ActorID uint
	TaskID  uint
	Action  string
}

func (e *AuthorizationError) Error() string {
	if e.TaskID == 0 {
		return fmt.Sprintf("user %d is not allowed to %s", e.ActorID, e.Action)
	}
	return fmt.Sprintf("user %d is not allowed to %s task %d", e.ActorID, e.Action, e.TaskID)
}

// InvalidStateError means the action is not legal from the task's current
// status. Callers should reload the task.
type InvalidStateError struct {
	TaskID uint
	Status Models.TaskStatus
	Event  Event
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s task %d while it is %s", e.Event, e.TaskID, e.Status)
}

// MissingReport names an accepted task that has no report for the day.
type MissingReport struct {
	TaskID uint   `json:"task_id"`
	Title  string `json:"title"`
}

// PolicyViolation is the reporting gate refusing an acceptance.
type PolicyViolation struct {
	Day     string          `json:"day"`
	Missing []MissingReport `json:"missing"`
}

func (e *PolicyViolation) Error() string {
	ids := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		ids = append(ids, fmt.Sprint(m.TaskID))
	}
	return fmt.Sprintf("reports for %s are missing on tasks %s", e.Day, strings.Join(ids, ", "))
}

func (e *PolicyViolation) TaskIDs() []uint {
	ids := make([]uint, 0, len(e.Missing))
	for _, m := range e.Missing {
		ids = append(ids, m.TaskID)
	}
	return ids
}

// ValidationError carries a message per offending input field.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// TransientIOError wraps a store failure. It is never retried here.
type TransientIOError struct {
	Op  string
	Err error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientIOError) Unwrap() error {
	return e.Err
}

// storeError classifies a repository error. Missing records keep ErrNotFound
// in the chain; everything else becomes a TransientIOError.
func storeError(op string, err error) error {
	if errors.Is(err, Models.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &TransientIOError{Op: op, Err: err}
}
