package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across the engine.
var (
	// ErrTaskNotFound indicates a referenced task is absent from the store.
	ErrTaskNotFound = errors.New("task not found")
	// ErrProjectNotFound indicates a referenced project is absent.
	ErrProjectNotFound = errors.New("project not found")
	// ErrAlreadyTerminal indicates a completed task was asked to transition.
	ErrAlreadyTerminal = errors.New("task is completed and cannot be re-executed without deletion and recreation")
	// ErrCannotDeleteCompleted indicates a completed task was asked to delete.
	ErrCannotDeleteCompleted = errors.New("completed tasks cannot be deleted")
	// ErrNoOpUpdate indicates a content update supplied no fields.
	ErrNoOpUpdate = errors.New("no fields supplied for update")
)

// ValidationError reports malformed input on a specific field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// DependenciesUnmetError blocks execution while dependencies remain
// incomplete. Unmet names the blocking task IDs.
type DependenciesUnmetError struct {
	TaskID string
	Unmet  []string
}

func (e *DependenciesUnmetError) Error() string {
	return fmt.Sprintf("task %s cannot start: dependencies not completed: %s",
		e.TaskID, strings.Join(e.Unmet, ", "))
}

// DeletionBlockedError blocks deletion of a task other tasks depend on.
// Dependents names the still-existing tasks whose dependency lists
// reference the target.
type DeletionBlockedError struct {
	TaskID     string
	Dependents []string
}

func (e *DeletionBlockedError) Error() string {
	return fmt.Sprintf("task %s cannot be deleted: still a dependency of: %s",
		e.TaskID, strings.Join(e.Dependents, ", "))
}

// CycleError is a warning, not a hard failure: the graph engine found an
// unsortable residue and produced a best-effort order. Remaining names the
// tasks inside the cycle.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected among tasks: %s",
		strings.Join(e.Remaining, ", "))
}

// PersistenceError wraps a durable-write failure. The write batcher keeps
// its dirty flag set when this occurs so the flush retries on the next
// trigger; in-memory state remains the source of truth.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
