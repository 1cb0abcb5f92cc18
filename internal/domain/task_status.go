package domain

import (
	"encoding/json"
	"fmt"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

// validTransitions defines the allowed state transitions and their events.
// Map: currentStatus -> event -> targetStatus
var validTransitions = map[TaskStatus]map[string]TaskStatus{
	StatusPending: {
		"start": StatusInProgress,
		"block": StatusBlocked,
	},
	StatusInProgress: {
		"complete": StatusCompleted,
		"block":    StatusBlocked,
		"stop":     StatusPending,
	},
	StatusBlocked: {
		"unblock": StatusPending,
	},
	// Completed is terminal: re-execution requires deletion + recreation.
	StatusCompleted: {},
}

// AllTaskStatuses returns all valid task statuses.
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{
		StatusPending,
		StatusInProgress,
		StatusCompleted,
		StatusBlocked,
	}
}

// IsValid returns true if the status is a valid task status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are allowed.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted
}

// IsInProgress returns true if the task is currently being worked on.
func (s TaskStatus) IsInProgress() bool {
	return s == StatusInProgress
}

// CanTransitionTo returns true if a transition from the current status to
// the target is allowed.
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// EventFor returns the event that moves this status to the target, or an
// error when no such transition exists.
func (s TaskStatus) EventFor(target TaskStatus) (string, error) {
	for event, t := range validTransitions[s] {
		if t == target {
			return event, nil
		}
	}
	return "", fmt.Errorf("no transition from %q to %q", s, target)
}

// ValidEvents returns all valid events that can be triggered from this
// status.
func (s TaskStatus) ValidEvents() []string {
	var events []string
	for event := range validTransitions[s] {
		events = append(events, event)
	}
	return events
}

// DisplayName returns a human-readable display name for the status.
func (s TaskStatus) DisplayName() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusBlocked:
		return "Blocked"
	default:
		return string(s)
	}
}

// ParseTaskStatus parses a string into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid task status: %s", s)
	}
	return status, nil
}

// MarshalJSON implements json.Marshaler.
func (s TaskStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	// Accept empty string as pending for backward compatibility
	if str == "" {
		*s = StatusPending
		return nil
	}

	status := TaskStatus(str)
	if !status.IsValid() {
		return fmt.Errorf("invalid task status: %s", str)
	}

	*s = status
	return nil
}
