// Package domain holds the core task and project model shared by every
// other component of the engine.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task is the unit of work tracked by the engine.
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Notes       string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	Status      TaskStatus `json:"status" yaml:"status"`
	// Dependencies lists IDs of tasks that must complete before this one
	// may start. The list never contains duplicates.
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
	// ExecutionOrder is the task's position in the linearized schedule.
	// Nil means "unordered"; unordered tasks sort after all ordered ones.
	// Graph recalculation is the only writer of this field.
	ExecutionOrder *int `json:"executionOrder,omitempty" yaml:"execution_order,omitempty"`

	CreatedAt   time.Time  `json:"createdAt" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updated_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completed_at,omitempty"`

	Summary              string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	RelatedFiles         []RelatedFile       `json:"relatedFiles,omitempty" yaml:"related_files,omitempty"`
	AnalysisResult       string              `json:"analysisResult,omitempty" yaml:"analysis_result,omitempty"`
	ImplementationGuide  string              `json:"implementationGuide,omitempty" yaml:"implementation_guide,omitempty"`
	VerificationCriteria string              `json:"verificationCriteria,omitempty" yaml:"verification_criteria,omitempty"`
	ConversationHistory  []ConversationEntry `json:"conversationHistory,omitempty" yaml:"conversation_history,omitempty"`

	// ProjectID links the task to its owning project. Empty for
	// legacy/global tasks.
	ProjectID string `json:"projectId,omitempty" yaml:"project_id,omitempty"`
}

// NewTask creates a pending task with a fresh identity.
func NewTask(name, description string, now time.Time) *Task {
	return &Task{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  description,
		Status:       StatusPending,
		Dependencies: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy of the task. Components hand out clones so the
// store's authoritative records cannot be mutated behind its back.
func (t *Task) Clone() *Task {
	c := *t
	c.Dependencies = append([]string(nil), t.Dependencies...)
	c.RelatedFiles = append([]RelatedFile(nil), t.RelatedFiles...)
	c.ConversationHistory = append([]ConversationEntry(nil), t.ConversationHistory...)
	if t.ExecutionOrder != nil {
		o := *t.ExecutionOrder
		c.ExecutionOrder = &o
	}
	if t.CompletedAt != nil {
		ca := *t.CompletedAt
		c.CompletedAt = &ca
	}
	return &c
}

// DependsOn reports whether the task lists the given ID as a dependency.
func (t *Task) DependsOn(id string) bool {
	for _, d := range t.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}

// OrderKey returns the sort key for the task's manual order. Unordered
// tasks report ok=false and must sort after every ordered task.
func (t *Task) OrderKey() (int, bool) {
	if t.ExecutionOrder == nil {
		return 0, false
	}
	return *t.ExecutionOrder, true
}

// ConversationEntry is one append-only record of a task's conversation
// history.
type ConversationEntry struct {
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// IsIDQuery reports whether the query string is ID-shaped (a UUID).
// ID-shaped queries bypass fuzzy search and resolve by identity.
func IsIDQuery(q string) bool {
	_, err := uuid.Parse(q)
	return err == nil
}
