// Package application orchestrates the store, graph, batcher, and
// archival subsystems behind the operations the CLI and MCP surfaces
// expose.
package application

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
	"github.com/farazpawle/agent-flow-sub001/internal/graph"
	"github.com/farazpawle/agent-flow-sub001/internal/storage"
	"github.com/farazpawle/agent-flow-sub001/internal/store"
)

// batchSchemaJSON validates raw task batches before they reach the store.
const batchSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["name", "description"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"description": {"type": "string", "minLength": 1},
			"notes": {"type": "string"},
			"dependencies": {
				"type": "array",
				"items": {"type": "string"}
			},
			"relatedFiles": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["path", "role"],
					"properties": {
						"path": {"type": "string", "minLength": 1},
						"role": {"type": "string"},
						"description": {"type": "string"},
						"lineStart": {"type": "integer", "minimum": 1},
						"lineEnd": {"type": "integer", "minimum": 1}
					}
				}
			},
			"implementationGuide": {"type": "string"},
			"verificationCriteria": {"type": "string"}
		}
	}
}`

var batchSchemaLoader = gojsonschema.NewStringLoader(batchSchemaJSON)

// VerificationThreshold is the minimum score at which a verified task is
// marked completed.
const VerificationThreshold = 80

// TaskService coordinates task mutations against the store and ensures
// every change is queued for persistence.
type TaskService struct {
	store   *store.Store
	batcher *storage.WriteBatcher
	repo    *storage.FilesystemRepository
	logger  *slog.Logger
}

// NewTaskService creates a task service.
func NewTaskService(st *store.Store, batcher *storage.WriteBatcher, repo *storage.FilesystemRepository, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{store: st, batcher: batcher, repo: repo, logger: logger}
}

// CreateTasks validates and creates a batch of tasks atomically.
func (s *TaskService) CreateTasks(drafts []store.TaskDraft, mode store.UpdateMode, projectID string) ([]*domain.Task, error) {
	created, err := s.store.CreateTasks(drafts, mode, projectID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("tasks created", "count", len(created), "mode", string(mode))
	if warn := s.store.CycleWarning(); warn != nil {
		s.logger.Warn("dependency cycle present after batch", "tasks", warn.Remaining)
	}
	return created, nil
}

// CreateTasksFromJSON validates a raw JSON batch against the batch schema
// before handing it to CreateTasks.
func (s *TaskService) CreateTasksFromJSON(raw []byte, mode store.UpdateMode, projectID string) ([]*domain.Task, error) {
	result, err := gojsonschema.Validate(batchSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &domain.ValidationError{Field: "batch", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if !result.Valid() {
		desc := result.Errors()[0]
		return nil, &domain.ValidationError{Field: desc.Field(), Reason: desc.Description()}
	}

	var drafts []store.TaskDraft
	if err := json.Unmarshal(raw, &drafts); err != nil {
		return nil, &domain.ValidationError{Field: "batch", Reason: fmt.Sprintf("failed to decode: %v", err)}
	}
	return s.CreateTasks(drafts, mode, projectID)
}

// UpdateTaskStatus transitions a task through its lifecycle.
func (s *TaskService) UpdateTaskStatus(id string, target domain.TaskStatus) (*domain.Task, error) {
	return s.store.UpdateTaskStatus(id, target)
}

// StartTask moves a task to in_progress, enforcing dependency gating.
func (s *TaskService) StartTask(id string) (*domain.Task, error) {
	return s.store.UpdateTaskStatus(id, domain.StatusInProgress)
}

// CompleteTask marks a task completed with the given summary.
func (s *TaskService) CompleteTask(id, summary string) (*domain.Task, error) {
	return s.store.CompleteTask(id, summary)
}

// VerifyTask records a verification score. Scores at or above
// VerificationThreshold complete the task; lower scores append the
// feedback to the conversation history for rework.
func (s *TaskService) VerifyTask(id string, score int, summary string) (*domain.Task, error) {
	if score < 0 || score > 100 {
		return nil, &domain.ValidationError{Field: "score", Reason: "must be between 0 and 100"}
	}
	if score >= VerificationThreshold {
		return s.CompleteTask(id, summary)
	}
	feedback := fmt.Sprintf("verification score %d below threshold %d: %s", score, VerificationThreshold, summary)
	return s.store.AppendConversation(id, "verifier", feedback)
}

// UpdateTaskContent applies a partial content update.
func (s *TaskService) UpdateTaskContent(id string, patch store.TaskPatch) (*domain.Task, error) {
	return s.store.UpdateTaskContent(id, patch)
}

// AppendConversation appends one entry to a task's conversation history.
func (s *TaskService) AppendConversation(id, role, content string) (*domain.Task, error) {
	return s.store.AppendConversation(id, role, content)
}

// DeleteTask removes a task, subject to the deletion integrity rules.
func (s *TaskService) DeleteTask(id string) error {
	return s.store.DeleteTask(id)
}

// ReorderTasks applies manual order hints and returns the legalized
// order plus any cycle warning produced by the recalculation.
func (s *TaskService) ReorderTasks(hints []graph.OrderHint) ([]*domain.Task, *domain.CycleError, error) {
	ordered, err := s.store.ReorderTasks(hints)
	if err != nil {
		return nil, nil, err
	}
	return ordered, s.store.CycleWarning(), nil
}

// GetTask returns a single task by ID.
func (s *TaskService) GetTask(id string) (*domain.Task, error) {
	return s.store.GetTask(id)
}

// TaskGroups is a status-grouped listing of tasks.
type TaskGroups struct {
	Groups map[domain.TaskStatus][]*domain.Task
	Counts map[domain.TaskStatus]int
	Total  int
}

// ListTasks returns tasks grouped by status, optionally filtered by a
// single status and/or project.
func (s *TaskService) ListTasks(statusFilter, projectID string) (*TaskGroups, error) {
	f := store.Filter{ProjectID: projectID}
	if statusFilter != "" && statusFilter != "all" {
		st, err := domain.ParseTaskStatus(statusFilter)
		if err != nil {
			return nil, &domain.ValidationError{Field: "status", Reason: err.Error()}
		}
		f.Status = st
	}

	tasks := s.store.ListTasks(f)
	groups := &TaskGroups{
		Groups: make(map[domain.TaskStatus][]*domain.Task),
		Counts: make(map[domain.TaskStatus]int),
	}
	for _, t := range tasks {
		groups.Groups[t.Status] = append(groups.Groups[t.Status], t)
		groups.Counts[t.Status]++
		groups.Total++
	}
	return groups, nil
}

// ClearAllTasks wipes the hot store after writing a timestamped backup.
// The caller must pass confirm=true; this is not undoable without the
// backup file.
func (s *TaskService) ClearAllTasks(confirm bool) (string, int, error) {
	if !confirm {
		return "", 0, &domain.ValidationError{Field: "confirm", Reason: "must be true to clear all tasks"}
	}
	snap := s.store.Snapshot()
	backupFile, err := s.repo.WriteBackup(snap, snap.SavedAt)
	if err != nil {
		return "", 0, err
	}
	removed := s.store.ClearTasks()
	s.logger.Info("all tasks cleared", "removed", removed, "backup", backupFile)
	return backupFile, removed, nil
}

// CycleWarning reports any dependency cycle present after the most
// recent recalculation.
func (s *TaskService) CycleWarning() *domain.CycleError {
	return s.store.CycleWarning()
}

// Flush forces a synchronous write of any pending store changes.
func (s *TaskService) Flush() error {
	return s.batcher.Flush()
}
