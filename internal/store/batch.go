package store

import (
	"fmt"
	"time"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
	"github.com/google/uuid"
)

// UpdateMode controls how a batch of new tasks merges with existing state.
type UpdateMode string

const (
	// ModeAppend adds new tasks and keeps all existing tasks untouched.
	ModeAppend UpdateMode = "append"
	// ModeOverwrite keeps completed tasks, discards all non-completed
	// tasks not in the new batch, then adds the new batch.
	ModeOverwrite UpdateMode = "overwrite"
	// ModeSelective merges by task name: tasks present in both are updated
	// in place (explicitly supplied fields win), store-only tasks are
	// preserved, batch-only tasks are added. A draft naming a completed
	// task rejects the batch; completed content is immutable.
	ModeSelective UpdateMode = "selective"
)

// ParseUpdateMode parses a mode string, defaulting empty input to append.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch UpdateMode(s) {
	case "":
		return ModeAppend, nil
	case ModeAppend, ModeOverwrite, ModeSelective:
		return UpdateMode(s), nil
	default:
		return "", &domain.ValidationError{Field: "updateMode", Reason: fmt.Sprintf("unknown mode %q", s)}
	}
}

// TaskDraft is one incoming task in a creation batch. Dependencies may
// reference existing task IDs, existing task names, or the names of other
// drafts in the same batch.
type TaskDraft struct {
	Name                 string               `json:"name"`
	Description          string               `json:"description"`
	Notes                string               `json:"notes,omitempty"`
	Dependencies         []string             `json:"dependencies,omitempty"`
	RelatedFiles         []domain.RelatedFile `json:"relatedFiles,omitempty"`
	ImplementationGuide  string               `json:"implementationGuide,omitempty"`
	VerificationCriteria string               `json:"verificationCriteria,omitempty"`
}

// CreateTasks applies a batch of drafts under the given mode. The batch is
// atomic with respect to readers: validation runs over the entire batch
// first and a malformed draft rejects the whole call with nothing applied.
func (s *Store) CreateTasks(drafts []TaskDraft, mode UpdateMode, projectID string) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(drafts) == 0 {
		return nil, &domain.ValidationError{Field: "tasks", Reason: "batch is empty"}
	}
	if projectID != "" {
		if _, ok := s.projects[projectID]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, projectID)
		}
	}

	// First pass: validate drafts and reserve identities so in-batch
	// dependency references by name can resolve.
	idByName := make(map[string]string, len(drafts))
	ids := make([]string, len(drafts))
	for i, d := range drafts {
		if d.Name == "" {
			return nil, &domain.ValidationError{Field: "name", Reason: fmt.Sprintf("task %d: name is required", i)}
		}
		if _, dup := idByName[d.Name]; dup {
			return nil, &domain.ValidationError{Field: "name", Reason: fmt.Sprintf("duplicate task name in batch: %s", d.Name)}
		}
		for _, f := range d.RelatedFiles {
			if err := f.Validate(); err != nil {
				return nil, err
			}
		}
		if mode == ModeSelective {
			if existing := s.taskByName(d.Name); existing != nil && existing.Status.IsTerminal() {
				return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyTerminal, existing.ID)
			}
		}
		ids[i] = uuid.NewString()
		idByName[d.Name] = ids[i]
	}

	// Tasks surviving the mode's merge, used for dependency resolution.
	surviving := s.survivorsFor(mode, idByName)

	resolved := make([][]string, len(drafts))
	for i, d := range drafts {
		deps, err := resolveDependencies(d.Dependencies, idByName, surviving)
		if err != nil {
			return nil, err
		}
		resolved[i] = deps
	}

	// Second pass: commit. From here on nothing can fail, so readers never
	// observe a partial batch.
	switch mode {
	case ModeOverwrite:
		s.discardNonCompleted()
	case ModeSelective:
		// handled per draft below
	}

	now := s.now()
	created := make([]*domain.Task, 0, len(drafts))
	for i, d := range drafts {
		if mode == ModeSelective {
			if existing := s.taskByName(d.Name); existing != nil {
				s.mergeDraft(existing, d, resolved[i], now)
				created = append(created, existing.Clone())
				continue
			}
		}
		t := s.newTaskFromDraft(d, ids[i], resolved[i], projectID, now)
		s.tasks[t.ID] = t
		created = append(created, t.Clone())
	}

	s.afterChange(nil)
	if s.index != nil {
		for _, t := range created {
			if live, ok := s.tasks[t.ID]; ok {
				s.index.Upsert(live.Clone())
			}
		}
	}
	return created, nil
}

// survivorsFor returns the set of existing task IDs that will still exist
// after the merge, plus names resolvable to them. Dependencies may target
// only these or in-batch names.
func (s *Store) survivorsFor(mode UpdateMode, batchNames map[string]string) map[string]string {
	survive := make(map[string]string, len(s.tasks)*2)
	for id, t := range s.tasks {
		if mode == ModeOverwrite && !t.Status.IsTerminal() {
			continue
		}
		if mode == ModeSelective {
			if _, replaced := batchNames[t.Name]; replaced {
				continue
			}
		}
		survive[id] = id
		if _, shadowed := batchNames[t.Name]; !shadowed {
			survive[t.Name] = id
		}
	}
	return survive
}

// resolveDependencies maps each reference onto a concrete task ID. A
// reference that matches neither a surviving task (by ID or name) nor an
// in-batch draft name is a malformed dependency and rejects the batch.
func resolveDependencies(refs []string, batchNames, surviving map[string]string) ([]string, error) {
	out := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		id, ok := batchNames[ref]
		if !ok {
			id, ok = surviving[ref]
		}
		if !ok {
			return nil, &domain.ValidationError{Field: "dependencies", Reason: fmt.Sprintf("unknown dependency reference %q", ref)}
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func (s *Store) newTaskFromDraft(d TaskDraft, id string, deps []string, projectID string, now time.Time) *domain.Task {
	return &domain.Task{
		ID:                   id,
		Name:                 d.Name,
		Description:          d.Description,
		Notes:                d.Notes,
		Status:               domain.StatusPending,
		Dependencies:         deps,
		RelatedFiles:         append([]domain.RelatedFile(nil), d.RelatedFiles...),
		ImplementationGuide:  d.ImplementationGuide,
		VerificationCriteria: d.VerificationCriteria,
		ProjectID:            projectID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// mergeDraft updates an existing task in place for selective mode. Fields
// explicitly supplied by the draft win; empty draft fields leave the
// stored value untouched.
func (s *Store) mergeDraft(t *domain.Task, d TaskDraft, deps []string, now time.Time) {
	if d.Description != "" {
		t.Description = d.Description
	}
	if d.Notes != "" {
		t.Notes = d.Notes
	}
	if d.Dependencies != nil {
		t.Dependencies = deps
	}
	if d.RelatedFiles != nil {
		t.RelatedFiles = append([]domain.RelatedFile(nil), d.RelatedFiles...)
	}
	if d.ImplementationGuide != "" {
		t.ImplementationGuide = d.ImplementationGuide
	}
	if d.VerificationCriteria != "" {
		t.VerificationCriteria = d.VerificationCriteria
	}
	t.UpdatedAt = now
}

// discardNonCompleted removes every non-completed task, for overwrite mode.
func (s *Store) discardNonCompleted() {
	for id, t := range s.tasks {
		if !t.Status.IsTerminal() {
			delete(s.tasks, id)
			if s.index != nil {
				s.index.Remove(id)
			}
		}
	}
}

func (s *Store) taskByName(name string) *domain.Task {
	for _, t := range s.sortedTasks() {
		if t.Name == name {
			return t
		}
	}
	return nil
}
