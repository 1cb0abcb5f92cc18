package store

import (
	"fmt"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
)

// TaskPatch carries a partial content update. Nil fields are left
// untouched; a patch with no fields set is rejected as a no-op.
type TaskPatch struct {
	Name                 *string               `json:"name,omitempty"`
	Description          *string               `json:"description,omitempty"`
	Notes                *string               `json:"notes,omitempty"`
	Summary              *string               `json:"summary,omitempty"`
	Dependencies         *[]string             `json:"dependencies,omitempty"`
	RelatedFiles         *[]domain.RelatedFile `json:"relatedFiles,omitempty"`
	AnalysisResult       *string               `json:"analysisResult,omitempty"`
	ImplementationGuide  *string               `json:"implementationGuide,omitempty"`
	VerificationCriteria *string               `json:"verificationCriteria,omitempty"`
	ProjectID            *string               `json:"projectId,omitempty"`
}

func (p TaskPatch) isEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Notes == nil &&
		p.Summary == nil && p.Dependencies == nil && p.RelatedFiles == nil &&
		p.AnalysisResult == nil && p.ImplementationGuide == nil &&
		p.VerificationCriteria == nil && p.ProjectID == nil
}

// UpdateTaskContent applies a partial update to a task's content fields.
// Completed tasks are immutable. Validation and integrity errors are
// returned synchronously with nothing applied.
func (s *Store) UpdateTaskContent(id string, patch TaskPatch) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	if patch.isEmpty() {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNoOpUpdate, id)
	}
	if t.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyTerminal, id)
	}

	// Validate everything before touching the record.
	if patch.Name != nil && *patch.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "name cannot be empty"}
	}
	var deps []string
	if patch.Dependencies != nil {
		var err error
		deps, err = s.validateDependencyIDs(id, *patch.Dependencies)
		if err != nil {
			return nil, err
		}
	}
	if patch.RelatedFiles != nil {
		for _, f := range *patch.RelatedFiles {
			if err := f.Validate(); err != nil {
				return nil, err
			}
		}
	}
	if patch.ProjectID != nil && *patch.ProjectID != "" {
		if _, ok := s.projects[*patch.ProjectID]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, *patch.ProjectID)
		}
	}

	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Notes != nil {
		t.Notes = *patch.Notes
	}
	if patch.Summary != nil {
		t.Summary = *patch.Summary
	}
	if patch.Dependencies != nil {
		t.Dependencies = deps
	}
	if patch.RelatedFiles != nil {
		t.RelatedFiles = append([]domain.RelatedFile(nil), *patch.RelatedFiles...)
	}
	if patch.AnalysisResult != nil {
		t.AnalysisResult = *patch.AnalysisResult
	}
	if patch.ImplementationGuide != nil {
		t.ImplementationGuide = *patch.ImplementationGuide
	}
	if patch.VerificationCriteria != nil {
		t.VerificationCriteria = *patch.VerificationCriteria
	}
	if patch.ProjectID != nil {
		t.ProjectID = *patch.ProjectID
	}
	t.UpdatedAt = s.now()

	s.afterChange(t)
	return t.Clone(), nil
}

// validateDependencyIDs checks a replacement dependency list: every
// reference must name an existing task, self-dependencies are rejected,
// and duplicates are collapsed.
func (s *Store) validateDependencyIDs(taskID string, refs []string) ([]string, error) {
	out := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref == taskID {
			return nil, &domain.ValidationError{Field: "dependencies", Reason: "task cannot depend on itself"}
		}
		if _, ok := s.tasks[ref]; !ok {
			return nil, &domain.ValidationError{Field: "dependencies", Reason: fmt.Sprintf("unknown dependency reference %q", ref)}
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out, nil
}
