package store

import (
	"fmt"
	"sort"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
)

// ProjectDraft is the input for project creation.
type ProjectDraft struct {
	Name         string
	Description  string
	Path         string
	GitRemoteURL string
	TechStack    []string
}

// CreateProject adds a new project.
func (s *Store) CreateProject(d ProjectDraft) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "project name is required"}
	}

	p := domain.NewProject(d.Name, s.now())
	p.Description = d.Description
	p.Path = d.Path
	p.GitRemoteURL = d.GitRemoteURL
	p.TechStack = append([]string(nil), d.TechStack...)
	s.projects[p.ID] = p

	if s.notifier != nil {
		s.notifier.MarkDirty()
	}
	return s.withTaskCount(p), nil
}

// GetProject returns a copy of the project with its derived task count.
func (s *Store) GetProject(id string) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, id)
	}
	return s.withTaskCount(p), nil
}

// ListProjects returns all projects ordered by creation time.
func (s *Store) ListProjects() []*domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Project, 0, len(s.projects))
	for _, p := range s.sortedProjects() {
		out = append(out, s.withTaskCount(p))
	}
	return out
}

// DeleteProject removes a project and cascades to its owned tasks under
// the same deletion integrity rules: the cascade fails loudly, with
// nothing applied, if any owned task is completed or is a dependency
// target of a task outside the project.
func (s *Store) DeleteProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrProjectNotFound, id)
	}

	owned := make(map[string]bool)
	var ownedIDs []string
	for _, t := range s.sortedTasks() {
		if t.ProjectID == id {
			owned[t.ID] = true
			ownedIDs = append(ownedIDs, t.ID)
		}
	}

	// External dependents win over the terminal rule, matching DeleteTask.
	var blocked []string
	var terminal string
	for _, tid := range ownedIDs {
		if deps := s.dependentsOf(tid, owned); len(deps) > 0 {
			blocked = append(blocked, deps...)
		}
		if terminal == "" && s.tasks[tid].Status.IsTerminal() {
			terminal = tid
		}
	}
	if len(blocked) > 0 {
		sort.Strings(blocked)
		return &domain.DeletionBlockedError{TaskID: id, Dependents: dedupe(blocked)}
	}
	if terminal != "" {
		return fmt.Errorf("%w: project %s owns completed task %s", domain.ErrCannotDeleteCompleted, id, terminal)
	}

	for _, tid := range ownedIDs {
		delete(s.tasks, tid)
		if s.index != nil {
			s.index.Remove(tid)
		}
	}
	delete(s.projects, id)
	s.afterChange(nil)
	return nil
}

// withTaskCount clones a project and fills in the derived task count.
func (s *Store) withTaskCount(p *domain.Project) *domain.Project {
	c := p.Clone()
	c.TaskCount = 0
	for _, t := range s.tasks {
		if t.ProjectID == p.ID {
			c.TaskCount++
		}
	}
	return c
}
