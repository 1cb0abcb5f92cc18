package application

import (
	"log/slog"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
	"github.com/farazpawle/agent-flow-sub001/internal/store"
)

// ProjectService manages project records and their task groupings.
type ProjectService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewProjectService creates a project service.
func NewProjectService(st *store.Store, logger *slog.Logger) *ProjectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectService{store: st, logger: logger}
}

// CreateProject registers a new project.
func (s *ProjectService) CreateProject(draft store.ProjectDraft) (*domain.Project, error) {
	p, err := s.store.CreateProject(draft)
	if err != nil {
		return nil, err
	}
	s.logger.Info("project created", "id", p.ID, "name", p.Name)
	return p, nil
}

// GetProject returns a project with its task count.
func (s *ProjectService) GetProject(id string) (*domain.Project, error) {
	return s.store.GetProject(id)
}

// ListProjects returns all projects sorted by creation time.
func (s *ProjectService) ListProjects() []*domain.Project {
	return s.store.ListProjects()
}

// DeleteProject removes a project and all its tasks. Deletion is refused
// if any owned task is completed or is a dependency of a task outside
// the project.
func (s *ProjectService) DeleteProject(id string) error {
	if err := s.store.DeleteProject(id); err != nil {
		return err
	}
	s.logger.Info("project deleted", "id", id)
	return nil
}
