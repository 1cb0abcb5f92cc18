package store

import (
	"errors"
	"testing"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
)

func TestCreateProject_RequiresName(t *testing.T) {
	s, _ := newTestStore()
	if _, err := s.CreateProject(ProjectDraft{}); err == nil {
		t.Fatal("expected validation error for missing name")
	}
}

func TestProject_TaskCountDerived(t *testing.T) {
	s, _ := newTestStore()
	p, err := s.CreateProject(ProjectDraft{Name: "engine"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	if _, err := s.CreateTasks([]TaskDraft{
		{Name: "one", Description: "d"},
		{Name: "two", Description: "d"},
	}, ModeAppend, p.ID); err != nil {
		t.Fatalf("create tasks: %v", err)
	}

	got, err := s.GetProject(p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.TaskCount != 2 {
		t.Errorf("expected task count 2, got %d", got.TaskCount)
	}
}

func TestDeleteProject_CascadesToOwnedTasks(t *testing.T) {
	s, _ := newTestStore()
	p, _ := s.CreateProject(ProjectDraft{Name: "engine"})
	if _, err := s.CreateTasks([]TaskDraft{
		{Name: "one", Description: "d"},
		{Name: "two", Description: "d", Dependencies: []string{"one"}},
	}, ModeAppend, p.ID); err != nil {
		t.Fatalf("create tasks: %v", err)
	}

	if err := s.DeleteProject(p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if got := s.ListTasks(Filter{}); len(got) != 0 {
		t.Errorf("owned tasks must cascade, found %d", len(got))
	}
}

func TestDeleteProject_BlockedByCompletedTask(t *testing.T) {
	s, _ := newTestStore()
	p, _ := s.CreateProject(ProjectDraft{Name: "engine"})
	created, err := s.CreateTasks([]TaskDraft{{Name: "one", Description: "d"}}, ModeAppend, p.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	completeTask(t, s, created[0].ID)

	err = s.DeleteProject(p.ID)
	if !errors.Is(err, domain.ErrCannotDeleteCompleted) {
		t.Fatalf("expected ErrCannotDeleteCompleted, got %v", err)
	}
	if _, err := s.GetProject(p.ID); err != nil {
		t.Error("failed cascade must leave the project intact")
	}
}

func TestDeleteProject_BlockedByExternalDependent(t *testing.T) {
	s, _ := newTestStore()
	p, _ := s.CreateProject(ProjectDraft{Name: "engine"})
	owned, err := s.CreateTasks([]TaskDraft{{Name: "inside", Description: "d"}}, ModeAppend, p.ID)
	if err != nil {
		t.Fatalf("create owned: %v", err)
	}
	if _, err := s.CreateTasks([]TaskDraft{
		{Name: "outside", Description: "d", Dependencies: []string{owned[0].ID}},
	}, ModeAppend, ""); err != nil {
		t.Fatalf("create external: %v", err)
	}

	err = s.DeleteProject(p.ID)
	var blocked *domain.DeletionBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected DeletionBlockedError, got %v", err)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	s, _ := newTestStore()
	if _, err := s.GetProject("nope"); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}
