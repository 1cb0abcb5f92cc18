package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project groups tasks under one owning workspace.
type Project struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	Path         string    `json:"path,omitempty" yaml:"path,omitempty"`
	GitRemoteURL string    `json:"gitRemoteUrl,omitempty" yaml:"git_remote_url,omitempty"`
	TechStack    []string  `json:"techStack,omitempty" yaml:"tech_stack,omitempty"`
	CreatedAt    time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updated_at"`

	// TaskCount is derived from the store at read time; it is never
	// persisted as authoritative state.
	TaskCount int `json:"taskCount" yaml:"task_count"`
}

// NewProject creates a project with a fresh identity.
func NewProject(name string, now time.Time) *Project {
	return &Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	c := *p
	c.TechStack = append([]string(nil), p.TechStack...)
	return &c
}
