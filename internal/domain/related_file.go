package domain

import "fmt"

// FileRole describes how a file relates to a task.
type FileRole string

const (
	// RoleToModify marks a file the task is expected to change.
	RoleToModify FileRole = "to_modify"
	// RoleReference marks a file consulted but not changed.
	RoleReference FileRole = "reference"
	// RoleCreate marks a file the task will create.
	RoleCreate FileRole = "create"
	// RoleDependency marks a file the task's output depends on.
	RoleDependency FileRole = "dependency"
	// RoleOther is the defined fallback for unrecognized role strings.
	RoleOther FileRole = "other"
)

// AllFileRoles returns all valid file roles.
func AllFileRoles() []FileRole {
	return []FileRole{RoleToModify, RoleReference, RoleCreate, RoleDependency, RoleOther}
}

// IsValid checks if the role is a known variant.
func (r FileRole) IsValid() bool {
	switch r {
	case RoleToModify, RoleReference, RoleCreate, RoleDependency, RoleOther:
		return true
	default:
		return false
	}
}

// ParseFileRole maps a role string onto the FileRole enum. Unknown strings
// map to RoleOther explicitly rather than being silently coerced.
func ParseFileRole(s string) FileRole {
	role := FileRole(s)
	if role.IsValid() {
		return role
	}
	return RoleOther
}

// RelatedFile links a task to a path on disk with a typed role and an
// optional line range.
type RelatedFile struct {
	Path        string   `json:"path" yaml:"path"`
	Role        FileRole `json:"role" yaml:"role"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	// LineStart/LineEnd bound the relevant region. Zero means unset; a set
	// range must satisfy 1 <= LineStart <= LineEnd.
	LineStart int `json:"lineStart,omitempty" yaml:"line_start,omitempty"`
	LineEnd   int `json:"lineEnd,omitempty" yaml:"line_end,omitempty"`
}

// Validate checks the related file for malformed input.
func (f RelatedFile) Validate() error {
	if f.Path == "" {
		return &ValidationError{Field: "path", Reason: "path is required"}
	}
	if !f.Role.IsValid() {
		return &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", string(f.Role))}
	}
	if f.LineStart == 0 && f.LineEnd == 0 {
		return nil
	}
	if f.LineStart < 1 || f.LineEnd < f.LineStart {
		return &ValidationError{
			Field:  "lineRange",
			Reason: fmt.Sprintf("invalid line range %d-%d for %s", f.LineStart, f.LineEnd, f.Path),
		}
	}
	return nil
}
