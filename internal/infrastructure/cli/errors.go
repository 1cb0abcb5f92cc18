package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return NewCLIError(valErr.Error(), "Fix the reported field and retry", err)
	}

	var unmetErr *domain.DependenciesUnmetError
	if errors.As(err, &unmetErr) {
		return NewCLIError(
			unmetErr.Error(),
			fmt.Sprintf("Complete %s first, then retry", strings.Join(unmetErr.Unmet, ", ")),
			err,
		)
	}

	var delErr *domain.DeletionBlockedError
	if errors.As(err, &delErr) {
		return NewCLIError(
			delErr.Error(),
			"Delete or detach the dependent tasks first",
			err,
		)
	}

	var persErr *domain.PersistenceError
	if errors.As(err, &persErr) {
		return NewCLIError(
			persErr.Error(),
			"Check disk space and permissions on the data directory; in-memory state is intact and will retry",
			err,
		)
	}

	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return NewCLIError("task not found", "Run 'agentflow task list' to see available tasks", err)
	case errors.Is(err, domain.ErrProjectNotFound):
		return NewCLIError("project not found", "Run 'agentflow project list' to see available projects", err)
	case errors.Is(err, domain.ErrAlreadyTerminal):
		return NewCLIError("task is already completed", "Delete it and recreate if it must run again", err)
	case errors.Is(err, domain.ErrCannotDeleteCompleted):
		return NewCLIError("completed tasks cannot be deleted", "Completed tasks are retained for the archive; adjust retention instead", err)
	case errors.Is(err, domain.ErrNoOpUpdate):
		return NewCLIError("nothing to update", "Supply at least one field to change", err)
	}

	return err
}
