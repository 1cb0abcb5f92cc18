package cli

import (
	"errors"
	"testing"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
)

func TestParseOrderHints(t *testing.T) {
	hints, err := parseOrderHints([]string{"abc=0", "def=2"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(hints) != 2 || hints[0].TaskID != "abc" || hints[0].Position != 0 || hints[1].Position != 2 {
		t.Errorf("unexpected hints: %v", hints)
	}

	for _, bad := range []string{"abc", "abc=x", "abc=-1"} {
		if _, err := parseOrderHints([]string{bad}); err == nil {
			t.Errorf("expected rejection of %q", bad)
		}
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"task not found", domain.ErrTaskNotFound},
		{"already terminal", domain.ErrAlreadyTerminal},
		{"cannot delete completed", domain.ErrCannotDeleteCompleted},
		{"validation", &domain.ValidationError{Field: "name", Reason: "required"}},
		{"unmet dependencies", &domain.DependenciesUnmetError{TaskID: "a", Unmet: []string{"b"}}},
		{"deletion blocked", &domain.DeletionBlockedError{TaskID: "a", Dependents: []string{"b"}}},
		{"persistence", &domain.PersistenceError{Op: "write", Err: errors.New("disk full")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)
			var cliErr *CLIError
			if !errors.As(mapped, &cliErr) {
				t.Fatalf("expected CLIError, got %T", mapped)
			}
			if cliErr.Hint == "" {
				t.Error("mapped errors should carry a hint")
			}
			if !errors.Is(mapped, tt.err) {
				t.Error("mapped error must wrap the original")
			}
		})
	}

	if MapError(nil) != nil {
		t.Error("nil must map to nil")
	}
	plain := errors.New("unmapped")
	if MapError(plain) != plain {
		t.Error("unmapped errors pass through unchanged")
	}
}
