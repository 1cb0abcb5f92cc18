package domain

import "testing"

func TestTaskStateMachine_HappyPath(t *testing.T) {
	sm, err := NewTaskStateMachine(StatePending, "t1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := sm.Transition("start"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if sm.Current() != StateInProgress {
		t.Fatalf("expected in_progress, got %s", sm.Current())
	}
	if err := sm.Transition("complete"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if !sm.IsTerminal() {
		t.Error("completed state should be terminal")
	}
}

func TestTaskStateMachine_GuardBlocksStart(t *testing.T) {
	guard := func(taskID, event string) bool { return false }
	sm, err := NewTaskStateMachine(StatePending, "t1", guard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := sm.Transition("start"); err == nil {
		t.Error("expected guard to block start")
	}
	if sm.Current() != StatePending {
		t.Errorf("state must not change on blocked transition, got %s", sm.Current())
	}
}

func TestTaskStateMachine_CompletedRejectsAllEvents(t *testing.T) {
	sm, err := NewTaskStateMachine(StateCompleted, "t1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, event := range []string{"start", "complete", "block", "stop", "unblock"} {
		if err := sm.Transition(event); err == nil {
			t.Errorf("completed state accepted event %q", event)
		}
	}
}

func TestTaskStateMachine_BlockAndUnblock(t *testing.T) {
	sm, err := NewTaskStateMachine(StatePending, "t1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := sm.Transition("block"); err != nil {
		t.Fatalf("block failed: %v", err)
	}
	if err := sm.Transition("unblock"); err != nil {
		t.Fatalf("unblock failed: %v", err)
	}
	if sm.Current() != StatePending {
		t.Errorf("expected pending after unblock, got %s", sm.Current())
	}
}
