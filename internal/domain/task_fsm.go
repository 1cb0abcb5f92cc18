package domain

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit integration.
// These must remain as untyped string constants for statekit.StateID
// compatibility. Values are kept in sync with TaskStatus constants.
const (
	StatePending    = "pending"
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
	StateBlocked    = "blocked"
)

// init validates at startup that FSM state constants match TaskStatus values.
func init() {
	stateMap := map[string]TaskStatus{
		StatePending:    StatusPending,
		StateInProgress: StatusInProgress,
		StateCompleted:  StatusCompleted,
		StateBlocked:    StatusBlocked,
	}

	for fsmState, taskStatus := range stateMap {
		if fsmState != string(taskStatus) {
			panic(fmt.Sprintf("FSM state %q does not match TaskStatus %q - constants are out of sync", fsmState, taskStatus))
		}
	}
}

// TaskContext carries state data through the machine.
type TaskContext struct {
	TaskID string
	Guard  func(taskID string, event string) bool
}

// TaskStateMachine defines the valid lifecycle transitions. The guard is
// consulted on "start" so the store can refuse execution while dependencies
// remain incomplete.
type TaskStateMachine struct {
	interpreter *statekit.Interpreter[TaskContext]
}

// NewTaskStateMachine builds a machine positioned at initialState.
func NewTaskStateMachine(initialState string, taskID string, guard func(string, string) bool) (*TaskStateMachine, error) {
	if guard == nil {
		guard = func(string, string) bool { return true }
	}

	builder := statekit.NewMachine[TaskContext]("task-lifecycle").
		WithInitial(statekit.StateID(initialState)).
		WithContext(TaskContext{
			TaskID: taskID,
			Guard:  guard,
		}).
		WithGuard("dependencyGuard", func(ctx TaskContext, e statekit.Event) bool {
			return ctx.Guard(ctx.TaskID, string(e.Type))
		})

	builder.State(StatePending).
		On("start").Target(StateInProgress).Guard("dependencyGuard").
		On("block").Target(StateBlocked).
		Done()

	builder.State(StateInProgress).
		On("complete").Target(StateCompleted).
		On("block").Target(StateBlocked).
		On("stop").Target(StatePending).
		Done()

	builder.State(StateBlocked).
		On("unblock").Target(StatePending).
		Done()

	// Completed is terminal. Re-execution requires deletion + recreation.
	builder.State(StateCompleted).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &TaskStateMachine{interpreter: interpreter}, nil
}

// Transition attempts to move the task along the given event.
func (sm *TaskStateMachine) Transition(event string) error {
	before := sm.Current()
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := sm.Current()

	if before != after {
		return nil
	}

	// In statekit, if no transition matches or the guard fails, the state
	// stays put.
	return fmt.Errorf("the action '%s' is not allowed while the task is in the '%s' state", event, before)
}

// Current returns the raw current state value.
func (sm *TaskStateMachine) Current() string {
	return string(sm.interpreter.State().Value)
}

// CurrentStatus returns the current state as a TaskStatus value object.
func (sm *TaskStateMachine) CurrentStatus() TaskStatus {
	return TaskStatus(sm.Current())
}

// IsTerminal returns true if the current state is terminal.
func (sm *TaskStateMachine) IsTerminal() bool {
	return sm.CurrentStatus().IsTerminal()
}
