package graph

import (
	"testing"
	"time"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
)

var baseTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func makeTask(id string, createdOffset time.Duration, deps ...string) *domain.Task {
	t := domain.NewTask("task "+id, "description for "+id, baseTime.Add(createdOffset))
	t.ID = id
	t.Dependencies = deps
	return t
}

func position(t *testing.T, order []string, id string) int {
	t.Helper()
	for i, v := range order {
		if v == id {
			return i
		}
	}
	t.Fatalf("task %s missing from order %v", id, order)
	return -1
}

func TestRecalculate_DependenciesPrecedeDependents(t *testing.T) {
	tasks := []*domain.Task{
		makeTask("c", 2*time.Minute, "b"),
		makeTask("a", 0),
		makeTask("b", time.Minute, "a"),
	}

	result := Recalculate(tasks)

	if result.HasCycle() {
		t.Fatalf("unexpected cycle: %v", result.CycleResidue)
	}
	if len(result.Order) != 3 {
		t.Fatalf("expected 3 tasks in order, got %d", len(result.Order))
	}
	if position(t, result.Order, "a") > position(t, result.Order, "b") {
		t.Error("a must precede its dependent b")
	}
	if position(t, result.Order, "b") > position(t, result.Order, "c") {
		t.Error("b must precede its dependent c")
	}
}

func TestRecalculate_AssignsContiguousOrders(t *testing.T) {
	tasks := []*domain.Task{
		makeTask("a", 0),
		makeTask("b", time.Minute, "a"),
		makeTask("solo", 2*time.Minute),
	}

	Recalculate(tasks)

	seen := make(map[int]bool)
	for _, task := range tasks {
		if task.ExecutionOrder == nil {
			t.Fatalf("task %s has no execution order", task.ID)
		}
		seen[*task.ExecutionOrder] = true
	}
	for i := 0; i < len(tasks); i++ {
		if !seen[i] {
			t.Errorf("execution order %d never assigned", i)
		}
	}
}

func TestRecalculate_ComponentsOrderedByCreation(t *testing.T) {
	// Two disjoint components; the later-created one carries the earlier
	// dependency chain so component grouping, not task creation, decides.
	tasks := []*domain.Task{
		makeTask("y", 3*time.Minute, "x"),
		makeTask("x", 2*time.Minute),
		makeTask("old", 0),
	}

	result := Recalculate(tasks)

	if position(t, result.Order, "old") != 0 {
		t.Errorf("earliest-created component should come first, got %v", result.Order)
	}
}

func TestRecalculate_DeterministicAcrossPermutations(t *testing.T) {
	build := func() []*domain.Task {
		return []*domain.Task{
			makeTask("a", 0),
			makeTask("b", time.Minute, "a"),
			makeTask("c", time.Minute, "a"),
			makeTask("d", 2*time.Minute, "b", "c"),
			makeTask("e", 30*time.Second),
		}
	}

	first := Recalculate(build()).Order

	permuted := build()
	permuted[0], permuted[4] = permuted[4], permuted[0]
	permuted[1], permuted[3] = permuted[3], permuted[1]
	second := Recalculate(permuted).Order

	if len(first) != len(second) {
		t.Fatalf("order lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order not deterministic: %v vs %v", first, second)
		}
	}
}

func TestRecalculate_CycleResidueAppendedNotDropped(t *testing.T) {
	tasks := []*domain.Task{
		makeTask("a", 0),
		makeTask("b", time.Minute, "a", "d"),
		makeTask("c", 2*time.Minute, "b"),
		makeTask("d", 3*time.Minute, "c"),
	}

	result := Recalculate(tasks)

	if !result.HasCycle() {
		t.Fatal("expected a cycle to be reported")
	}
	if len(result.Order) != 4 {
		t.Fatalf("cycle must not drop tasks: got %d of 4", len(result.Order))
	}
	if position(t, result.Order, "a") != 0 {
		t.Errorf("acyclic prefix should sort first, got %v", result.Order)
	}
	if len(result.CycleResidue) != 3 {
		t.Errorf("expected 3 tasks in residue, got %v", result.CycleResidue)
	}
}

func TestRecalculate_DanglingDependencyIgnored(t *testing.T) {
	tasks := []*domain.Task{
		makeTask("a", 0, "ghost"),
	}

	result := Recalculate(tasks)

	if result.HasCycle() {
		t.Fatalf("dangling reference must not report a cycle: %v", result.CycleResidue)
	}
	if len(result.Order) != 1 || result.Order[0] != "a" {
		t.Fatalf("expected [a], got %v", result.Order)
	}
}

func TestApplyHints_LegalizedAgainstDependencies(t *testing.T) {
	tasks := []*domain.Task{
		makeTask("a", 0),
		makeTask("b", time.Minute, "a"),
	}
	Recalculate(tasks)

	// Hint b ahead of its own dependency; the recalculation must win.
	result := ApplyHints(tasks, []OrderHint{{TaskID: "b", Position: 0}})

	if position(t, result.Order, "a") > position(t, result.Order, "b") {
		t.Errorf("hint must not override dependency order: %v", result.Order)
	}
}

func TestApplyHints_ReordersIndependentTasks(t *testing.T) {
	tasks := []*domain.Task{
		makeTask("a", 0),
		makeTask("b", time.Minute),
		makeTask("c", 2*time.Minute),
	}
	Recalculate(tasks)

	result := ApplyHints(tasks, []OrderHint{{TaskID: "c", Position: 0}, {TaskID: "a", Position: 2}})

	if result.Order[0] != "c" || result.Order[2] != "a" {
		t.Errorf("independent tasks should honor their hints, got %v", result.Order)
	}
}

func TestRecalculate_AppendKeepsStableOrderForSingletons(t *testing.T) {
	var tasks []*domain.Task
	for i := 0; i < 100; i++ {
		tasks = append(tasks, makeTask(stringN('t', i), time.Duration(i)*time.Second))
	}

	result := Recalculate(tasks)

	for i, id := range result.Order {
		if id != stringN('t', i) {
			t.Fatalf("singleton order not stable at %d: got %s", i, id)
		}
	}
}

func stringN(prefix rune, n int) string {
	// Zero-padded so lexical order matches numeric order.
	return string(prefix) + string(rune('0'+n/10)) + string(rune('0'+n%10))
}
