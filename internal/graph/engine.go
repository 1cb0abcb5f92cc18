// Package graph linearizes the task set into a deterministic execution
// order. Dependency edges are grouped into connected components (ignoring
// direction), each component is topologically sorted, and the components
// are concatenated into one schedule with contiguous execution orders.
package graph

import (
	"sort"
	"time"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
)

// OrderHint expresses a caller's desired relative position for one task.
// Hints are provisional: the full recalculation runs immediately after they
// are applied, so a hint that would move a task ahead of its own dependency
// is legalized back into a dependency-respecting order.
type OrderHint struct {
	TaskID   string `json:"taskId"`
	Position int    `json:"position"`
}

// Result describes one recalculation pass.
type Result struct {
	// Order holds every task ID exactly once, in final execution order.
	Order []string
	// CycleResidue lists tasks that could not be topologically sorted.
	// They are still present in Order (appended at the end of their
	// component) so no task is ever dropped.
	CycleResidue []string
}

// HasCycle reports whether the pass found an unsortable residue.
func (r Result) HasCycle() bool {
	return len(r.CycleResidue) > 0
}

// Recalculate computes the global execution order and assigns fresh
// contiguous ExecutionOrder values (0, 1, 2, ...) to every task, in place.
// This function is the only writer of ExecutionOrder.
//
// Edges whose endpoints do not both exist in the task set are ignored:
// dangling references are a data-quality concern for the store's mutation
// validation, not a reason for the engine to fail.
//
// An empty task set yields an empty order with no error.
func Recalculate(tasks []*domain.Task) Result {
	if len(tasks) == 0 {
		return Result{Order: []string{}}
	}

	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	// Directed adjacency dependency -> dependent, restricted to edges whose
	// endpoints both exist, plus the undirected view used for grouping.
	dependents := make(map[string][]string, len(tasks))
	undirected := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if _, ok := byID[dep]; !ok {
				continue
			}
			dependents[dep] = append(dependents[dep], t.ID)
			undirected[dep] = append(undirected[dep], t.ID)
			undirected[t.ID] = append(undirected[t.ID], dep)
		}
	}

	// Deterministic seed order for component discovery: the same tie-break
	// used inside Kahn's ready queue.
	seeds := make([]*domain.Task, len(tasks))
	copy(seeds, tasks)
	sortByOrderKey(seeds)

	components := connectedComponents(seeds, undirected)

	// Order components by the minimum ExecutionOrder among members, falling
	// back to the earliest CreatedAt, preserving prior manual intent.
	sort.SliceStable(components, func(i, j int) bool {
		return lessComponent(components[i], components[j], byID)
	})

	var result Result
	for _, comp := range components {
		sorted, residue := sortComponent(comp, byID, dependents)
		result.Order = append(result.Order, sorted...)
		result.CycleResidue = append(result.CycleResidue, residue...)
	}

	for pos, id := range result.Order {
		p := pos
		byID[id].ExecutionOrder = &p
	}
	return result
}

// ApplyHints provisionally assigns the hinted positions and immediately
// re-runs the full recalculation. Manual order is a hint that is always
// subordinate to topological validity.
func ApplyHints(tasks []*domain.Task, hints []OrderHint) Result {
	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	for _, h := range hints {
		if t, ok := byID[h.TaskID]; ok {
			p := h.Position
			t.ExecutionOrder = &p
		}
	}
	return Recalculate(tasks)
}

// connectedComponents groups tasks via breadth-first traversal over the
// undirected edge set. A task with no edges is its own singleton component.
func connectedComponents(seeds []*domain.Task, undirected map[string][]string) [][]string {
	visited := make(map[string]bool, len(seeds))
	var components [][]string

	for _, seed := range seeds {
		if visited[seed.ID] {
			continue
		}
		var comp []string
		queue := []string{seed.ID}
		visited[seed.ID] = true
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			comp = append(comp, id)
			for _, next := range undirected[id] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		components = append(components, comp)
	}
	return components
}

// sortComponent runs Kahn's algorithm over one component's edge subset.
// When the component contains a true cycle the unsortable remainder is
// appended at the end in its original relative order rather than failing:
// the engine must never deadlock or drop tasks, but the residue is surfaced
// to the caller as a data-quality defect.
func sortComponent(comp []string, byID map[string]*domain.Task, dependents map[string][]string) (sorted, residue []string) {
	inComp := make(map[string]bool, len(comp))
	for _, id := range comp {
		inComp[id] = true
	}

	// In-degree restricted to this component's edge subset.
	remaining := make(map[string]int, len(comp))
	for _, id := range comp {
		deg := 0
		for _, dep := range byID[id].Dependencies {
			if inComp[dep] {
				deg++
			}
		}
		remaining[id] = deg
	}

	var ready []*domain.Task
	for _, id := range comp {
		if remaining[id] == 0 {
			ready = append(ready, byID[id])
		}
	}
	sortByOrderKey(ready)

	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		sorted = append(sorted, next.ID)
		delete(remaining, next.ID)

		changed := false
		for _, dep := range dependents[next.ID] {
			if _, ok := remaining[dep]; !ok {
				continue
			}
			remaining[dep]--
			if remaining[dep] == 0 {
				ready = append(ready, byID[dep])
				changed = true
			}
		}
		// Newly unblocked tasks must be merged by the same tie-break rule,
		// not simply appended.
		if changed {
			sortByOrderKey(ready)
		}
	}

	if len(sorted) < len(comp) {
		leftover := make([]*domain.Task, 0, len(comp)-len(sorted))
		for id := range remaining {
			leftover = append(leftover, byID[id])
		}
		sortByOrderKey(leftover)
		for _, t := range leftover {
			residue = append(residue, t.ID)
			sorted = append(sorted, t.ID)
		}
	}
	return sorted, residue
}

// sortByOrderKey orders tasks by ExecutionOrder ascending (unordered tasks
// after all ordered tasks), then CreatedAt ascending, then ID for full
// determinism.
func sortByOrderKey(tasks []*domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		oi, oki := tasks[i].OrderKey()
		oj, okj := tasks[j].OrderKey()
		if oki != okj {
			return oki
		}
		if oki && okj && oi != oj {
			return oi < oj
		}
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// lessComponent orders components by min ExecutionOrder, then earliest
// CreatedAt among members.
func lessComponent(a, b []string, byID map[string]*domain.Task) bool {
	ao, aok, at := componentKey(a, byID)
	bo, bok, bt := componentKey(b, byID)
	if aok != bok {
		return aok
	}
	if aok && bok && ao != bo {
		return ao < bo
	}
	return at.Before(bt)
}

func componentKey(comp []string, byID map[string]*domain.Task) (minOrder int, hasOrder bool, earliest time.Time) {
	for i, id := range comp {
		t := byID[id]
		if o, ok := t.OrderKey(); ok {
			if !hasOrder || o < minOrder {
				minOrder = o
				hasOrder = true
			}
		}
		if i == 0 || t.CreatedAt.Before(earliest) {
			earliest = t.CreatedAt
		}
	}
	return minOrder, hasOrder, earliest
}
