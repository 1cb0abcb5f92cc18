// Package store is the single authoritative in-memory table of tasks and
// projects. Every structural invariant is enforced here before any other
// component observes a change; each mutation runs to completion (integrity
// check, mutate, graph recalculation, index update) under one lock before
// the next is allowed to begin.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
	"github.com/farazpawle/agent-flow-sub001/internal/graph"
)

// Notifier learns that unflushed state exists. Implemented by the write
// batcher.
type Notifier interface {
	MarkDirty()
}

// Indexer keeps the search index consistent with the store. Index updates
// happen synchronously inside the same mutation that changes the store.
type Indexer interface {
	Upsert(t *domain.Task)
	Remove(id string)
}

// Filter narrows ListTasks results.
type Filter struct {
	ProjectID string
	Status    domain.TaskStatus
}

// Store holds the authoritative task and project records.
type Store struct {
	mu       sync.Mutex
	tasks    map[string]*domain.Task
	projects map[string]*domain.Project

	now      func() time.Time
	notifier Notifier
	index    Indexer

	// lastCycle carries the warning from the most recent recalculation.
	lastCycle *domain.CycleError
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithNotifier wires the write batcher.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithIndex wires the search index.
func WithIndex(idx Indexer) Option {
	return func(s *Store) { s.index = idx }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		tasks:    make(map[string]*domain.Task),
		projects: make(map[string]*domain.Project),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNotifier attaches the batcher after construction. The batcher needs
// the store's snapshot function, so wiring is two-phase.
func (s *Store) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Load replaces the store contents from a persisted snapshot without
// marking state dirty. Dependency lists are deduplicated defensively since
// persisted data may predate current validation.
func (s *Store) Load(snap *domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*domain.Task, len(snap.Tasks))
	for _, t := range snap.Tasks {
		c := t.Clone()
		c.Dependencies = dedupe(c.Dependencies)
		next[c.ID] = c
	}
	// Tasks the snapshot no longer carries must leave the index too, or
	// stale entries keep matching queries after an external edit.
	if s.index != nil {
		for id := range s.tasks {
			if _, ok := next[id]; !ok {
				s.index.Remove(id)
			}
		}
	}
	s.tasks = next
	s.projects = make(map[string]*domain.Project, len(snap.Projects))
	for _, p := range snap.Projects {
		s.projects[p.ID] = p.Clone()
	}

	result := graph.Recalculate(s.all())
	s.recordCycle(result)
	if s.index != nil {
		for _, t := range s.tasks {
			s.index.Upsert(t.Clone())
		}
	}
}

// Snapshot returns a deep copy of the current state for persistence.
func (s *Store) Snapshot() *domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &domain.Snapshot{SavedAt: s.now()}
	for _, t := range s.sortedTasks() {
		snap.Tasks = append(snap.Tasks, t.Clone())
	}
	for _, p := range s.sortedProjects() {
		snap.Projects = append(snap.Projects, p.Clone())
	}
	return snap
}

// GetTask returns a copy of the task with the given ID.
func (s *Store) GetTask(id string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return t.Clone(), nil
}

// ListTasks returns copies of all tasks matching the filter, sorted by
// execution order.
func (s *Store) ListTasks(f Filter) []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Task
	for _, t := range s.sortedTasks() {
		if f.ProjectID != "" && t.ProjectID != f.ProjectID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

// UpdateTaskStatus transitions a task toward the target status.
//
// Moving to in_progress requires every existing dependency to be completed;
// a task already in progress re-executes idempotently, returning current
// state without re-mutating. Completed tasks are terminal.
func (s *Store) UpdateTaskStatus(id string, target domain.TaskStatus) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateStatusLocked(id, target)
}

func (s *Store) updateStatusLocked(id string, target domain.TaskStatus) (*domain.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	if !target.IsValid() {
		return nil, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", string(target))}
	}
	if t.Status == target && target == domain.StatusInProgress {
		// Idempotent re-execution.
		return t.Clone(), nil
	}
	if t.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyTerminal, id)
	}

	if target == domain.StatusInProgress {
		if unmet := s.unmetDependencies(t); len(unmet) > 0 {
			return nil, &domain.DependenciesUnmetError{TaskID: id, Unmet: unmet}
		}
	}

	event, err := t.Status.EventFor(target)
	if err != nil {
		return nil, &domain.ValidationError{Field: "status", Reason: err.Error()}
	}
	fsm, err := domain.NewTaskStateMachine(string(t.Status), id, func(taskID, ev string) bool {
		return len(s.unmetDependencies(s.tasks[taskID])) == 0
	})
	if err != nil {
		return nil, err
	}
	if err := fsm.Transition(event); err != nil {
		return nil, err
	}

	t.Status = fsm.CurrentStatus()
	t.UpdatedAt = s.now()
	if t.Status == domain.StatusCompleted {
		done := s.now()
		t.CompletedAt = &done
	}

	s.afterChange(t)
	return t.Clone(), nil
}

// CompleteTask completes an in-progress task and records its summary in
// the same logical step. The summary lands only after the transition
// succeeds; a rejected completion leaves the record untouched.
func (s *Store) CompleteTask(id, summary string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.updateStatusLocked(id, domain.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if summary != "" {
		t := s.tasks[id]
		t.Summary = summary
		out.Summary = summary
		if s.index != nil {
			s.index.Upsert(t.Clone())
		}
	}
	return out, nil
}

// AppendConversation appends one entry to a task's conversation history.
// History is append-only; entries are never rewritten.
func (s *Store) AppendConversation(id, role, content string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	if role == "" || content == "" {
		return nil, &domain.ValidationError{Field: "conversation", Reason: "role and content are required"}
	}
	t.ConversationHistory = append(t.ConversationHistory, domain.ConversationEntry{
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	})
	t.UpdatedAt = s.now()

	s.afterChange(t)
	return t.Clone(), nil
}

// DeleteTask removes a task after integrity checks: a task any
// still-existing task depends on cannot be deleted regardless of status,
// and neither can a completed task. The dependency check runs first, so a
// completed dependency target reports its dependents rather than the
// terminal rule.
func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	if dependents := s.dependentsOf(id, nil); len(dependents) > 0 {
		return &domain.DeletionBlockedError{TaskID: id, Dependents: dependents}
	}
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", domain.ErrCannotDeleteCompleted, id)
	}

	delete(s.tasks, id)
	if s.index != nil {
		s.index.Remove(id)
	}
	s.afterChange(nil)
	return nil
}

// RemoveArchived removes tasks that have been durably written to their
// archive bucket and returns the IDs actually removed. This is the move
// half of archival; it bypasses the completed-deletion rule since archival
// is the designed exit path for completed tasks. Dependents are re-checked
// under the lock: a task that gained a dependent after the archival scan
// stays in the active store and a later pass retries it.
func (s *Store) RemoveArchived(ids []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for _, id := range ids {
		if _, ok := s.tasks[id]; !ok {
			continue
		}
		if len(s.dependentsOf(id, nil)) > 0 {
			continue
		}
		delete(s.tasks, id)
		removed = append(removed, id)
	}
	if len(removed) > 0 {
		s.afterChange(nil)
	}
	return removed
}

// ArchiveCandidates returns completed tasks whose completion is older than
// the cutoff and that no active task still depends on.
func (s *Store) ArchiveCandidates(cutoff time.Time) []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Task
	for _, t := range s.sortedTasks() {
		if !t.Status.IsTerminal() || t.CompletedAt == nil {
			continue
		}
		if !t.CompletedAt.Before(cutoff) {
			continue
		}
		if len(s.dependentsOf(t.ID, nil)) > 0 {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

// ReorderTasks applies manual order hints and returns the recalculated full
// order. Hints are legalized against the dependency structure, never
// honored verbatim.
func (s *Store) ReorderTasks(hints []graph.OrderHint) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range hints {
		if _, ok := s.tasks[h.TaskID]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, h.TaskID)
		}
	}

	result := graph.ApplyHints(s.all(), hints)
	s.recordCycle(result)
	now := s.now()
	for _, h := range hints {
		s.tasks[h.TaskID].UpdatedAt = now
	}
	if s.notifier != nil {
		s.notifier.MarkDirty()
	}

	out := make([]*domain.Task, 0, len(result.Order))
	for _, id := range result.Order {
		out = append(out, s.tasks[id].Clone())
	}
	return out, nil
}

// ClearTasks removes every task from the store. Callers are expected to
// back up the snapshot first.
func (s *Store) ClearTasks() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.tasks)
	if s.index != nil {
		for id := range s.tasks {
			s.index.Remove(id)
		}
	}
	s.tasks = make(map[string]*domain.Task)
	s.afterChange(nil)
	return n
}

// CycleWarning returns the cycle detected by the most recent
// recalculation, or nil. A cycle is surfaced as a data-quality warning
// alongside the best-effort order, not a hard failure.
func (s *Store) CycleWarning() *domain.CycleError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCycle
}

// unmetDependencies lists existing dependencies that are not completed.
// Dangling references are skipped defensively.
func (s *Store) unmetDependencies(t *domain.Task) []string {
	var unmet []string
	for _, dep := range t.Dependencies {
		d, ok := s.tasks[dep]
		if !ok {
			continue
		}
		if !d.Status.IsTerminal() {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

// dependentsOf lists IDs of tasks whose dependency lists reference id,
// excluding any IDs in the ignore set.
func (s *Store) dependentsOf(id string, ignore map[string]bool) []string {
	var out []string
	for _, t := range s.sortedTasks() {
		if t.ID == id || ignore[t.ID] {
			continue
		}
		if t.DependsOn(id) {
			out = append(out, t.ID)
		}
	}
	return out
}

// afterChange recalculates the execution order, refreshes the index entry
// for the mutated task, and schedules a durable flush. Must be called with
// the lock held.
func (s *Store) afterChange(changed *domain.Task) {
	result := graph.Recalculate(s.all())
	s.recordCycle(result)
	if changed != nil && s.index != nil {
		s.index.Upsert(changed.Clone())
	}
	if s.notifier != nil {
		s.notifier.MarkDirty()
	}
}

func (s *Store) recordCycle(result graph.Result) {
	if result.HasCycle() {
		s.lastCycle = &domain.CycleError{Remaining: result.CycleResidue}
	} else {
		s.lastCycle = nil
	}
}

func (s *Store) all() []*domain.Task {
	out := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}

// sortedTasks returns the live task records ordered by execution order.
func (s *Store) sortedTasks() []*domain.Task {
	out := s.all()
	sort.SliceStable(out, func(i, j int) bool {
		oi, oki := out[i].OrderKey()
		oj, okj := out[j].OrderKey()
		if oki != okj {
			return oki
		}
		if oki && okj && oi != oj {
			return oi < oj
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) sortedProjects() []*domain.Project {
	out := make([]*domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
