package archive

import (
	"testing"
	"time"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
	"github.com/farazpawle/agent-flow-sub001/internal/search"
	"github.com/farazpawle/agent-flow-sub001/internal/storage"
	"github.com/farazpawle/agent-flow-sub001/internal/store"
)

var archiveNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

// fixture installs tasks directly via snapshot so completion timestamps
// can be backdated.
func fixture(t *testing.T, tasks ...*domain.Task) (*store.Store, *storage.FilesystemRepository, *search.Index, *Archiver) {
	t.Helper()
	repo := storage.NewFilesystemRepository(t.TempDir())
	if err := repo.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	index := search.NewIndex()
	st := store.New(store.WithIndex(index))
	st.Load(&domain.Snapshot{Tasks: tasks})

	a := New(st, repo, index,
		WithRetention(30*24*time.Hour),
		WithClock(func() time.Time { return archiveNow }))
	return st, repo, index, a
}

func completedTask(name string, completedDaysAgo int) *domain.Task {
	created := archiveNow.Add(-time.Duration(completedDaysAgo+1) * 24 * time.Hour)
	t := domain.NewTask(name, "desc for "+name, created)
	t.Status = domain.StatusCompleted
	done := archiveNow.Add(-time.Duration(completedDaysAgo) * 24 * time.Hour)
	t.CompletedAt = &done
	return t
}

func TestArchiver_MovesAgedCompletedTasks(t *testing.T) {
	old := completedTask("ancient", 40)
	fresh := completedTask("recent", 5)
	pending := domain.NewTask("active", "still open", archiveNow)

	st, repo, _, a := fixture(t, old, fresh, pending)

	archived, err := a.RunPass()
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if len(archived) != 1 || archived[0] != old.ID {
		t.Fatalf("expected only the aged task archived, got %v", archived)
	}

	// Hot store no longer has it; the bucket does.
	if _, err := st.GetTask(old.ID); err == nil {
		t.Error("archived task must leave the hot store")
	}
	bucket := storage.ArchiveBucket(*old.CompletedAt)
	stored, err := repo.LoadArchive(bucket)
	if err != nil {
		t.Fatalf("load bucket: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != old.ID {
		t.Errorf("bucket %s should hold the archived task, got %v", bucket, stored)
	}

	// Untouched tasks stay hot.
	if _, err := st.GetTask(fresh.ID); err != nil {
		t.Error("recently completed task must stay hot")
	}
	if _, err := st.GetTask(pending.ID); err != nil {
		t.Error("pending task must stay hot")
	}
}

func TestArchiver_ArchivedTasksRemainQueryable(t *testing.T) {
	old := completedTask("migrate billing schema", 45)
	_, _, index, a := fixture(t, old)

	if _, err := a.RunPass(); err != nil {
		t.Fatalf("pass: %v", err)
	}

	matches := index.Query("billing schema", search.ScopeArchived)
	if len(matches) != 1 || matches[0].TaskID != old.ID {
		t.Fatalf("archived task not findable: %v", matches)
	}
	if matches[0].Bucket != storage.ArchiveBucket(*old.CompletedAt) {
		t.Errorf("match must carry its bucket, got %q", matches[0].Bucket)
	}

	// Hot scope no longer sees it.
	if got := index.Query("billing schema", search.ScopeHot); len(got) != 0 {
		t.Errorf("archived task leaked into hot scope: %v", got)
	}
}

func TestArchiver_SkipsDependencyTargets(t *testing.T) {
	old := completedTask("foundation", 60)
	dependent := domain.NewTask("built on top", "d", archiveNow)
	dependent.Dependencies = []string{old.ID}

	st, _, _, a := fixture(t, old, dependent)

	archived, err := a.RunPass()
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if len(archived) != 0 {
		t.Fatalf("dependency target must not be archived, got %v", archived)
	}
	if _, err := st.GetTask(old.ID); err != nil {
		t.Error("task must remain hot while depended upon")
	}
}

func TestArchiver_PassIsIdempotent(t *testing.T) {
	old := completedTask("once", 40)
	_, repo, _, a := fixture(t, old)

	if _, err := a.RunPass(); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	archived, err := a.RunPass()
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(archived) != 0 {
		t.Errorf("second pass should find nothing, got %v", archived)
	}

	tasks, err := repo.LoadArchive(storage.ArchiveBucket(*old.CompletedAt))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("bucket must hold exactly one copy, got %d", len(tasks))
	}
}

func TestArchiver_GroupsByCompletionMonth(t *testing.T) {
	june := completedTask("june work", 75)
	july := completedTask("july work", 45)
	_, repo, _, a := fixture(t, june, july)

	if _, err := a.RunPass(); err != nil {
		t.Fatalf("pass: %v", err)
	}

	buckets, err := repo.ListArchiveBuckets()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected two monthly buckets, got %v", buckets)
	}
}

func TestArchiver_RebuildArchivedIndex(t *testing.T) {
	old := completedTask("survives restart", 40)
	_, repo, _, a := fixture(t, old)
	if _, err := a.RunPass(); err != nil {
		t.Fatalf("pass: %v", err)
	}

	// Simulate a restart: new index over the same repository.
	freshIndex := search.NewIndex()
	freshStore := store.New(store.WithIndex(freshIndex))
	restarted := New(freshStore, repo, freshIndex)
	if err := restarted.RebuildArchivedIndex(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	matches := freshIndex.Query("survives restart", search.ScopeArchived)
	if len(matches) != 1 || matches[0].TaskID != old.ID {
		t.Fatalf("rebuilt index missing archived task: %v", matches)
	}
}

func TestArchiver_RebuildLeavesHotTasksInHotScope(t *testing.T) {
	old := completedTask("interrupted move", 40)
	_, repo, index, a := fixture(t, old)

	// A bucket copy exists but the task was never removed from the active
	// store (an earlier pass stopped between append and removal).
	bucket := storage.ArchiveBucket(*old.CompletedAt)
	if err := repo.AppendArchive(bucket, []*domain.Task{old}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := a.RebuildArchivedIndex(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	if got := index.Query("interrupted move", search.ScopeHot); len(got) != 1 {
		t.Errorf("hot entry must stay authoritative, got %v", got)
	}
	if got := index.Query("interrupted move", search.ScopeArchived); len(got) != 0 {
		t.Errorf("hot task must not appear archived, got %v", got)
	}
}
