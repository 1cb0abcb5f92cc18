package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
)

func TestFilesystemRepository_ResolvePathRejectsTraversal(t *testing.T) {
	repo := NewFilesystemRepository(t.TempDir())

	tests := []string{
		"../escape.json",
		"../../etc/passwd",
		"nested/inner.json",
		"",
	}
	for _, name := range tests {
		if _, err := repo.ResolvePath(name); err == nil {
			t.Errorf("ResolvePath(%q) should be rejected", name)
		}
	}

	if _, err := repo.ResolvePath("tasks.json"); err != nil {
		t.Errorf("direct child must resolve: %v", err)
	}
}

func TestFilesystemRepository_SnapshotRoundTrip(t *testing.T) {
	repo := initializedRepo(t)

	task := domain.NewTask("persist me", "with content", time.Now().UTC())
	task.Dependencies = []string{"dep-1"}
	snap := &domain.Snapshot{Tasks: []*domain.Task{task}, SavedAt: time.Now().UTC()}

	if err := repo.SaveSnapshot(snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := repo.LoadSnapshot()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(loaded.Tasks))
	}
	got := loaded.Tasks[0]
	if got.ID != task.ID || got.Name != task.Name || len(got.Dependencies) != 1 {
		t.Error("snapshot did not round-trip faithfully")
	}
}

func TestFilesystemRepository_LoadMissingIsEmpty(t *testing.T) {
	repo := initializedRepo(t)

	snap, err := repo.LoadSnapshot()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Tasks) != 0 {
		t.Error("missing file must yield an empty snapshot")
	}
}

func TestFilesystemRepository_SnapshotFilePermissions(t *testing.T) {
	repo := initializedRepo(t)
	if err := repo.SaveSnapshot(snapshotWithTasks("a")); err != nil {
		t.Fatalf("save: %v", err)
	}

	path, _ := repo.ResolvePath(TasksFile)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600, got %o", info.Mode().Perm())
	}
}

func TestArchiveBucket(t *testing.T) {
	at := time.Date(2026, 8, 15, 23, 30, 0, 0, time.FixedZone("ahead", 3*3600))
	if got := ArchiveBucket(at); got != "2026-08" {
		t.Errorf("expected UTC bucket 2026-08, got %s", got)
	}
}

func TestFilesystemRepository_AppendArchiveIdempotent(t *testing.T) {
	repo := initializedRepo(t)

	task := domain.NewTask("done work", "d", time.Now())
	if err := repo.AppendArchive("2026-07", []*domain.Task{task}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	// Interrupted pass retried: same task appended again.
	if err := repo.AppendArchive("2026-07", []*domain.Task{task}); err != nil {
		t.Fatalf("second append: %v", err)
	}

	tasks, err := repo.LoadArchive("2026-07")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("retried append must not duplicate, got %d entries", len(tasks))
	}
}

func TestFilesystemRepository_AppendArchivePreservesExisting(t *testing.T) {
	repo := initializedRepo(t)

	first := domain.NewTask("first", "d", time.Now())
	second := domain.NewTask("second", "d", time.Now())
	if err := repo.AppendArchive("2026-07", []*domain.Task{first}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.AppendArchive("2026-07", []*domain.Task{second}); err != nil {
		t.Fatalf("append: %v", err)
	}

	tasks, err := repo.LoadArchive("2026-07")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("expected both entries retained, got %d", len(tasks))
	}
}

func TestFilesystemRepository_ListArchiveBuckets(t *testing.T) {
	repo := initializedRepo(t)

	for _, bucket := range []string{"2026-08", "2026-06", "2026-07"} {
		if err := repo.AppendArchive(bucket, []*domain.Task{domain.NewTask("t", "d", time.Now())}); err != nil {
			t.Fatalf("append %s: %v", bucket, err)
		}
	}

	buckets, err := repo.ListArchiveBuckets()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"2026-06", "2026-07", "2026-08"}
	if len(buckets) != len(want) {
		t.Fatalf("expected %v, got %v", want, buckets)
	}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("expected sorted buckets %v, got %v", want, buckets)
		}
	}
}

func TestFilesystemRepository_WriteBackup(t *testing.T) {
	repo := initializedRepo(t)

	now := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	name, err := repo.WriteBackup(snapshotWithTasks("saved"), now)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if name != "backup-20260831T103000.json" {
		t.Errorf("unexpected backup name %s", name)
	}
	path, _ := repo.ResolvePath(name)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("backup file missing: %v", err)
	}
}

func TestFilesystemRepository_Initialize(t *testing.T) {
	root := t.TempDir()
	repo := NewFilesystemRepository(root)

	if repo.IsInitialized() {
		t.Error("fresh root should not be initialized")
	}
	if err := repo.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !repo.IsInitialized() {
		t.Error("initialize did not create the data directory")
	}

	info, err := os.Stat(filepath.Join(root, DataDir))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0700 {
		t.Errorf("expected 0700, got %o", info.Mode().Perm())
	}
}
