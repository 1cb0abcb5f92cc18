// Package storage owns the durable backing store. Nothing outside this
// package (and the archiver that shares it) writes to the persisted
// representation, which eliminates write races on disk.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
	"github.com/felixgeelhaar/fortify/retry"
)

const DataDir = ".agentflow"
const TasksFile = "tasks.json"
const ConfigFile = "engine.yaml"

const archivePrefix = "archive-"
const backupPrefix = "backup-"

// FilesystemRepository persists engine state as JSON files under a
// dot-directory in the workspace root.
type FilesystemRepository struct {
	root        string
	retryConfig retry.Config
}

// NewFilesystemRepository creates a repository rooted at the given path.
func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// ResolvePath ensures the path is within the data directory and prevents
// traversal.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := filepath.Join(r.root, DataDir)
	fullPath := filepath.Join(baseDir, filename)
	cleanPath := filepath.Clean(fullPath)

	// Check for traversal and ensure it's a direct child (no nested subdirs
	// in the data directory for now)
	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

// Initialize creates the data directory.
func (r *FilesystemRepository) Initialize() error {
	path := filepath.Join(r.root, DataDir)
	// G301: Use 0700 for directories
	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// IsInitialized reports whether the data directory exists.
func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(filepath.Join(r.root, DataDir))
	return err == nil
}

// SaveSnapshot writes the full task set durably in one atomic operation:
// serialize to a temp file, then rename into place.
func (r *FilesystemRepository) SaveSnapshot(snap *domain.Snapshot) error {
	path, err := r.ResolvePath(TasksFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return &domain.PersistenceError{Op: "marshal snapshot", Err: err}
	}
	if err := r.atomicWrite(path, data); err != nil {
		return &domain.PersistenceError{Op: "write snapshot", Err: err}
	}
	return nil
}

// LoadSnapshot reads the persisted state. A missing file yields an empty
// snapshot, not an error.
func (r *FilesystemRepository) LoadSnapshot() (*domain.Snapshot, error) {
	retryer := retry.New[*domain.Snapshot](r.retryConfig)

	return retryer.Do(context.Background(), func(ctx context.Context) (*domain.Snapshot, error) {
		path, err := r.ResolvePath(TasksFile)
		if err != nil {
			return nil, err
		}

		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return &domain.Snapshot{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tasks file: %w", err)
		}

		var snap domain.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tasks file: %w", err)
		}
		return &snap, nil
	})
}

// ArchiveBucket names the monthly bucket file for a completion time.
func ArchiveBucket(completedAt time.Time) string {
	return completedAt.UTC().Format("2006-01")
}

// AppendArchive appends tasks to the monthly bucket file. Buckets are
// append-only; existing entries are never rewritten, and a task already
// present in the bucket is skipped so interrupted archival passes can be
// retried safely.
func (r *FilesystemRepository) AppendArchive(bucket string, tasks []*domain.Task) error {
	path, err := r.ResolvePath(archivePrefix + bucket + ".json")
	if err != nil {
		return err
	}

	existing, err := r.LoadArchive(bucket)
	if err != nil {
		return err
	}

	present := make(map[string]bool, len(existing))
	for _, t := range existing {
		present[t.ID] = true
	}
	for _, t := range tasks {
		if !present[t.ID] {
			existing = append(existing, t)
		}
	}

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return &domain.PersistenceError{Op: "marshal archive " + bucket, Err: err}
	}
	if err := r.atomicWrite(path, data); err != nil {
		return &domain.PersistenceError{Op: "write archive " + bucket, Err: err}
	}
	return nil
}

// LoadArchive reads one monthly bucket. Missing buckets are empty.
func (r *FilesystemRepository) LoadArchive(bucket string) ([]*domain.Task, error) {
	path, err := r.ResolvePath(archivePrefix + bucket + ".json")
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", bucket, err)
	}

	var tasks []*domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal archive %s: %w", bucket, err)
	}
	return tasks, nil
}

// ListArchiveBuckets returns the year-month keys of all bucket files.
func (r *FilesystemRepository) ListArchiveBuckets() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.root, DataDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}

	var buckets []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, archivePrefix) && strings.HasSuffix(name, ".json") {
			buckets = append(buckets, strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), ".json"))
		}
	}
	sort.Strings(buckets)
	return buckets, nil
}

// WriteBackup saves a dated copy of the snapshot before destructive
// operations such as clearing the store.
func (r *FilesystemRepository) WriteBackup(snap *domain.Snapshot, now time.Time) (string, error) {
	name := backupPrefix + now.UTC().Format("20060102T150405") + ".json"
	path, err := r.ResolvePath(name)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", &domain.PersistenceError{Op: "marshal backup", Err: err}
	}
	if err := r.atomicWrite(path, data); err != nil {
		return "", &domain.PersistenceError{Op: "write backup", Err: err}
	}
	return name, nil
}

// atomicWrite writes data to a sibling temp file and renames it into
// place so readers never observe a torn file.
func (r *FilesystemRepository) atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	// G306: Use 0600 for files
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
