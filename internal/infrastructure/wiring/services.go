// Package wiring assembles the engine: storage, store, index, batcher,
// archiver, and the application services, in dependency order.
package wiring

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/farazpawle/agent-flow-sub001/internal/application"
	"github.com/farazpawle/agent-flow-sub001/internal/archive"
	"github.com/farazpawle/agent-flow-sub001/internal/infrastructure/config"
	"github.com/farazpawle/agent-flow-sub001/internal/search"
	"github.com/farazpawle/agent-flow-sub001/internal/storage"
	"github.com/farazpawle/agent-flow-sub001/internal/store"
)

// AppServices exposes the application layer services wired together for
// a workspace root.
type AppServices struct {
	Root     string
	Config   *config.EngineConfig
	Repo     *storage.FilesystemRepository
	Store    *store.Store
	Index    *search.Index
	Batcher  *storage.WriteBatcher
	Archiver *archive.Archiver
	Task     *application.TaskService
	Query    *application.QueryService
	Project  *application.ProjectService
	Logger   *slog.Logger
}

// BuildAppServices constructs the engine for a workspace root, loading
// any persisted state into memory.
func BuildAppServices(root string) (*AppServices, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	repo := storage.NewFilesystemRepository(root)
	if err := repo.Initialize(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load engine config: %w", err)
	}

	index := search.NewIndex()
	st := store.New(store.WithIndex(index))

	snap, err := repo.LoadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted tasks: %w", err)
	}
	st.Load(snap)

	// The batcher snapshots the store, and the store notifies the
	// batcher; wire the notifier after both exist.
	batcher := storage.NewWriteBatcher(repo, st.Snapshot, cfg.FlushInterval(), logger)
	st.SetNotifier(batcher)

	archiver := archive.New(st, repo, index,
		archive.WithRetention(cfg.Retention()),
		archive.WithLogger(logger))

	return &AppServices{
		Root:     root,
		Config:   cfg,
		Repo:     repo,
		Store:    st,
		Index:    index,
		Batcher:  batcher,
		Archiver: archiver,
		Task:     application.NewTaskService(st, batcher, repo, logger),
		Query:    application.NewQueryService(st, index, repo, cfg.PageSize, logger),
		Project:  application.NewProjectService(st, logger),
		Logger:   logger,
	}, nil
}

// ReloadFromDisk replaces the in-memory state with the persisted
// snapshot. Skipped while unflushed changes are pending so an external
// edit cannot clobber in-memory work.
func (s *AppServices) ReloadFromDisk() error {
	if s.Batcher.Dirty() {
		s.Logger.Warn("skipping external reload, unflushed changes pending")
		return nil
	}
	snap, err := s.Repo.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("failed to reload persisted tasks: %w", err)
	}
	s.Store.Load(snap)
	s.Logger.Info("store reloaded from disk", "tasks", len(snap.Tasks))
	return nil
}

// Close flushes pending writes and stops background work.
func (s *AppServices) Close() error {
	s.Archiver.Stop()
	return s.Batcher.Flush()
}
