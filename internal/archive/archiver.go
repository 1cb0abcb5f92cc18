// Package archive bounds the size of the active store by moving aged,
// completed tasks into dated cold-storage buckets.
package archive

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
	"github.com/farazpawle/agent-flow-sub001/internal/search"
	"github.com/farazpawle/agent-flow-sub001/internal/storage"
	"github.com/farazpawle/agent-flow-sub001/internal/store"
	"github.com/robfig/cron/v3"
)

// DefaultRetention is how long a completed task stays in the active store.
const DefaultRetention = 30 * 24 * time.Hour

// DefaultSchedule is the periodic scan cadence.
const DefaultSchedule = "@hourly"

// Archiver scans the store for completed tasks older than the retention
// window and moves them into monthly buckets. A task is considered archived
// only once it is durably present in its bucket; removal from the active
// store happens in the same logical step (move semantics, not
// copy-then-maybe-delete), so an interrupted pass can simply run again.
type Archiver struct {
	store     *store.Store
	repo      *storage.FilesystemRepository
	index     *search.Index
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger

	cron *cron.Cron
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithRetention overrides the retention window.
func WithRetention(d time.Duration) Option {
	return func(a *Archiver) {
		if d > 0 {
			a.retention = d
		}
	}
}

// WithClock injects the time source used for retention comparisons.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archiver) { a.logger = l }
}

// New creates an archiver over the given store and repository.
func New(s *store.Store, repo *storage.FilesystemRepository, index *search.Index, opts ...Option) *Archiver {
	a := &Archiver{
		store:     s,
		repo:      repo,
		index:     index,
		retention: DefaultRetention,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunPass executes one archival scan. It is idempotent: bucket appends
// skip tasks already present, and tasks are only removed from the active
// store after their bucket write succeeded.
func (a *Archiver) RunPass() ([]string, error) {
	cutoff := a.now().Add(-a.retention)
	candidates := a.store.ArchiveCandidates(cutoff)
	if len(candidates) == 0 {
		return nil, nil
	}

	// Group by completion year-month.
	buckets := make(map[string][]*domain.Task)
	for _, t := range candidates {
		b := storage.ArchiveBucket(*t.CompletedAt)
		buckets[b] = append(buckets[b], t)
	}

	var archived []string
	for bucket, tasks := range buckets {
		if err := a.repo.AppendArchive(bucket, tasks); err != nil {
			// Leave these tasks in the active store; the next pass retries.
			return archived, fmt.Errorf("archive bucket %s: %w", bucket, err)
		}

		ids := make([]string, 0, len(tasks))
		byID := make(map[string]*domain.Task, len(tasks))
		for _, t := range tasks {
			ids = append(ids, t.ID)
			byID[t.ID] = t
		}

		// The store re-checks dependents under its lock; a candidate that
		// gained a dependent since the scan stays hot, keeps its hot index
		// entry, and is retried by a later pass. Its bucket copy is
		// harmless since appends are idempotent.
		removed := a.store.RemoveArchived(ids)
		if a.index != nil {
			for _, id := range removed {
				a.index.MoveToArchive(byID[id], bucket)
			}
		}
		archived = append(archived, removed...)

		a.logger.Info("archived tasks", "bucket", bucket, "count", len(removed))
	}
	return archived, nil
}

// RebuildArchivedIndex loads every bucket into the archived search scope.
// Run at startup so archived tasks stay findable across restarts.
func (a *Archiver) RebuildArchivedIndex() error {
	if a.index == nil {
		return nil
	}
	bucketNames, err := a.repo.ListArchiveBuckets()
	if err != nil {
		return err
	}
	for _, bucket := range bucketNames {
		tasks, err := a.repo.LoadArchive(bucket)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			// A bucket copy whose task is still in the active store is a
			// retried move that never finished; the hot entry stays
			// authoritative.
			if _, err := a.store.GetTask(t.ID); err == nil {
				continue
			}
			a.index.MoveToArchive(t, bucket)
		}
	}
	return nil
}

// Start runs an initial pass and schedules periodic passes. The schedule
// uses cron syntax (descriptors like "@hourly" are accepted).
func (a *Archiver) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if err := a.RebuildArchivedIndex(); err != nil {
		a.logger.Warn("failed to rebuild archived index", "error", err)
	}
	if _, err := a.RunPass(); err != nil {
		a.logger.Warn("startup archival pass failed", "error", err)
	}

	a.cron = cron.New()
	_, err := a.cron.AddFunc(schedule, func() {
		if _, err := a.RunPass(); err != nil {
			a.logger.Warn("scheduled archival pass failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid archive schedule %q: %w", schedule, err)
	}
	a.cron.Start()
	return nil
}

// Stop cancels the periodic schedule.
func (a *Archiver) Stop() {
	if a.cron != nil {
		a.cron.Stop()
	}
}
