package storage

import (
	"log/slog"
	"sync"
	"time"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
)

// DefaultFlushInterval is the quiet period before a scheduled flush.
const DefaultFlushInterval = 100 * time.Millisecond

// SnapshotFunc produces the current full state for persistence. The
// snapshot is taken when the timer fires, so a burst of mutations flushes
// the state after the last mutation in the burst.
type SnapshotFunc func() *domain.Snapshot

// WriteBatcher coalesces rapid successive mutations into a single durable
// flush. The first mutation of a burst starts a quiet-period timer; later
// mutations in the burst replace the pending payload but do not restart
// the timer, bounding flush latency to one quiet period after the first
// write.
type WriteBatcher struct {
	repo     *FilesystemRepository
	snapshot SnapshotFunc
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	dirty   bool
	gen     uint64
	timer   *time.Timer
	lastErr error
}

// NewWriteBatcher creates a batcher flushing through the repository.
func NewWriteBatcher(repo *FilesystemRepository, snapshot SnapshotFunc, interval time.Duration, logger *slog.Logger) *WriteBatcher {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WriteBatcher{
		repo:     repo,
		snapshot: snapshot,
		interval: interval,
		logger:   logger,
	}
}

// MarkDirty records that unflushed state exists and starts the quiet-period
// timer if one is not already running.
func (b *WriteBatcher) MarkDirty() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dirty = true
	b.gen++
	if b.timer == nil {
		b.timer = time.AfterFunc(b.interval, b.flushTimer)
	}
}

// Dirty reports whether unflushed state is pending.
func (b *WriteBatcher) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// LastError returns the most recent flush failure, cleared on success.
func (b *WriteBatcher) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Flush synchronously writes the current state and cancels any pending
// timer. Used on graceful shutdown so no mutation is lost on clean
// termination. A failed write leaves the dirty flag set so a later
// mutation or flush retries.
func (b *WriteBatcher) Flush() error {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if !b.dirty {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	return b.flush()
}

// flushTimer runs when the quiet period elapses.
func (b *WriteBatcher) flushTimer() {
	b.mu.Lock()
	b.timer = nil
	dirty := b.dirty
	b.mu.Unlock()

	if !dirty {
		return
	}
	if err := b.flush(); err != nil {
		b.logger.Error("deferred flush failed, state retained for retry", "error", err)
	}
}

// flush serializes the entire current task set and writes it in one atomic
// operation. The dirty flag is cleared only on success; failures do not
// touch the in-memory store, which remains the source of truth until the
// next successful flush.
func (b *WriteBatcher) flush() error {
	b.mu.Lock()
	gen := b.gen
	b.mu.Unlock()

	snap := b.snapshot()
	err := b.repo.SaveSnapshot(snap)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.lastErr = err
		return err
	}
	// A mutation that raced the write stays pending for the next trigger.
	if b.gen == gen {
		b.dirty = false
	}
	b.lastErr = nil
	return nil
}
