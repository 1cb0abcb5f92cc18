package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/farazpawle/agent-flow-sub001/internal/storage"
)

// DefaultQuietWindow is how long the data file must be idle before a
// reload fires.
const DefaultQuietWindow = 500 * time.Millisecond

// DataWatcher observes the data directory and invokes onReload when the
// tasks file changes on disk. Only the tasks file triggers a reload;
// archives, backups, and the temp files left by atomic writes are
// ignored.
type DataWatcher struct {
	watcher  *fsnotify.Watcher
	dataDir  string
	window   time.Duration
	onReload func()
}

// NewDataWatcher creates a watcher over the data directory under root.
func NewDataWatcher(root string, window time.Duration, onReload func()) (*DataWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if window <= 0 {
		window = DefaultQuietWindow
	}
	return &DataWatcher{
		watcher:  w,
		dataDir:  filepath.Join(root, storage.DataDir),
		window:   window,
		onReload: onReload,
	}, nil
}

// Run blocks, dispatching debounced reloads until the context is
// cancelled.
func (w *DataWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.watcher.Add(w.dataDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dataDir, err)
	}

	quiet := newQuietWindow(w.window, w.onReload)
	defer quiet.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			quiet.note()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (w *DataWatcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.Contains(name, ".tmp-") {
		return false
	}
	return name == storage.TasksFile
}
