// Package watch reloads the in-memory store when the persisted data file
// is edited outside the running process.
package watch

import "time"

// quietWindow runs onIdle once notes stop arriving for a full window.
// Each note pushes the deadline out, so a burst of filesystem events
// produces a single reload after the file settles. Note the contrast
// with the write batcher, whose timer deliberately does not restart.
type quietWindow struct {
	window time.Duration
	notes  chan struct{}
	done   chan struct{}
	onIdle func()
}

func newQuietWindow(window time.Duration, onIdle func()) *quietWindow {
	q := &quietWindow{
		window: window,
		notes:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		onIdle: onIdle,
	}
	go q.run()
	return q
}

func (q *quietWindow) run() {
	timer := time.NewTimer(q.window)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false
	for {
		select {
		case <-q.done:
			timer.Stop()
			return
		case <-q.notes:
			if armed && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(q.window)
			armed = true
		case <-timer.C:
			armed = false
			q.onIdle()
		}
	}
}

// note records activity without blocking; pending notes coalesce.
func (q *quietWindow) note() {
	select {
	case q.notes <- struct{}{}:
	default:
	}
}

// stop cancels any pending onIdle. Must be called exactly once.
func (q *quietWindow) stop() {
	close(q.done)
}
