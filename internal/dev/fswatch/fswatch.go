// Package fswatch is the out-of-scope "filesystem change notification"
// collaborator (spec §1) the File subgraph watcher (spec §4.H) subscribes
// to. fsnotify is the ecosystem-standard choice for this concern (see
// DESIGN.md).
package fswatch

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watcher emits an event (possibly carrying an error) each time the
// watched path changes, matching the `Fs::watch_file` channel shape from
// the original source: a channel of Result<(), Error>.
type Watcher struct {
	inner  *fsnotify.Watcher
	events chan error
}

// WatchFile starts watching path and returns a Watcher whose Events channel
// receives a nil error on every write/create event and a non-nil error if
// the notification backend itself fails. Callers must call Close when done.
func WatchFile(path string) (*Watcher, error) {
	inner, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to start filesystem watcher: %w", err)
	}
	if err := inner.Add(path); err != nil {
		inner.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	w := &Watcher{inner: inner, events: make(chan error)}
	go w.pump()
	return w, nil
}

func (w *Watcher) pump() {
	defer close(w.events)
	for {
		select {
		case event, ok := <-w.inner.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.events <- nil
			}
		case err, ok := <-w.inner.Errors:
			if !ok {
				return
			}
			w.events <- err
		}
	}
}

// Events returns the channel of change notifications.
func (w *Watcher) Events() <-chan error {
	return w.events
}

// Close stops the underlying notification backend.
func (w *Watcher) Close() error {
	return w.inner.Close()
}
