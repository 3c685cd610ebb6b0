package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher turns file system events in a FileStorage directory into storage
// events. It observes writes made by any process, including its own.
type Watcher struct {
	logger  *slog.Logger
	storage *FileStorage
	watcher *fsnotify.Watcher
	subs    subscribers
	done    chan struct{}
}

// type check
var _ Notifier = (*Watcher)(nil)

// NewWatcher starts tracking the directory of fs. Events are delivered only
// after Start.
func NewWatcher(fs *FileStorage, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	// Watch the directory rather than single files, since the files are
	// replaced by renames.
	if err := w.Add(fs.Dir()); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %q: %w", fs.Dir(), err)
	}

	return &Watcher{
		logger:  logger,
		storage: fs,
		watcher: w,
		done:    make(chan struct{}),
	}, nil
}

// Start begins delivering events. It must be called once.
func (w *Watcher) Start(ctx context.Context) {
	go w.handleErrors(ctx)
	go w.handleEvents(ctx)
}

// Shutdown stops the watcher and waits for the event loop to exit.
func (w *Watcher) Shutdown(ctx context.Context) error {
	err := w.watcher.Close()

	select {
	case <-w.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return err
}

// Subscribe implements the [Notifier] interface for *Watcher. fn is called
// from the watcher's goroutine.
func (w *Watcher) Subscribe(fn func(Event)) func() {
	return w.subs.add(fn)
}

func (w *Watcher) handleEvents(ctx context.Context) {
	defer close(w.done)

	for e := range w.watcher.Events {
		ev, ok := w.translate(e)
		if !ok {
			continue
		}

		w.logger.DebugContext(ctx, "storage changed", "key", ev.Key, "removed", ev.Removed)
		w.subs.broadcast(ev)
	}
}

// translate maps a raw file system event to a storage event. The current
// value is read from disk, so a late event for an overwritten or removed key
// still reports what is stored now.
func (w *Watcher) translate(e fsnotify.Event) (Event, bool) {
	if filepath.Clean(e.Name) == w.storage.Dir() {
		if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
			return Event{}, true
		}
		return Event{}, false
	}

	key := filepath.Base(e.Name)
	if ValidateKey(key) != nil {
		// Temporary files of in-flight writes.
		return Event{}, false
	}

	if e.Has(fsnotify.Chmod) && !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return Event{}, false
	}

	return w.current(key), true
}

func (w *Watcher) current(key string) Event {
	v, ok, err := w.storage.Get(key)
	if err != nil {
		w.logger.Debug("reading changed key", "key", key, "error", err)
		return Event{Key: key, Removed: true}
	}
	if !ok {
		return Event{Key: key, Removed: true}
	}
	return Event{Key: key, Value: v}
}

func (w *Watcher) handleErrors(ctx context.Context) {
	for err := range w.watcher.Errors {
		w.logger.ErrorContext(ctx, "watching storage", "error", err)
	}
}
