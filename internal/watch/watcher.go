// Package watch reports debounced changes to a single file.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// Config configures the file watcher.
type Config struct {
	// Path is the file to watch.
	Path string

	// Debounce is the quiet period after the last event before OnChange
	// runs.
	Debounce time.Duration

	Logger *slog.Logger
}

// Change describes a debounced burst of events.
type Change struct {
	Path   string
	Events int
	At     time.Time
}

// Watcher monitors one file for changes.
//
// The parent directory is watched rather than the file itself, so editors
// that save by renaming a temporary file over the original are seen.
type Watcher struct {
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	onChange func(Change)
	running  bool
}

// New creates a watcher. It does nothing until Run is called.
func New(config Config) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounce
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		config: config,
		logger: logger.With("component", "watch", "path", config.Path),
	}
}

// OnChange sets the callback for changes. It runs on the watcher
// goroutine.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Running reports whether Run is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	abs, err := filepath.Abs(w.config.Path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	var (
		timer  *time.Timer
		fire   <-chan time.Time
		events int
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			events++
			if timer == nil {
				timer = time.NewTimer(w.config.Debounce)
			} else {
				timer.Reset(w.config.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			change := Change{Path: w.config.Path, Events: events, At: time.Now()}
			events = 0
			w.logger.Debug("file changed", "events", change.Events)

			w.mu.Lock()
			fn := w.onChange
			w.mu.Unlock()
			if fn != nil {
				fn(change)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}
