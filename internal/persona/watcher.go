package persona

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"deskmate/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads personalities when their JSON files change on disk, so a
// user editing a character file sees the change without restarting.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	manager *Manager

	debounceMap map[string]time.Time
	debounceDur time.Duration
	running     bool
}

// NewWatcher creates a watcher for the manager's personalities directory.
func NewWatcher(manager *Manager) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		manager:     manager,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // Debounce rapid saves
	}, nil
}

// Run watches until the context is cancelled. Blocking; callers run it in
// its own goroutine (the CLI uses an errgroup).
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	defer w.watcher.Close()

	if err := w.watcher.Add(w.manager.dir); err != nil {
		// Directory may not exist yet; the companion still works without
		// personalities, so just note it and idle until cancellation.
		logging.PersonaWarn("watch of %s failed: %v", w.manager.dir, err)
		<-ctx.Done()
		return nil
	}
	logging.Persona("watching personalities directory: %s", w.manager.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.PersonaError("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(strings.ToLower(event.Name), ".json") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	last, seen := w.debounceMap[event.Name]
	now := time.Now()
	if seen && now.Sub(last) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.debounceMap[event.Name] = now
	w.mu.Unlock()

	logging.Persona("personality file %s changed (%s), reloading", filepath.Base(event.Name), event.Op)
	if err := w.manager.Load(); err != nil {
		logging.PersonaError("reload failed: %v", err)
	}
}
