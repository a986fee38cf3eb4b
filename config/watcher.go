package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/logger"
)

// ChangeWatcher watches the run trigger surface: the pin file, the pipeline
// configuration, the trigger definition itself, and any globs the trigger
// names. Any matching change schedules a debounced trigger callback.
type ChangeWatcher struct {
	watcher        *fsnotify.Watcher
	trigger        *TriggerDefinition
	explicit       map[string]bool
	callbacks      []TriggerCallback
	mu             sync.RWMutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
}

// TriggerCallback is called when a watched file changes, after debouncing.
// Receives the path that fired the trigger.
type TriggerCallback func(changedPath string) error

// NewChangeWatcher creates a watcher over the given paths plus any globs
// named by the trigger definition. Explicit paths must exist; a glob whose
// containing directory cannot be watched is skipped with a warning, since
// trigger definitions may name paths that only appear later.
func NewChangeWatcher(trigger *TriggerDefinition, debounce time.Duration, paths ...string) (*ChangeWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	explicit := make(map[string]bool)
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", path)
		}
		explicit[filepath.Clean(path)] = true
	}

	// A glob cannot be watched directly, so watch its containing directory
	// and let the event filter apply the pattern.
	if trigger != nil {
		for _, pattern := range trigger.Paths {
			dir := filepath.Dir(pattern)
			if err := watcher.Add(dir); err != nil {
				logger.Warnw("Cannot watch trigger glob directory, skipping",
					"pattern", pattern,
					"dir", dir,
					"error", err)
			}
		}
	}

	return &ChangeWatcher{
		watcher:        watcher,
		trigger:        trigger,
		explicit:       explicit,
		callbacks:      make([]TriggerCallback, 0),
		debouncePeriod: debounce,
	}, nil
}

// OnTrigger registers a callback to be called when a watched file changes
func (cw *ChangeWatcher) OnTrigger(callback TriggerCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// Start begins watching for file changes
func (cw *ChangeWatcher) Start() {
	go cw.watchLoop()
}

// Close stops the watcher
func (cw *ChangeWatcher) Close() error {
	cw.mu.Lock()
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.mu.Unlock()
	return cw.watcher.Close()
}

// shouldFire decides whether a changed path belongs to the trigger surface.
// Directory watches added for globs see every neighbor file, so events that
// are neither an explicit watch target nor a glob match are dropped.
func (cw *ChangeWatcher) shouldFire(path string) bool {
	if isBackupFile(path) {
		return false
	}
	if cw.explicit[filepath.Clean(path)] {
		return true
	}
	return cw.trigger != nil && cw.trigger.Matches(path)
}

// watchLoop monitors file system events
func (cw *ChangeWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}

			// Only trigger on Write or Create events
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if !cw.shouldFire(event.Name) {
					continue
				}

				logger.Infow("Change watcher detected modification",
					"file", event.Name,
					"op", event.Op.String())
				cw.scheduleTrigger(event.Name)
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Change watcher error",
				"error", err)
		}
	}
}

// scheduleTrigger debounces rapid file changes before firing callbacks
func (cw *ChangeWatcher) scheduleTrigger(changedPath string) {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}

	cw.debounceTimer = time.AfterFunc(cw.debouncePeriod, func() {
		cw.fire(changedPath)
	})
}

// fire calls all registered callbacks
func (cw *ChangeWatcher) fire(changedPath string) {
	cw.mu.RLock()
	callbacks := make([]TriggerCallback, len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback(changedPath); err != nil {
			logger.Errorw("Trigger callback failed",
				"file", changedPath,
				"error", err)
		}
	}
}
