package watcher

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// ConfigWatcher invokes a callback when the config file changes on disk.
// It watches the file's directory rather than the file itself so that
// editors which replace the file on save (write to temp, rename over)
// keep triggering after the inode changes.
type ConfigWatcher struct {
	dir      string
	base     string
	debounce time.Duration
	onChange func()
	fw       *fsnotify.Watcher
	log      *slog.Logger
}

// New creates a watcher for the config file at path. onChange runs on the
// watcher goroutine once events settle for one debounce interval; a
// debounce <= 0 selects the 500ms default.
func New(path string, debounce time.Duration, onChange func(), logger *slog.Logger) (*ConfigWatcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &ConfigWatcher{
		dir:      filepath.Dir(path),
		base:     filepath.Base(path),
		debounce: debounce,
		onChange: onChange,
		fw:       fw,
		log:      logger,
	}, nil
}

// Start begins watching the config file's directory.
func (w *ConfigWatcher) Start() error {
	if err := w.fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.log.Debug("watching config file", "dir", w.dir, "file", w.base)

	go w.loop()

	return nil
}

// Stop closes the underlying watcher. A debounced change already in
// flight may still invoke the callback once.
func (w *ConfigWatcher) Stop() {
	w.fw.Close()
}

func (w *ConfigWatcher) loop() {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != w.base {
				continue
			}
			// Chmod alone carries no content change.
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) &&
				!ev.Op.Has(fsnotify.Rename) && !ev.Op.Has(fsnotify.Remove) {
				continue
			}
			w.log.Debug("config file event", "op", ev.Op.String())
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			pending = false
			w.onChange()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "error", err)
		}
	}
}
