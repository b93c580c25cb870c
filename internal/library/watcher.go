package library

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// rescanDebounce coalesces bursts of filesystem events (a copy of an
// album folder fires hundreds) into one rescan.
const rescanDebounce = 2 * time.Second

// Watcher triggers a library reload when files under the library
// directory change.
type Watcher struct {
	manager *Manager
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts monitoring dir recursively. It reloads the library after
// changes settle and keeps running until Close.
func (m *Manager) Watch(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		manager: m,
		watcher: fsw,
		done:    make(chan struct{}),
	}

	if err := w.addDirectories(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()

	m.logger.WithField("library_path", dir).Info("Library watcher started")
	return w, nil
}

// addDirectories recursively adds dir and its subdirectories.
func (w *Watcher) addDirectories(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// run selects on watcher channels, debouncing reloads.
func (w *Watcher) run() {
	var pending *time.Timer
	var pendingC <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// New subdirectories need to be watched too.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(event.Name); err != nil {
						w.manager.logger.WithError(err).WithField("path", event.Name).Warn("Failed to watch new directory")
					}
				}
			}
			if pending == nil {
				pending = time.NewTimer(rescanDebounce)
				pendingC = pending.C
			} else {
				pending.Reset(rescanDebounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.manager.logger.WithError(err).Warn("Library watcher error")

		case <-pendingC:
			pending = nil
			pendingC = nil
			w.manager.logger.Info("Library changed, rescanning")
			if _, err := w.manager.Reload(); err != nil {
				w.manager.logger.WithError(err).Error("Library rescan failed")
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
