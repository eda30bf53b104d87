// Package watch re-runs a callback when astmap's inputs change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a file or a directory tree. Changes are debounced, and the
// callback never runs concurrently with itself.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	isDir    bool
	debounce time.Duration
	match    func(path string) bool
	logger   *slog.Logger
}

// New creates a watcher for path. For a directory, match selects the files
// whose changes count; a nil match accepts every file. For a single file
// only that file counts. The parent directory is watched so that editors
// replacing the file by rename are seen.
func New(path string, debounce time.Duration, match func(string) bool, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if match == nil {
		match = func(string) bool { return true }
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		root:     abs,
		isDir:    info.IsDir(),
		debounce: debounce,
		match:    match,
		logger:   logger,
	}

	if w.isDir {
		err = w.addTree(abs)
	} else {
		err = fsw.Add(filepath.Dir(abs))
	}
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}
	return w, nil
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks until ctx is done, calling onChange once per burst of relevant
// events. A failing onChange is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	w.logger.Info("watching for changes", "path", w.root, "debounce_ms", w.debounce.Milliseconds())

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case <-timer.C:
			if err := onChange(ctx); err != nil {
				w.logger.Error("re-render failed", "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if !w.isDir {
		return filepath.Clean(event.Name) == w.root
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
			return false
		}
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	return w.match(event.Name)
}

// addTree adds dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}
