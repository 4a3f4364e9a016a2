package spool

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Subdirectories that handled files are moved into.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// HandlerFunc ingests one spooled file.
type HandlerFunc func(ctx context.Context, path string) error

// Watcher monitors a spool directory for new feature collections. Writers
// should create files under a temporary name and rename them into place.
type Watcher struct {
	dir     string
	handle  HandlerFunc
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	// mu serializes process so the event loop and Backfill never handle the
	// same file twice.
	mu sync.Mutex
}

// NewWatcher creates a Watcher for dir. The directory and its processed and
// failed subdirectories are created if missing.
func NewWatcher(dir string, handle HandlerFunc, logger *slog.Logger) (*Watcher, error) {
	for _, d := range []string{dir, filepath.Join(dir, ProcessedDir), filepath.Join(dir, FailedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create spool dir: %w", err)
		}
	}
	return &Watcher{dir: dir, handle: handle, logger: logger}, nil
}

// Start registers the directory watch and processes events in the
// background until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.watcher = fw

	go w.loop(ctx)
	w.logger.Info("spool watcher started", "dir", w.dir)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && isCollection(evt.Name) {
				w.process(ctx, evt.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("spool watcher error", "error", err)
		}
	}
}

// Backfill processes files already present in the directory, oldest name
// first. It is safe to call after Start; a file seen by both is handled once.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := filepath.Glob(filepath.Join(w.dir, "*"))
	if err != nil {
		return err
	}
	sort.Strings(entries)
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isCollection(e) {
			w.process(ctx, e)
		}
	}
	return nil
}

func (w *Watcher) process(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		// Rename events also fire for the old name.
		return
	}

	dest := ProcessedDir
	if err := w.handle(ctx, path); err != nil {
		w.logger.Error("spool file failed", "path", path, "error", err)
		dest = FailedDir
	} else {
		w.logger.Info("spool file ingested", "path", path)
	}

	target := filepath.Join(w.dir, dest, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		w.logger.Warn("move spool file", "path", path, "target", target, "error", err)
	}
}

func isCollection(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".geojson":
		return true
	default:
		return false
	}
}
