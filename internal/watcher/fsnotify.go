package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/DayDreammy/Sth-Matters-epub/internal/fsutil"
	"github.com/DayDreammy/Sth-Matters-epub/internal/pathmatch"
)

// Watcher watches a directory tree with fsnotify. New directories are added
// as they appear; excluded directories are never watched.
type Watcher struct {
	opts      Options
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	exclude   *pathmatch.Matcher
	exts      map[string]bool
	errors    chan error
	stopCh    chan struct{}

	mu        sync.RWMutex
	gitignore *pathmatch.Matcher
	root      string
	stopped   bool
}

// New creates a Watcher. Nothing is watched until Start.
func New(opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	exclude := pathmatch.New(opts.ExcludePatterns...)
	exclude.Add(fsutil.LockFileName)

	w := &Watcher{
		opts:      opts,
		fsWatcher: fsw,
		debouncer: NewDebouncer(opts.Debounce, opts.EventBufferSize),
		exclude:   exclude,
		exts:      make(map[string]bool, len(opts.Extensions)),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		gitignore: pathmatch.New(),
	}
	for _, ext := range opts.Extensions {
		w.exts[strings.ToLower(ext)] = true
	}
	return w, nil
}

// Start watches root until ctx is cancelled or Stop is called. It returns
// ctx.Err() on cancellation and nil after Stop.
func (w *Watcher) Start(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.mu.Lock()
	w.root = abs
	w.mu.Unlock()

	w.loadGitignore()
	if err := w.addRecursive(abs); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}
	slog.Info("watching knowledge base", slog.String("root", abs))

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// Events returns the channel of debounced batches. It is closed by Stop.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Errors returns non-fatal watcher errors. It is closed by Stop.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops watching and closes both channels. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)

	w.debouncer.Stop()
	err := w.fsWatcher.Close()
	close(w.errors)
	return err
}

func (w *Watcher) handle(event fsnotify.Event) {
	w.mu.RLock()
	root := w.root
	w.mu.RUnlock()

	rel, err := filepath.Rel(root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}
	if w.ignored(rel, isDir) {
		return
	}

	base := filepath.Base(event.Name)
	switch {
	case base == ".gitignore":
		w.loadGitignore()
		w.debouncer.Add(FileEvent{Path: rel, Operation: OpIgnoreChange, Timestamp: time.Now()})
		return
	case slices.Contains(ConfigFileNames, base):
		w.debouncer.Add(FileEvent{Path: rel, Operation: OpConfigChange, Timestamp: time.Now()})
		return
	}

	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
		if isDir {
			if err := w.addRecursive(event.Name); err != nil {
				w.emitError(err)
			}
		}
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		// chmod
		return
	}

	// A removed path can no longer be stat'ed, so let deletions through
	// unless the extension rules them out.
	if !isDir && len(w.exts) > 0 && !w.exts[strings.ToLower(filepath.Ext(rel))] {
		return
	}

	w.debouncer.Add(FileEvent{Path: rel, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}

func (w *Watcher) ignored(rel string, isDir bool) bool {
	if rel == "." || rel == "" || strings.HasPrefix(rel, "../") {
		return true
	}
	if w.exclude.Match(rel, isDir) {
		return true
	}
	if !w.opts.RespectGitignore {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.gitignore.Match(rel, isDir)
}

func (w *Watcher) addRecursive(dir string) error {
	w.mu.RLock()
	root := w.root
	w.mu.RUnlock()

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable directory", slog.String("path", path), slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && w.ignored(rel, true) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// loadGitignore rebuilds the .gitignore matcher from every .gitignore under root.
func (w *Watcher) loadGitignore() {
	if !w.opts.RespectGitignore {
		return
	}
	w.mu.RLock()
	root := w.root
	w.mu.RUnlock()

	m := pathmatch.New()
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			if rel != "." && w.exclude.Match(filepath.ToSlash(rel), true) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ".gitignore" {
			return nil
		}
		base, _ := filepath.Rel(root, filepath.Dir(path))
		if base == "." {
			base = ""
		}
		if err := m.AddFile(path, filepath.ToSlash(base)); err != nil {
			slog.Warn("failed to read gitignore", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	})

	w.mu.Lock()
	w.gitignore = m
	w.mu.Unlock()
}

func (w *Watcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}
