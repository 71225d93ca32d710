package manifest

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/fsutil"
)

// Placeholder is the body substituted for a source file that cannot be loaded.
func Placeholder(filePath string) string {
	return fmt.Sprintf("Source file not found: %s", filePath)
}

// SourceLoader loads source text, substituting Placeholder when a file cannot
// be read. The bool reports whether the real content was loaded.
type SourceLoader interface {
	LoadOrPlaceholder(filePath string) (string, bool)
}

// Loader reads source files relative to a knowledge-base root. It caches
// contents and remembers which files were missing. It is safe for concurrent
// use, so one Loader can serve several parallel renders.
type Loader struct {
	root string
	read func(path string) (string, error)

	mu      sync.Mutex
	cache   map[string]string
	missing map[string]bool
}

// NewLoader creates a Loader for root.
func NewLoader(root string) *Loader {
	return &Loader{
		root:    root,
		read:    fsutil.ReadText,
		cache:   make(map[string]string),
		missing: make(map[string]bool),
	}
}

// Load returns the text of filePath. A missing or unreadable file, or a path
// escaping the root, yields a SourceFileMissing warning.
func (l *Loader) Load(filePath string) (string, error) {
	l.mu.Lock()
	if content, ok := l.cache[filePath]; ok {
		l.mu.Unlock()
		return content, nil
	}
	l.mu.Unlock()

	content, err := l.readSource(filePath)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		if !l.missing[filePath] {
			slog.Warn("source file missing",
				slog.String("path", filePath),
				slog.String("error", err.Error()))
		}
		l.missing[filePath] = true
		return "", kberrors.SourceFileMissing(filePath, err)
	}
	l.cache[filePath] = content
	return content, nil
}

// LoadOrPlaceholder returns the file text, or Placeholder when it cannot be loaded.
func (l *Loader) LoadOrPlaceholder(filePath string) (string, bool) {
	content, err := l.Load(filePath)
	if err != nil {
		return Placeholder(filePath), false
	}
	return content, true
}

// Missing returns the paths that failed to load, sorted.
func (l *Loader) Missing() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.missing))
	for p := range l.missing {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (l *Loader) readSource(filePath string) (string, error) {
	clean := path.Clean(filepath.ToSlash(filePath))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path outside knowledge-base root: %s", filePath)
	}
	return l.read(filepath.Join(l.root, filepath.FromSlash(clean)))
}
