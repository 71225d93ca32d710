package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/fsutil"
)

// DefaultLockTimeout bounds the wait for the output directory lock.
const DefaultLockTimeout = 10 * time.Second

// Writer saves generated artifacts into an output directory. Each save holds
// the directory lock and replaces the target atomically, so concurrent saves
// to distinct names are safe.
type Writer struct {
	dir         string
	lockTimeout time.Duration
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, lockTimeout: DefaultLockTimeout}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Save writes content as name with the extension of format and returns the
// written path. Strings and byte slices are written verbatim; other values
// are encoded as JSON indented by two spaces.
func (w *Writer) Save(content any, name string, format Format) (string, error) {
	ext, err := format.Ext()
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(name), ext) {
		name += ext
	}
	path := filepath.Join(w.dir, name)

	data, err := encode(content)
	if err != nil {
		return "", kberrors.OutputWriteError(path, err)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", kberrors.OutputWriteError(path, err)
	}

	lock := fsutil.NewDirLock(w.dir)
	if err := lock.Lock(w.lockTimeout); err != nil {
		return "", kberrors.New(kberrors.ErrCodeOutputLocked, "output directory is locked", err).
			WithDetail("dir", w.dir).
			WithSuggestion("Wait for the other sthmatters process to finish")
	}
	defer func() { _ = lock.Unlock() }()

	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", kberrors.OutputWriteError(path, err)
	}

	slog.Debug("document saved", slog.String("path", path), slog.Int("bytes", len(data)))
	return path, nil
}

// SaveDocument saves a rendered Document.
func (w *Writer) SaveDocument(doc Document) (string, error) {
	return w.Save(doc.Payload, doc.Name, doc.Format)
}

func encode(content any) ([]byte, error) {
	switch v := content.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(content); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.Bytes(), nil
}
