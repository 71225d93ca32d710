// Package scanner discovers knowledge-base files under the configured search
// paths, applying the extension allow-list, the size limit, segment-aware
// exclude patterns and, optionally, .gitignore files.
package scanner

import (
	"path/filepath"
	"strings"
	"time"
)

// ContentType classifies a file by extension.
type ContentType string

const (
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeText     ContentType = "text"
	ContentTypeJSON     ContentType = "json"
	ContentTypeHTML     ContentType = "html"
	ContentTypeOther    ContentType = "other"
)

// FileInfo describes one candidate file.
type FileInfo struct {
	Path        string      // knowledge-base-relative, forward slashes
	AbsPath     string      // absolute path on disk
	Size        int64       // bytes
	ModTime     time.Time   // last modification
	Ext         string      // lower-case extension including the dot
	ContentType ContentType // derived from Ext
}

// Skipped records a path the scanner could not visit.
type Skipped struct {
	Path   string
	Reason string
}

// Options configures a scan.
type Options struct {
	// Root is the knowledge-base root directory.
	Root string

	// SearchPaths are root-relative directories or files. Empty, "*" and "."
	// mean the whole root.
	SearchPaths []string

	// Extensions is the suffix allow-list (lower-case, with dot). Empty allows all.
	Extensions []string

	// ExcludePatterns use pathmatch syntax.
	ExcludePatterns []string

	// MaxFileSize in bytes; 0 means DefaultMaxFileSize.
	MaxFileSize int64

	// Recursive descends into subdirectories of directory search paths.
	Recursive bool

	// RespectGitignore applies .gitignore files found in the knowledge base.
	RespectGitignore bool

	// FollowSymlinks includes symlinked files.
	FollowSymlinks bool
}

// Result is the outcome of a scan. Files are in discovery order: search path
// order first, lexical order within each path.
type Result struct {
	Files   []FileInfo
	Skipped []Skipped
}

// DefaultMaxFileSize is 100 MiB.
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

var contentTypes = map[string]ContentType{
	".md":       ContentTypeMarkdown,
	".markdown": ContentTypeMarkdown,
	".txt":      ContentTypeText,
	".json":     ContentTypeJSON,
	".html":     ContentTypeHTML,
	".htm":      ContentTypeHTML,
}

// DetectContentType returns the content type for a path's extension.
func DetectContentType(path string) ContentType {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return ContentTypeOther
}
