// Package index builds immutable, in-memory snapshots of a knowledge base and
// publishes them through a Service that swaps whole snapshots atomically.
package index

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/DayDreammy/Sth-Matters-epub/internal/scanner"
)

// Entry is the analysis of one knowledge-base file.
type Entry struct {
	RelativePath string              `json:"relative_path"`
	Title        string              `json:"title"`
	Tags         []string            `json:"tags"`
	Category     string              `json:"category"`
	WordCount    int                 `json:"word_count"`
	LineCount    int                 `json:"line_count"`
	Preview      string              `json:"preview"`
	SizeBytes    int64               `json:"size_bytes"`
	ModifiedAt   time.Time           `json:"modified_at"`
	ContentType  scanner.ContentType `json:"content_type"`
}

// SkippedFile records a file left out of a snapshot.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Metadata describes how a snapshot was built.
type Metadata struct {
	Version        uint64        `json:"version"`
	TotalFiles     int           `json:"total_files"`
	TotalSizeBytes int64         `json:"total_size_bytes"`
	BuiltAt        time.Time     `json:"built_at"`
	Duration       time.Duration `json:"duration"`
	SearchPaths    []string      `json:"search_paths"`
	SkippedFiles   int           `json:"skipped_files"`
	Skipped        []SkippedFile `json:"skipped,omitempty"`
}

// Snapshot is the complete result of one index build. It is never modified
// once published.
type Snapshot struct {
	root     string
	entries  map[string]*Entry
	paths    []string
	tagIndex map[string][]string
	meta     Metadata
}

func newSnapshot(root string, entries []*Entry, meta Metadata) *Snapshot {
	s := &Snapshot{
		root:     root,
		entries:  make(map[string]*Entry, len(entries)),
		paths:    make([]string, 0, len(entries)),
		tagIndex: make(map[string][]string),
		meta:     meta,
	}
	for _, e := range entries {
		if _, dup := s.entries[e.RelativePath]; dup {
			continue
		}
		s.entries[e.RelativePath] = e
		s.paths = append(s.paths, e.RelativePath)
		s.meta.TotalSizeBytes += e.SizeBytes

		seen := make(map[string]bool, len(e.Tags))
		for _, tag := range e.Tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			s.tagIndex[tag] = append(s.tagIndex[tag], e.RelativePath)
		}
	}
	sort.Strings(s.paths)
	s.meta.TotalFiles = len(s.paths)
	return s
}

// Root returns the absolute knowledge-base root.
func (s *Snapshot) Root() string { return s.root }

// Metadata returns the build metadata.
func (s *Snapshot) Metadata() Metadata { return s.meta }

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.paths) }

// Entry looks up an entry by relative path.
func (s *Snapshot) Entry(relPath string) (*Entry, bool) {
	e, ok := s.entries[relPath]
	return e, ok
}

// Entries returns all entries ordered by relative path.
func (s *Snapshot) Entries() []*Entry {
	out := make([]*Entry, 0, len(s.paths))
	for _, p := range s.paths {
		out = append(out, s.entries[p])
	}
	return out
}

// Paths returns the relative paths in lexical order.
func (s *Snapshot) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Tags returns the distinct tags in lexical order.
func (s *Snapshot) Tags() []string {
	tags := make([]string, 0, len(s.tagIndex))
	for t := range s.tagIndex {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// FilesWithTag returns the files carrying tag, in build order.
func (s *Snapshot) FilesWithTag(tag string) []string {
	return append([]string(nil), s.tagIndex[tag]...)
}

// AbsPath resolves a relative entry path against the root.
func (s *Snapshot) AbsPath(relPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relPath))
}
