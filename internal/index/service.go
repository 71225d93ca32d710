package index

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DayDreammy/Sth-Matters-epub/internal/config"
	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/scanner"
)

// Service owns the published snapshot. Readers call Snapshot and keep the
// pointer they got for as long as they need it; writers build a complete new
// snapshot and swap it in only on success.
type Service struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[Snapshot]
	version atomic.Uint64

	cfg     *config.Config
	scanner *scanner.Scanner
	read    ReadFunc
	now     func() time.Time
}

// NewService creates a Service for cfg. No snapshot is published until the
// first Rebuild.
func NewService(cfg *config.Config) (*Service, error) {
	sc, err := scanner.New()
	if err != nil {
		return nil, kberrors.InternalError("failed to create scanner", err)
	}
	return &Service{cfg: cfg, scanner: sc}, nil
}

// Snapshot returns the published snapshot, or nil before the first build.
func (s *Service) Snapshot() *Snapshot {
	return s.current.Load()
}

// Require returns the published snapshot or a NoIndex error.
func (s *Service) Require() (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}
	return nil, kberrors.New(kberrors.ErrCodeNoIndex, "no index has been built", nil).
		WithSuggestion("run 'sthmatters index' first")
}

// Rebuild builds a new snapshot from the current configuration and publishes
// it. On error the previous snapshot stays published.
func (s *Service) Rebuild() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked()
}

func (s *Service) rebuildLocked() (*Snapshot, error) {
	// Long-running callers may have edited .gitignore files since the last build.
	s.scanner.InvalidateGitignoreCache()

	read := s.read
	if read == nil {
		read = defaultRead
	}

	snap, err := build(s.buildConfig(), read)
	if err != nil {
		return nil, err
	}
	snap.meta.Version = s.version.Add(1)
	s.current.Store(snap)
	return snap, nil
}

// UseProfile makes the named search profile active and rebuilds. An unknown
// profile leaves both the configuration and the snapshot unchanged.
func (s *Service) UseProfile(name string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cfg.UseProfile(name); err != nil {
		return nil, err
	}
	return s.rebuildLocked()
}

// SetSearchPaths overrides the active search paths for subsequent rebuilds.
func (s *Service) SetSearchPaths(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Index.DefaultSearchPaths = append([]string(nil), paths...)
}

func (s *Service) buildConfig() BuildConfig {
	return BuildConfig{
		Root:             s.cfg.Root,
		SearchPaths:      append([]string(nil), s.cfg.Index.DefaultSearchPaths...),
		Extensions:       s.cfg.Index.SupportedExtensions,
		ExcludePatterns:  s.cfg.ExcludePatterns(),
		MaxFileSize:      s.cfg.Index.MaxFileSizeBytes,
		Recursive:        s.cfg.IncludeSubdirectories(),
		RespectGitignore: s.cfg.RespectGitignore(),
		Workers:          s.cfg.Index.Workers,
		Scanner:          s.scanner,
		Now:              s.now,
	}
}

// Stats summarizes a snapshot.
type Stats struct {
	Version        uint64          `json:"version"`
	TotalFiles     int             `json:"total_files"`
	TotalSizeBytes int64           `json:"total_size_bytes"`
	TotalWords     int             `json:"total_words"`
	TotalTags      int             `json:"total_tags"`
	SkippedFiles   int             `json:"skipped_files"`
	BuiltAt        time.Time       `json:"built_at"`
	FileTypes      map[string]int  `json:"file_types"`
	Categories     map[string]int  `json:"categories"`
	TopCategories  []CategoryCount `json:"top_categories"`
}

// CategoryCount pairs a category with its file count.
type CategoryCount struct {
	Category string `json:"category"`
	Files    int    `json:"files"`
}

// ComputeStats summarizes snap.
func ComputeStats(snap *Snapshot) Stats {
	meta := snap.Metadata()
	st := Stats{
		Version:        meta.Version,
		TotalFiles:     meta.TotalFiles,
		TotalSizeBytes: meta.TotalSizeBytes,
		TotalTags:      len(snap.tagIndex),
		SkippedFiles:   meta.SkippedFiles,
		BuiltAt:        meta.BuiltAt,
		FileTypes:      make(map[string]int),
		Categories:     make(map[string]int),
	}
	for _, e := range snap.Entries() {
		st.TotalWords += e.WordCount
		st.FileTypes[string(e.ContentType)]++
		st.Categories[e.Category]++
	}

	for c, n := range st.Categories {
		st.TopCategories = append(st.TopCategories, CategoryCount{Category: c, Files: n})
	}
	sort.Slice(st.TopCategories, func(i, j int) bool {
		a, b := st.TopCategories[i], st.TopCategories[j]
		if a.Files != b.Files {
			return a.Files > b.Files
		}
		return a.Category < b.Category
	})
	return st
}

// Stats summarizes the published snapshot.
func (s *Service) Stats() (Stats, error) {
	snap, err := s.Require()
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(snap), nil
}
