package index

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/fsutil"
	"github.com/DayDreammy/Sth-Matters-epub/internal/scanner"
)

// BuildConfig configures one index build.
type BuildConfig struct {
	Root             string
	SearchPaths      []string
	Extensions       []string
	ExcludePatterns  []string
	MaxFileSize      int64
	Recursive        bool
	RespectGitignore bool

	// Workers bounds parallel file analysis (0 = NumCPU).
	Workers int

	// Scanner is reused across builds when set, keeping its .gitignore cache.
	Scanner *scanner.Scanner

	// Now overrides the build clock in tests.
	Now func() time.Time
}

// ReadFunc reads a file as text. It is swapped in tests to simulate failures.
type ReadFunc func(path string) (string, error)

var defaultRead ReadFunc = fsutil.ReadText

// Build scans the knowledge base and analyses every eligible file. Files that
// cannot be read are recorded in Metadata.Skipped and never fail the build.
// Only a missing or unreadable root is an error.
func Build(cfg BuildConfig) (*Snapshot, error) {
	return build(cfg, defaultRead)
}

func build(cfg BuildConfig, read ReadFunc) (*Snapshot, error) {
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	start := time.Now()

	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, kberrors.New(kberrors.ErrCodeRootMissing, "invalid knowledge-base root", err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, kberrors.New(kberrors.ErrCodeRootMissing,
			fmt.Sprintf("knowledge-base root not found: %s", absRoot), err).
			WithSuggestion("set root in .sthmatters.yaml or pass --root")
	}

	sc := cfg.Scanner
	if sc == nil {
		if sc, err = scanner.New(); err != nil {
			return nil, kberrors.InternalError("failed to create scanner", err)
		}
	}

	result, err := sc.Scan(scanner.Options{
		Root:             absRoot,
		SearchPaths:      cfg.SearchPaths,
		Extensions:       cfg.Extensions,
		ExcludePatterns:  cfg.ExcludePatterns,
		MaxFileSize:      cfg.MaxFileSize,
		Recursive:        cfg.Recursive,
		RespectGitignore: cfg.RespectGitignore,
	})
	if err != nil {
		return nil, kberrors.New(kberrors.ErrCodeIndexFailed, "failed to scan knowledge base", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Each worker writes only its own slot, so assembly stays in scan order.
	entries := make([]*Entry, len(result.Files))
	failures := make([]error, len(result.Files))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, f := range result.Files {
		g.Go(func() error {
			entries[i], failures[i] = analyze(f, read)
			return nil
		})
	}
	_ = g.Wait()

	meta := Metadata{
		BuiltAt:     now(),
		SearchPaths: append([]string(nil), cfg.SearchPaths...),
	}
	for _, s := range result.Skipped {
		meta.Skipped = append(meta.Skipped, SkippedFile{Path: s.Path, Reason: s.Reason})
	}

	kept := make([]*Entry, 0, len(entries))
	for i, e := range entries {
		if failures[i] != nil {
			rel := result.Files[i].Path
			slog.Warn("skipping unreadable file",
				slog.String("path", rel),
				slog.String("error", failures[i].Error()))
			meta.Skipped = append(meta.Skipped, SkippedFile{Path: rel, Reason: failures[i].Error()})
			continue
		}
		kept = append(kept, e)
	}
	meta.SkippedFiles = len(meta.Skipped)
	meta.Duration = time.Since(start)

	snap := newSnapshot(absRoot, kept, meta)

	slog.Info("index built",
		slog.Int("files", snap.Len()),
		slog.Int("skipped", meta.SkippedFiles),
		slog.Duration("duration", meta.Duration))

	return snap, nil
}

func analyze(f scanner.FileInfo, read ReadFunc) (*Entry, error) {
	content, err := read(f.AbsPath)
	if err != nil {
		return nil, err
	}

	return &Entry{
		RelativePath: f.Path,
		Title:        ExtractTitle(content, f.Path),
		Tags:         ExtractTags(content),
		Category:     Category(f.Path),
		WordCount:    CountWords(content),
		LineCount:    CountLines(content),
		Preview:      MakePreview(content, PreviewRunes),
		SizeBytes:    f.Size,
		ModifiedAt:   f.ModTime,
		ContentType:  f.ContentType,
	}, nil
}

// PartialFailure returns an IndexBuildPartialFailure warning describing the
// skipped files, or nil when nothing was skipped.
func PartialFailure(s *Snapshot) error {
	meta := s.Metadata()
	if meta.SkippedFiles == 0 {
		return nil
	}
	return kberrors.New(kberrors.ErrCodeIndexPartial,
		fmt.Sprintf("%d file(s) skipped during indexing", meta.SkippedFiles), nil).
		WithDetail("first", meta.Skipped[0].Path)
}
