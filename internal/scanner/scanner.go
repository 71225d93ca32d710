package scanner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/DayDreammy/Sth-Matters-epub/internal/pathmatch"
)

// gitignoreCacheSize bounds the number of parsed .gitignore files kept around
// for long-running processes such as the watch command.
const gitignoreCacheSize = 1000

// Scanner discovers candidate files. It is safe for concurrent use.
type Scanner struct {
	// gitignoreCache maps an absolute directory to its parsed .gitignore.
	// A nil matcher records that the directory has none.
	gitignoreCache *lru.Cache[string, *pathmatch.Matcher]
}

// New creates a Scanner.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *pathmatch.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	return &Scanner{gitignoreCache: cache}, nil
}

// scan holds per-call state.
type scan struct {
	s       *Scanner
	opts    Options
	absRoot string
	exclude *pathmatch.Matcher
	exts    map[string]bool
	maxSize int64
	seen    map[string]bool
	result  *Result
}

// Scan walks every search path and returns the eligible files.
// Only an unusable root is an error; problems with individual search paths or
// directories are recorded in Result.Skipped.
func (s *Scanner) Scan(opts Options) (*Result, error) {
	absRoot, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat knowledge-base root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("knowledge-base root is not a directory: %s", absRoot)
	}

	st := &scan{
		s:       s,
		opts:    opts,
		absRoot: absRoot,
		exclude: pathmatch.New(opts.ExcludePatterns...),
		exts:    make(map[string]bool, len(opts.Extensions)),
		maxSize: opts.MaxFileSize,
		seen:    make(map[string]bool),
		result:  &Result{},
	}
	if st.maxSize <= 0 {
		st.maxSize = DefaultMaxFileSize
	}
	for _, ext := range opts.Extensions {
		st.exts[strings.ToLower(ext)] = true
	}

	searchPaths := opts.SearchPaths
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}
	for _, sp := range searchPaths {
		st.scanPath(sp)
	}

	return st.result, nil
}

// InvalidateGitignoreCache drops all cached .gitignore matchers.
func (s *Scanner) InvalidateGitignoreCache() {
	s.gitignoreCache.Purge()
}

// NormalizeSearchPath cleans a root-relative search path. It returns "." for
// the whole root and false for paths that escape the root.
func NormalizeSearchPath(sp string) (string, bool) {
	sp = strings.TrimSpace(filepath.ToSlash(sp))
	if sp == "" || sp == "*" {
		return ".", true
	}
	if strings.HasPrefix(sp, "/") {
		return "", false
	}
	sp = path.Clean(sp)
	if sp == ".." || strings.HasPrefix(sp, "../") {
		return "", false
	}
	return sp, true
}

func (st *scan) skip(rel, reason string) {
	st.result.Skipped = append(st.result.Skipped, Skipped{Path: rel, Reason: reason})
	slog.Warn("skipping path", slog.String("path", rel), slog.String("reason", reason))
}

func (st *scan) scanPath(sp string) {
	rel, ok := NormalizeSearchPath(sp)
	if !ok {
		st.skip(sp, "search path outside knowledge-base root")
		return
	}

	abs := filepath.Join(st.absRoot, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		st.skip(rel, "search path not found")
		return
	}

	if !info.IsDir() {
		if st.excluded(rel, false) {
			return
		}
		st.consider(rel, abs, info)
		return
	}

	if rel != "." && st.excluded(rel, true) {
		return
	}

	walkErr := filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		relPath, relErr := filepath.Rel(st.absRoot, p)
		if relErr != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if err != nil {
			st.skip(relPath, err.Error())
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if p == abs {
				return nil
			}
			if !st.opts.Recursive || st.excluded(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !st.opts.FollowSymlinks {
			return nil
		}
		if st.excluded(relPath, false) {
			return nil
		}

		fi, err := os.Stat(p)
		if err != nil {
			st.skip(relPath, err.Error())
			return nil
		}
		if fi.IsDir() {
			return nil
		}
		st.consider(relPath, p, fi)
		return nil
	})
	if walkErr != nil {
		st.skip(rel, walkErr.Error())
	}
}

// consider applies the extension and size filters and records the file once.
func (st *scan) consider(rel, abs string, info os.FileInfo) {
	if st.seen[rel] {
		return
	}
	ext := strings.ToLower(filepath.Ext(rel))
	if len(st.exts) > 0 && !st.exts[ext] {
		return
	}
	if info.Size() > st.maxSize {
		slog.Debug("skipping oversized file", slog.String("path", rel), slog.Int64("size", info.Size()))
		return
	}

	st.seen[rel] = true
	st.result.Files = append(st.result.Files, FileInfo{
		Path:        rel,
		AbsPath:     abs,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Ext:         ext,
		ContentType: DetectContentType(rel),
	})
}

func (st *scan) excluded(rel string, isDir bool) bool {
	if st.exclude.Match(rel, isDir) {
		return true
	}
	return st.opts.RespectGitignore && st.gitignored(rel, isDir)
}

// gitignored checks the .gitignore of the root and of every ancestor directory.
func (st *scan) gitignored(rel string, isDir bool) bool {
	dirs := []string{""}
	parent := path.Dir(rel)
	if parent != "." {
		parts := strings.Split(parent, "/")
		for i := range parts {
			dirs = append(dirs, strings.Join(parts[:i+1], "/"))
		}
	}

	for _, base := range dirs {
		m := st.s.gitignoreFor(filepath.Join(st.absRoot, filepath.FromSlash(base)), base)
		if m != nil && m.Match(rel, isDir) {
			return true
		}
	}
	return false
}

func (s *Scanner) gitignoreFor(dir, base string) *pathmatch.Matcher {
	if m, ok := s.gitignoreCache.Get(dir); ok {
		return m
	}

	var m *pathmatch.Matcher
	file := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(file); err == nil {
		m = pathmatch.New()
		if err := m.AddFile(file, base); err != nil {
			slog.Warn("failed to read gitignore", slog.String("path", file), slog.String("error", err.Error()))
			m = nil
		}
	}

	s.gitignoreCache.Add(dir, m)
	return m
}
