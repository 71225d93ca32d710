package search

import (
	"fmt"
	"log/slog"
	"math"
	"path"
	"sort"
	"strings"
	"time"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/fsutil"
	"github.com/DayDreammy/Sth-Matters-epub/internal/index"
)

// Score constants.
const (
	FilenameScore    = 0.90
	TagScore         = 0.80
	ContentBaseScore = 0.60
	ContentLineBonus = 0.10
	ContentMaxBonus  = 0.30

	// PreviewLines is how many matching lines a content preview shows.
	PreviewLines = 3
)

// Engine runs queries. It holds no per-snapshot state and is safe for
// concurrent use.
type Engine struct {
	read func(path string) (string, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithReader replaces the file reader used for content matching.
func WithReader(read func(path string) (string, error)) Option {
	return func(e *Engine) { e.read = read }
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{read: fsutil.ReadText}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ContentScore returns the score of a content match with n matching lines.
func ContentScore(n int) float64 {
	bonus := math.Min(ContentLineBonus*float64(n), ContentMaxBonus)
	return roundScore(ContentBaseScore + bonus)
}

func roundScore(f float64) float64 {
	return math.Round(f*100) / 100
}

// Search evaluates q against every entry of snap. All matches are computed,
// stable-sorted by score, optionally deduplicated, then truncated.
func (e *Engine) Search(snap *index.Snapshot, q Query) ([]Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, kberrors.New(kberrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	mt, err := ParseMatchType(string(q.MatchType))
	if err != nil {
		return nil, err
	}
	if q.MaxResults < 0 {
		return nil, kberrors.QueryValidationError(fmt.Sprintf("max results must not be negative, got %d", q.MaxResults))
	}
	if snap == nil {
		return nil, kberrors.New(kberrors.ErrCodeNoIndex, "no index snapshot to search", nil)
	}

	start := time.Now()
	needle := strings.ToLower(q.Text)

	var results []Result
	for _, entry := range snap.Entries() {
		if !inScope(entry.RelativePath, q.Scopes) {
			continue
		}
		results = append(results, e.matchEntry(snap, entry, needle, mt)...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	if q.Deduplicate {
		results = Deduplicate(results)
	}
	if q.MaxResults > 0 && len(results) > q.MaxResults {
		results = results[:q.MaxResults]
	}

	if q.IncludeFullContent {
		e.attachContent(snap, results)
	}

	slog.Debug("search complete",
		slog.String("query", q.Text),
		slog.String("match_type", string(mt)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

// matchEntry emits filename, tag and content matches for one entry, in that order.
func (e *Engine) matchEntry(snap *index.Snapshot, entry *index.Entry, needle string, mt MatchType) []Result {
	var out []Result

	base := func(t MatchType, score float64) Result {
		return Result{
			FilePath:       entry.RelativePath,
			Title:          entry.Title,
			Category:       entry.Category,
			ContentPreview: entry.Preview,
			RelevanceScore: score,
			MatchType:      t,
			MatchingLines:  []int{},
			WordCount:      entry.WordCount,
		}
	}

	if mt.includes(MatchFilename) && strings.Contains(strings.ToLower(path.Base(entry.RelativePath)), needle) {
		out = append(out, base(MatchFilename, FilenameScore))
	}

	if mt.includes(MatchTag) {
		for _, tag := range entry.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				out = append(out, base(MatchTag, TagScore))
				break
			}
		}
	}

	if mt.includes(MatchContent) {
		content, err := e.read(snap.AbsPath(entry.RelativePath))
		if err != nil {
			slog.Debug("skipping unreadable file in content match",
				slog.String("path", entry.RelativePath),
				slog.String("error", err.Error()))
			return out
		}
		lines, preview := matchLines(content, needle)
		if len(lines) > 0 {
			r := base(MatchContent, ContentScore(len(lines)))
			r.MatchingLines = lines
			r.ContentPreview = preview
			out = append(out, r)
		}
	}

	return out
}

// matchLines returns the 1-based numbers of lines containing needle and a
// preview built from the first PreviewLines of them.
func matchLines(content, needle string) ([]int, string) {
	var nums []int
	var preview []string
	for i, line := range strings.Split(content, "\n") {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		nums = append(nums, i+1)
		if len(preview) < PreviewLines {
			preview = append(preview, fmt.Sprintf("Line %d: %s", i+1, strings.TrimSpace(line)))
		}
	}
	return nums, strings.Join(preview, "\n")
}

// Deduplicate keeps the first, and therefore highest-scoring, result per file
// path of a sorted list.
func Deduplicate(results []Result) []Result {
	seen := make(map[string]bool, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if seen[r.FilePath] {
			continue
		}
		seen[r.FilePath] = true
		out = append(out, r)
	}
	return out
}

func (e *Engine) attachContent(snap *index.Snapshot, results []Result) {
	for i := range results {
		content, err := e.read(snap.AbsPath(results[i].FilePath))
		if err != nil {
			slog.Warn("failed to read full content",
				slog.String("path", results[i].FilePath),
				slog.String("error", err.Error()))
			continue
		}
		results[i].FullContent = content
	}
}

// inScope reports whether relPath lies under any of the scope prefixes.
func inScope(relPath string, scopes []string) bool {
	if len(scopes) == 0 {
		return true
	}
	for _, scope := range scopes {
		scope = strings.Trim(scope, "/")
		if scope == "" || scope == "." || scope == "*" {
			return true
		}
		if relPath == scope || strings.HasPrefix(relPath, scope+"/") {
			return true
		}
	}
	return false
}
