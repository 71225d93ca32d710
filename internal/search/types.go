// Package search answers keyword queries against an index snapshot.
//
// Scoring is fixed per match type: a filename match scores 0.90, a tag match
// 0.80 and a content match 0.60 plus 0.10 per matching line, capped at 0.90.
// A file may appear once per match type it satisfies unless the query asks
// for deduplication.
package search

import (
	"strings"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
)

// MatchType is the dimension a query matched on.
type MatchType string

const (
	MatchFilename MatchType = "filename"
	MatchTag      MatchType = "tag"
	MatchContent  MatchType = "content"
	MatchAll      MatchType = "all"
)

// MatchTypes lists the concrete match types in rendering order.
var MatchTypes = []MatchType{MatchFilename, MatchTag, MatchContent}

// ParseMatchType validates a match type name. Empty means all.
func ParseMatchType(s string) (MatchType, error) {
	switch mt := MatchType(strings.ToLower(strings.TrimSpace(s))); mt {
	case "":
		return MatchAll, nil
	case MatchFilename, MatchTag, MatchContent, MatchAll:
		return mt, nil
	default:
		return "", kberrors.QueryValidationError("unknown match type " + `"` + s + `"`).
			WithSuggestion("use one of: filename, tag, content, all")
	}
}

func (m MatchType) includes(t MatchType) bool {
	return m == MatchAll || m == t
}

// Query describes one search.
type Query struct {
	// Text is matched as a case-insensitive substring.
	Text string

	// MatchType restricts matching; empty means all.
	MatchType MatchType

	// MaxResults truncates the sorted list; 0 means unlimited.
	MaxResults int

	// Deduplicate keeps only the highest-scoring result per file.
	Deduplicate bool

	// IncludeFullContent attaches each returned file's text.
	IncludeFullContent bool

	// Scopes restricts results to files under these path prefixes.
	// Multiple scopes use OR logic; empty means the whole snapshot.
	Scopes []string
}

// Result is one ranked match.
type Result struct {
	FilePath       string    `json:"file_path"`
	Title          string    `json:"title"`
	Category       string    `json:"category"`
	ContentPreview string    `json:"content_preview"`
	RelevanceScore float64   `json:"relevance_score"`
	MatchType      MatchType `json:"match_type"`
	MatchingLines  []int     `json:"matching_lines"`
	WordCount      int       `json:"word_count"`
	FullContent    string    `json:"full_content,omitempty"`
}
