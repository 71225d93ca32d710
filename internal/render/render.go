// Package render turns search results and topic manifests into Markdown,
// HTML and JSON documents, and saves generated artifacts.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/manifest"
	"github.com/DayDreammy/Sth-Matters-epub/internal/search"
)

// Format is a generated document format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
	FormatEPUB     Format = "epub"
)

var formatExt = map[Format]string{
	FormatMarkdown: ".md",
	FormatHTML:     ".html",
	FormatJSON:     ".json",
	FormatEPUB:     ".epub",
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() (string, error) {
	ext, ok := formatExt[f]
	if !ok {
		return "", kberrors.UnsupportedFormatError("format", string(f))
	}
	return ext, nil
}

// ResultLayout is a Markdown layout for a result set.
type ResultLayout string

const (
	LayoutSummary     ResultLayout = "summary"
	LayoutDetailed    ResultLayout = "detailed"
	LayoutThematic    ResultLayout = "thematic"
	LayoutFullContent ResultLayout = "full_content"
)

// ResultLayouts lists every result layout.
var ResultLayouts = []ResultLayout{LayoutSummary, LayoutDetailed, LayoutThematic, LayoutFullContent}

// ParseResultLayout validates a result layout name.
func ParseResultLayout(s string) (ResultLayout, error) {
	for _, l := range ResultLayouts {
		if string(l) == s {
			return l, nil
		}
	}
	return "", unsupportedLayout(s)
}

func unsupportedLayout(name string) error {
	return kberrors.UnsupportedFormatError("layout", name)
}

const (
	// SummaryLimit caps the summary layout.
	SummaryLimit = 20

	summaryLines  = 5
	thematicLines = 3
	thematicRunes = 150

	timestampLayout = "2006-01-02 15:04:05"
)

// Document is a rendered artifact waiting to be saved.
type Document struct {
	Format  Format
	Name    string
	Payload any
}

// Renderer renders documents. The zero value is not usable; call New.
type Renderer struct {
	now func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the clock used for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) timestamp() string {
	return r.now().Format(timestampLayout)
}

// ArtifactName returns "{topic}_{layout}_doc.{ext}" with the topic made safe
// for file systems. ext may be given with or without the dot.
func ArtifactName(topic, layout, ext string) string {
	return fmt.Sprintf("%s_%s_doc.%s", manifest.SanitizeTopic(topic), layout, strings.TrimPrefix(ext, "."))
}

// sortedCopy returns results stable-sorted by score, leaving the input alone.
func sortedCopy(results []search.Result) []search.Result {
	out := append([]search.Result(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	return out
}

// truncateRunes cuts s to n runes, appending "..." when it was longer.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// formatLines renders up to limit line numbers, then "...".
func formatLines(lines []int, limit int) string {
	parts := make([]string, 0, limit+1)
	for i, n := range lines {
		if i == limit {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprint(n))
	}
	return strings.Join(parts, ", ")
}

// fence wraps content in a code fence longer than any backtick run inside it.
func fence(lang, content string) string {
	longest, run := 0, 0
	for _, c := range content {
		if c == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	marker := strings.Repeat("`", max(3, longest+1))
	return marker + lang + "\n" + content + "\n" + marker
}

// quote prefixes every line of s with "> ".
func quote(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = ">"
			continue
		}
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}
