package manifest

import (
	"fmt"
	"regexp"
	"time"

	"github.com/DayDreammy/Sth-Matters-epub/internal/fsutil"
	"github.com/DayDreammy/Sth-Matters-epub/internal/index"
	"github.com/DayDreammy/Sth-Matters-epub/internal/search"
)

// QuickOptions configures FromResults.
type QuickOptions struct {
	// Category replaces each source's index category when set.
	Category string

	// LinkPattern finds the external link of a source; the first match wins.
	LinkPattern *regexp.Regexp

	// Now is the manifest clock.
	Now func() time.Time

	// Read loads source text for link extraction. Defaults to fsutil.ReadText.
	Read func(path string) (string, error)
}

// FromResults derives a manifest from query results: one source per distinct
// file in result order.
func FromResults(topic string, results []search.Result, snap *index.Snapshot, opts QuickOptions) *TopicManifest {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	read := opts.Read
	if read == nil {
		read = fsutil.ReadText
	}

	m := &TopicManifest{
		Metadata: Metadata{
			Topic:         topic,
			GeneratedDate: now().Format(DateLayout),
			Description:   fmt.Sprintf("Quick search results for '%s'", topic),
		},
		Sources:       []SourceRecord{},
		Relationships: map[string]any{},
	}

	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if seen[r.FilePath] {
			continue
		}
		seen[r.FilePath] = true

		rec := SourceRecord{
			ID:             len(m.Sources) + 1,
			Title:          r.Title,
			FilePath:       r.FilePath,
			Category:       r.Category,
			Tags:           []string{topic},
			KeyConcepts:    []string{topic},
			ContentPreview: r.ContentPreview,
			WordCount:      r.WordCount,
		}
		if snap != nil {
			if e, ok := snap.Entry(r.FilePath); ok {
				rec.ContentPreview = e.Preview
				rec.Category = e.Category
			}
		}
		if opts.Category != "" {
			rec.Category = opts.Category
		}
		if opts.LinkPattern != nil && snap != nil {
			if content, err := read(snap.AbsPath(r.FilePath)); err == nil {
				rec.ExternalLink = opts.LinkPattern.FindString(content)
			}
		}
		m.Sources = append(m.Sources, rec)
	}

	m.Metadata.TotalSources = len(m.Sources)
	return m
}
