// Package manifest reads, validates and writes topic manifests: the ordered
// source lists that drive document rendering and e-book assembly.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/araddon/dateparse"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/fsutil"
)

// DateLayout is the normalized generated date format.
const DateLayout = "2006-01-02"

// Metadata describes a manifest.
type Metadata struct {
	Topic         string `json:"topic"`
	TotalSources  int    `json:"total_sources"`
	GeneratedDate string `json:"generated_date"`
	Description   string `json:"description"`
}

// SourceRecord is one source document.
type SourceRecord struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	FilePath       string   `json:"file_path"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	KeyConcepts    []string `json:"key_concepts"`
	ContentPreview string   `json:"content_preview"`
	WordCount      int      `json:"word_count"`
	ExternalLink   string   `json:"external_link,omitempty"`
}

// TopicManifest is an ordered set of sources on one topic.
type TopicManifest struct {
	Metadata      Metadata       `json:"metadata"`
	Sources       []SourceRecord `json:"sources"`
	Relationships map[string]any `json:"relationships"`
}

// rawManifest accepts the alternate field names older producers write.
type rawManifest struct {
	Metadata struct {
		Topic         string `json:"topic"`
		TotalSources  int    `json:"total_sources"`
		GeneratedDate string `json:"generated_date"`
		SearchDate    string `json:"search_date"`
		Description   string `json:"description"`
	} `json:"metadata"`
	Sources []struct {
		SourceRecord
		ZhihuLink string `json:"zhihu_link"`
	} `json:"sources"`
	Relationships map[string]any `json:"relationships"`
}

// Load reads and parses a manifest file.
func Load(path string) (*TopicManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kberrors.New(kberrors.ErrCodeManifestRead, "failed to read manifest "+path, err).
			WithDetail("path", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	slog.Debug("manifest loaded",
		slog.String("path", path),
		slog.String("topic", m.Metadata.Topic),
		slog.Int("sources", len(m.Sources)))
	return m, nil
}

// Parse decodes manifest JSON. Dates are normalized to YYYY-MM-DD when they
// can be parsed and kept verbatim otherwise.
func Parse(data []byte) (*TopicManifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, kberrors.New(kberrors.ErrCodeInvalidManifest, "manifest is not valid JSON", err)
	}

	m := &TopicManifest{
		Metadata: Metadata{
			Topic:         raw.Metadata.Topic,
			TotalSources:  raw.Metadata.TotalSources,
			GeneratedDate: raw.Metadata.GeneratedDate,
			Description:   raw.Metadata.Description,
		},
		Sources:       make([]SourceRecord, 0, len(raw.Sources)),
		Relationships: raw.Relationships,
	}
	if m.Metadata.GeneratedDate == "" {
		m.Metadata.GeneratedDate = raw.Metadata.SearchDate
	}
	m.Metadata.GeneratedDate = NormalizeDate(m.Metadata.GeneratedDate)

	for _, s := range raw.Sources {
		rec := s.SourceRecord
		if rec.ExternalLink == "" {
			rec.ExternalLink = s.ZhihuLink
		}
		m.Sources = append(m.Sources, rec)
	}
	if m.Relationships == nil {
		m.Relationships = map[string]any{}
	}
	return m, nil
}

// NormalizeDate parses common date spellings and formats them as YYYY-MM-DD.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return s
	}
	return t.Format(DateLayout)
}

// Validate checks that ids form the sequence 1..N, that every source has a
// file path and that total_sources matches.
func (m *TopicManifest) Validate() error {
	var problems []string

	ids := make([]int, 0, len(m.Sources))
	for i, s := range m.Sources {
		ids = append(ids, s.ID)
		if strings.TrimSpace(s.FilePath) == "" {
			problems = append(problems, fmt.Sprintf("source %d has no file_path", i+1))
		}
	}
	sort.Ints(ids)
	for i, id := range ids {
		if id != i+1 {
			problems = append(problems, fmt.Sprintf("source ids are not contiguous 1..%d", len(ids)))
			break
		}
	}
	if m.Metadata.TotalSources != len(m.Sources) {
		problems = append(problems, fmt.Sprintf("total_sources is %d but there are %d sources",
			m.Metadata.TotalSources, len(m.Sources)))
	}

	if len(problems) > 0 {
		return kberrors.New(kberrors.ErrCodeInvalidManifest, strings.Join(problems, "; "), nil).
			WithSuggestion("run with --normalize to renumber sources")
	}
	return nil
}

// Normalize renumbers sources 1..N in their current order and fixes
// total_sources.
func (m *TopicManifest) Normalize() {
	for i := range m.Sources {
		m.Sources[i].ID = i + 1
	}
	m.Metadata.TotalSources = len(m.Sources)
	if m.Relationships == nil {
		m.Relationships = map[string]any{}
	}
}

// Marshal encodes m as indented JSON without HTML escaping.
func Marshal(m *TopicManifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes m to path atomically.
func Save(m *TopicManifest, path string) error {
	data, err := Marshal(m)
	if err != nil {
		return kberrors.InternalError("failed to encode manifest", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return kberrors.OutputWriteError(path, err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[\s/\\:*?"<>|]+`)

// SanitizeTopic makes a topic safe to use in a file name.
func SanitizeTopic(topic string) string {
	s := unsafeChars.ReplaceAllString(strings.TrimSpace(topic), "_")
	s = strings.Trim(s, "_.")
	if s == "" {
		return "untitled"
	}
	return s
}

// QuickFileName is the file name of a query-derived manifest.
func QuickFileName(topic string) string {
	return SanitizeTopic(topic) + "_quick_search_index.json"
}
