package render

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/DayDreammy/Sth-Matters-epub/internal/manifest"
)

// ManifestLayout is a layout for manifest-driven documents.
type ManifestLayout string

const (
	ManifestThematic    ManifestLayout = "thematic"
	ManifestSourceBased ManifestLayout = "source_based"
	ManifestConcepts    ManifestLayout = "concepts"
	ManifestSummary     ManifestLayout = "summary"
	ManifestHTML        ManifestLayout = "html"
)

// ManifestLayouts lists every manifest layout.
var ManifestLayouts = []ManifestLayout{ManifestThematic, ManifestSourceBased, ManifestConcepts, ManifestSummary, ManifestHTML}

// ParseManifestLayout validates a manifest layout name.
func ParseManifestLayout(s string) (ManifestLayout, error) {
	for _, l := range ManifestLayouts {
		if string(l) == s {
			return l, nil
		}
	}
	return "", unsupportedLayout(s)
}

// Format is the document format a layout produces.
func (l ManifestLayout) Format() Format {
	if l == ManifestHTML {
		return FormatHTML
	}
	return FormatMarkdown
}

// ManifestOptions tunes manifest rendering.
type ManifestOptions struct {
	// IncludeSourceContent embeds the original text of each source.
	IncludeSourceContent bool
}

const (
	excerptThreshold = 500
	excerptRunes     = 1000
)

// relationshipSections are rendered in this order when present.
var relationshipSections = []struct {
	key   string
	title string
}{
	{"core_concepts", "Core Concepts"},
	{"related_topics", "Related Topics"},
	{"practical_applications", "Practical Applications"},
	{"critical_viewpoints", "Critical Viewpoints"},
}

// RenderManifest renders m in the given layout. Sources that cannot be read
// are rendered with a placeholder body.
func (r *Renderer) RenderManifest(m *manifest.TopicManifest, src manifest.SourceLoader, layout ManifestLayout, opts ManifestOptions) (string, error) {
	switch layout {
	case ManifestThematic:
		return r.manifestThematic(m, src, opts), nil
	case ManifestSourceBased:
		return r.manifestSourceBased(m, src), nil
	case ManifestConcepts:
		return r.manifestConcepts(m), nil
	case ManifestSummary:
		return r.manifestSummary(m), nil
	case ManifestHTML:
		return r.renderManifestHTML(m, src, opts)
	default:
		return "", unsupportedLayout(string(layout))
	}
}

func (r *Renderer) manifestHeader(sb *strings.Builder, m *manifest.TopicManifest, kind string) {
	fmt.Fprintf(sb, "# %s: %s\n\n", m.Metadata.Topic, kind)
	if m.Metadata.Description != "" {
		sb.WriteString(m.Metadata.Description + "\n\n")
	}
	fmt.Fprintf(sb, "- **Sources:** %d\n", len(m.Sources))
	if m.Metadata.GeneratedDate != "" {
		fmt.Fprintf(sb, "- **Collected:** %s\n", m.Metadata.GeneratedDate)
	}
	fmt.Fprintf(sb, "- **Generated:** %s\n\n", r.timestamp())
}

func (r *Renderer) manifestThematic(m *manifest.TopicManifest, src manifest.SourceLoader, opts ManifestOptions) string {
	var sb strings.Builder
	r.manifestHeader(&sb, m, "Thematic Overview")

	groups := m.GroupByCategory()
	if len(groups) > 0 {
		sb.WriteString("## Contents\n\n")
		for i, g := range groups {
			fmt.Fprintf(&sb, "%d. %s (%d)\n", i+1, g.Name, len(g.Sources))
		}
		sb.WriteString("\n")
	}

	for _, g := range groups {
		fmt.Fprintf(&sb, "## %s\n\n", g.Name)
		for _, s := range g.Sources {
			fmt.Fprintf(&sb, "### %s\n\n", sourceTitle(s))
			writeSourceMeta(&sb, s)
			if s.ContentPreview != "" {
				sb.WriteString(quote(s.ContentPreview) + "\n\n")
			}
			if opts.IncludeSourceContent {
				content, _ := src.LoadOrPlaceholder(s.FilePath)
				if utf8.RuneCountInString(content) > excerptThreshold {
					content = truncateRunes(content, excerptRunes)
				}
				sb.WriteString("#### Original Text\n\n")
				sb.WriteString(strings.TrimRight(content, "\n") + "\n\n")
			}
			sb.WriteString("---\n\n")
		}
	}
	return sb.String()
}

func (r *Renderer) manifestSourceBased(m *manifest.TopicManifest, src manifest.SourceLoader) string {
	var sb strings.Builder
	r.manifestHeader(&sb, m, "Source Collection")

	for _, s := range m.Sources {
		fmt.Fprintf(&sb, "## %s\n\n", s.FilePath)
		fmt.Fprintf(&sb, "**%s**\n\n", sourceTitle(s))
		if s.ExternalLink != "" {
			fmt.Fprintf(&sb, "Original: <%s>\n\n", s.ExternalLink)
		}
		content, _ := src.LoadOrPlaceholder(s.FilePath)
		sb.WriteString(strings.TrimRight(content, "\n") + "\n\n")
		sb.WriteString("---\n\n")
	}
	return sb.String()
}

func (r *Renderer) manifestConcepts(m *manifest.TopicManifest) string {
	var sb strings.Builder
	r.manifestHeader(&sb, m, "Key Concepts")

	groups := m.GroupByConcept()
	if len(groups) == 0 {
		sb.WriteString("No key concepts recorded.\n")
		return sb.String()
	}
	for _, g := range groups {
		fmt.Fprintf(&sb, "## %s (%d)\n\n", g.Concept, len(g.Sources))
		for _, s := range g.Sources {
			fmt.Fprintf(&sb, "- **%s** (`%s`)", sourceTitle(s), s.FilePath)
			if s.ExternalLink != "" {
				fmt.Fprintf(&sb, " [original](%s)", s.ExternalLink)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (r *Renderer) manifestSummary(m *manifest.TopicManifest) string {
	var sb strings.Builder
	r.manifestHeader(&sb, m, "Summary")

	groups := m.GroupByCategory()
	sb.WriteString("## Statistics\n\n")
	fmt.Fprintf(&sb, "- **Total sources:** %d\n", len(m.Sources))
	fmt.Fprintf(&sb, "- **Total words:** %d\n", m.TotalWords())
	fmt.Fprintf(&sb, "- **Categories:** %d\n\n", len(groups))

	if len(groups) > 0 {
		sb.WriteString("## Categories\n\n")
		for _, g := range groups {
			fmt.Fprintf(&sb, "- %s: %d\n", g.Name, len(g.Sources))
		}
		sb.WriteString("\n")
	}

	if concepts := sortedConcepts(m); len(concepts) > 0 {
		sb.WriteString("## Key Concepts\n\n")
		for _, c := range concepts {
			sb.WriteString("- " + c + "\n")
		}
		sb.WriteString("\n")
	}

	wroteHeading := false
	for _, sec := range relationshipSections {
		items := relationItems(m.Relationships[sec.key])
		if len(items) == 0 {
			continue
		}
		if !wroteHeading {
			sb.WriteString("## Relationships\n\n")
			wroteHeading = true
		}
		fmt.Fprintf(&sb, "### %s\n\n", sec.title)
		for _, item := range items {
			sb.WriteString("- " + item + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeSourceMeta(sb *strings.Builder, s manifest.SourceRecord) {
	fmt.Fprintf(sb, "- **File:** `%s`\n", s.FilePath)
	if len(s.Tags) > 0 {
		fmt.Fprintf(sb, "- **Tags:** %s\n", strings.Join(s.Tags, ", "))
	}
	if len(s.KeyConcepts) > 0 {
		fmt.Fprintf(sb, "- **Key concepts:** %s\n", strings.Join(s.KeyConcepts, ", "))
	}
	fmt.Fprintf(sb, "- **Words:** %d\n", s.WordCount)
	if s.ExternalLink != "" {
		fmt.Fprintf(sb, "- **Original:** <%s>\n", s.ExternalLink)
	}
	sb.WriteString("\n")
}

// sourceTitle falls back to the file stem for untitled sources.
func sourceTitle(s manifest.SourceRecord) string {
	if s.Title != "" {
		return s.Title
	}
	base := path.Base(s.FilePath)
	return strings.TrimSuffix(base, path.Ext(base))
}

func sortedConcepts(m *manifest.TopicManifest) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range m.Sources {
		for _, c := range s.KeyConcepts {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out
}

// relationItems flattens a relationships value into display lines.
func relationItems(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []any:
		var out []string
		for _, item := range val {
			out = append(out, relationItems(item)...)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, fmt.Sprintf("%s: %s", k, strings.Join(relationItems(val[k]), "; ")))
		}
		return out
	default:
		return []string{fmt.Sprint(val)}
	}
}
