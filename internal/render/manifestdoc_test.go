package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DayDreammy/Sth-Matters-epub/internal/manifest"
)

// mapSources serves source files from memory.
type mapSources map[string]string

func (m mapSources) LoadOrPlaceholder(filePath string) (string, bool) {
	content, ok := m[filePath]
	if !ok {
		return manifest.Placeholder(filePath), false
	}
	return content, true
}

func sampleManifest() *manifest.TopicManifest {
	return &manifest.TopicManifest{
		Metadata: manifest.Metadata{
			Topic:         "Free Will",
			TotalSources:  3,
			GeneratedDate: "2024-03-09",
			Description:   "Notes on agency",
		},
		Sources: []manifest.SourceRecord{
			{ID: 1, Title: "Choice", FilePath: "9b/choice.md", Category: "ethics", KeyConcepts: []string{"agency", "choice"}, ContentPreview: "On choice", WordCount: 10},
			{ID: 2, Title: "Causes", FilePath: "9a/causes.md", Category: "metaphysics", KeyConcepts: []string{"determinism"}, WordCount: 20, ExternalLink: "https://zhuanlan.zhihu.com/p/1"},
			{ID: 3, Title: "", FilePath: "9a/gone.md", Category: "ethics", KeyConcepts: []string{"agency"}, WordCount: 5},
		},
		Relationships: map[string]any{
			"core_concepts":  []any{"agency", "responsibility"},
			"related_topics": []any{map[string]any{"name": "ethics"}},
			"unknown_key":    []any{"ignored"},
		},
	}
}

func sampleSources() mapSources {
	return mapSources{
		"9b/choice.md": "# Choice\nWe choose.",
		"9a/causes.md": "# Causes\nEverything has a cause.",
	}
}

func TestRenderManifest_SourceBasedKeepsManifestOrder(t *testing.T) {
	// Given: a manifest whose order differs from path order
	m := sampleManifest()

	// When: rendering the source_based layout
	out, err := newTestRenderer().RenderManifest(m, sampleSources(), ManifestSourceBased, ManifestOptions{})

	// Then: file paths appear as section headings in manifest order
	require.NoError(t, err)
	var headings []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "## ") {
			headings = append(headings, strings.TrimPrefix(line, "## "))
		}
	}
	assert.Equal(t, []string{"9b/choice.md", "9a/causes.md", "9a/gone.md"}, headings)
	assert.Contains(t, out, "# Choice\nWe choose.")
	assert.Contains(t, out, "Source file not found: 9a/gone.md")
	assert.Contains(t, out, "Original: <https://zhuanlan.zhihu.com/p/1>")
}

func TestRenderManifest_Thematic(t *testing.T) {
	out, err := newTestRenderer().RenderManifest(sampleManifest(), sampleSources(), ManifestThematic,
		ManifestOptions{IncludeSourceContent: true})

	require.NoError(t, err)
	assert.Contains(t, out, "# Free Will: Thematic Overview")
	assert.Contains(t, out, "1. ethics (2)\n2. metaphysics (1)")
	assert.Less(t, strings.Index(out, "## ethics"), strings.Index(out, "## metaphysics"))
	assert.Contains(t, out, "### gone", "untitled sources use the file stem")
	assert.Contains(t, out, "> On choice")
	assert.Contains(t, out, "#### Original Text\n\n# Choice\nWe choose.")
	assert.Contains(t, out, "Source file not found: 9a/gone.md")
}

func TestRenderManifest_ThematicWithoutSourceContent(t *testing.T) {
	out, err := newTestRenderer().RenderManifest(sampleManifest(), sampleSources(), ManifestThematic, ManifestOptions{})

	require.NoError(t, err)
	assert.NotContains(t, out, "Original Text")
	assert.NotContains(t, out, "We choose.")
}

func TestRenderManifest_ThematicTruncatesLongContent(t *testing.T) {
	m := sampleManifest()
	src := sampleSources()
	src["9b/choice.md"] = strings.Repeat("a", 1500)

	out, err := newTestRenderer().RenderManifest(m, src, ManifestThematic, ManifestOptions{IncludeSourceContent: true})

	require.NoError(t, err)
	assert.Contains(t, out, strings.Repeat("a", 1000)+"...")
	assert.NotContains(t, out, strings.Repeat("a", 1001))
}

func TestRenderManifest_Concepts(t *testing.T) {
	out, err := newTestRenderer().RenderManifest(sampleManifest(), sampleSources(), ManifestConcepts, ManifestOptions{})

	require.NoError(t, err)
	assert.Contains(t, out, "## agency (2)")
	assert.Contains(t, out, "## determinism (1)")
	assert.Contains(t, out, "- **Causes** (`9a/causes.md`) [original](https://zhuanlan.zhihu.com/p/1)")
	assert.Less(t, strings.Index(out, "## agency"), strings.Index(out, "## choice"))
}

func TestRenderManifest_Summary(t *testing.T) {
	out, err := newTestRenderer().RenderManifest(sampleManifest(), sampleSources(), ManifestSummary, ManifestOptions{})

	require.NoError(t, err)
	assert.Contains(t, out, "- **Total sources:** 3")
	assert.Contains(t, out, "- **Total words:** 35")
	assert.Contains(t, out, "- **Categories:** 2")
	assert.Contains(t, out, "## Key Concepts\n\n- agency\n- choice\n- determinism\n")
	assert.Contains(t, out, "### Core Concepts\n\n- agency\n- responsibility\n")
	assert.Contains(t, out, "### Related Topics\n\n- name: ethics\n")
	assert.NotContains(t, out, "Practical Applications")
	assert.NotContains(t, out, "ignored")
}

func TestRenderManifest_SummaryWithoutRelationships(t *testing.T) {
	m := sampleManifest()
	m.Relationships = nil

	out, err := newTestRenderer().RenderManifest(m, sampleSources(), ManifestSummary, ManifestOptions{})

	require.NoError(t, err)
	assert.NotContains(t, out, "## Relationships")
}

func TestRenderManifest_HTML(t *testing.T) {
	out, err := newTestRenderer().RenderManifest(sampleManifest(), sampleSources(), ManifestHTML,
		ManifestOptions{IncludeSourceContent: true})

	require.NoError(t, err)
	assert.Contains(t, out, "<title>Free Will</title>")
	assert.Contains(t, out, `<a href="#category-1">ethics</a> (2)`)
	assert.Contains(t, out, "<h1>Choice</h1>")
	assert.Contains(t, out, `<p class="missing">Source file not found: 9a/gone.md</p>`)
	assert.Contains(t, out, `<a href="https://zhuanlan.zhihu.com/p/1">original</a>`)
}

func TestRenderManifest_WithLoader(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "9b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "9b", "choice.md"), []byte("from disk"), 0o644))
	loader := manifest.NewLoader(root)

	out, err := newTestRenderer().RenderManifest(sampleManifest(), loader, ManifestSourceBased, ManifestOptions{})

	require.NoError(t, err)
	assert.Contains(t, out, "from disk")
	assert.Equal(t, []string{"9a/causes.md", "9a/gone.md"}, loader.Missing())
}

func TestRenderManifest_Empty(t *testing.T) {
	m := &manifest.TopicManifest{Metadata: manifest.Metadata{Topic: "Empty"}}

	for _, layout := range ManifestLayouts {
		_, err := newTestRenderer().RenderManifest(m, mapSources{}, layout, ManifestOptions{IncludeSourceContent: true})
		assert.NoError(t, err, string(layout))
	}
}

func TestRenderManifest_UnsupportedLayout(t *testing.T) {
	_, err := newTestRenderer().RenderManifest(sampleManifest(), sampleSources(), ManifestLayout("poster"), ManifestOptions{})

	assert.Error(t, err)
}
