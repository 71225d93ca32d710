package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DayDreammy/Sth-Matters-epub/internal/config"
	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/manifest"
	"github.com/DayDreammy/Sth-Matters-epub/internal/render"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func newTestPipeline(t *testing.T, files map[string]string) *Pipeline {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Root = writeTree(t, files)
	cfg.Index.SupportedExtensions = []string{".md"}
	cfg.Output.Dir = filepath.Join(t.TempDir(), "output")

	p, err := New(cfg, WithClock(func() time.Time { return fixedTime }))
	require.NoError(t, err)
	return p
}

var scenario = map[string]string{
	"a.md":    "# Intro\nAI is here\nnothing to see\nAI once more\nhttps://zhuanlan.zhihu.com/p/42",
	"b_AI.md": "body without the term",
	"c.txt":   "AI AI AI",
}

func TestSearch_RequiresIndex(t *testing.T) {
	p := newTestPipeline(t, scenario)

	_, err := p.Search(p.NewQuery("AI"))

	require.Error(t, err)
	assert.Equal(t, kberrors.ErrCodeNoIndex, kberrors.GetCode(err))
}

func TestNewQuery_UsesConfigDefaults(t *testing.T) {
	p := newTestPipeline(t, scenario)
	p.Config().Search.MaxResults = 7
	p.Config().Search.MatchType = "tag"
	p.Config().Search.Deduplicate = true

	q := p.NewQuery("x")

	assert.Equal(t, 7, q.MaxResults)
	assert.Equal(t, "tag", string(q.MatchType))
	assert.True(t, q.Deduplicate)
}

func TestReport_WritesEveryFormat(t *testing.T) {
	// Given: an indexed knowledge base
	p := newTestPipeline(t, scenario)
	_, err := p.Rebuild()
	require.NoError(t, err)

	// When: searching and rendering
	results, gen, err := p.Report(p.NewQuery("AI"))

	// Then: results follow the scoring rules and every artifact exists
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b_AI.md", results[0].FilePath)

	var names []string
	for _, a := range gen.Artifacts {
		assert.FileExists(t, a.Path)
		names = append(names, filepath.Base(a.Path))
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"AI_detailed_doc.md",
		"AI_report_doc.html",
		"AI_report_doc.json",
		"AI_summary_doc.md",
		"AI_thematic_doc.md",
	}, names)

	data, err := os.ReadFile(filepath.Join(p.OutputDir(), "AI_report_doc.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_results": 2`)
}

func TestReport_FullContentCarriesFileBodies(t *testing.T) {
	// Given: an indexed knowledge base with include_full_content enabled
	p := newTestPipeline(t, scenario)
	p.Config().Output.IncludeFullContent = true
	_, err := p.Rebuild()
	require.NoError(t, err)

	// When: searching and rendering
	_, gen, err := p.Report(p.NewQuery("AI"))

	// Then: the full_content document holds every matched file's text
	require.NoError(t, err)
	require.Len(t, gen.Artifacts, 6)
	data, err := os.ReadFile(filepath.Join(p.OutputDir(), "AI_full_content_doc.md"))
	require.NoError(t, err)
	doc := string(data)
	assert.Contains(t, doc, "# Intro\nAI is here\nnothing to see\nAI once more")
	assert.Contains(t, doc, "body without the term")
	assert.NotContains(t, doc, "_Content not available._")
}

func TestRenderResults_SkipsFullContentWithoutBodies(t *testing.T) {
	// Given: results searched without file text
	p := newTestPipeline(t, scenario)
	_, err := p.Rebuild()
	require.NoError(t, err)
	results, err := p.Search(p.NewQuery("AI"))
	require.NoError(t, err)

	// When: rendering them
	gen, err := p.RenderResults("AI", results)

	// Then: no empty full_content document is written
	require.NoError(t, err)
	for _, a := range gen.Artifacts {
		assert.NotEqual(t, string(render.LayoutFullContent), a.Kind)
	}
	assert.NoFileExists(t, filepath.Join(p.OutputDir(), "AI_full_content_doc.md"))
}

func TestRenderResults_WriteFailureAborts(t *testing.T) {
	p := newTestPipeline(t, scenario)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	p.writer = render.NewWriter(blocker)

	_, err := p.RenderResults("AI", nil)

	require.Error(t, err)
	assert.True(t, kberrors.IsFatal(err))
}

func TestQuickSearch(t *testing.T) {
	p := newTestPipeline(t, scenario)
	_, err := p.Rebuild()
	require.NoError(t, err)

	res, err := p.QuickSearch("AI", []render.ManifestLayout{render.ManifestSourceBased, render.ManifestHTML})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.OutputDir(), "AI_quick_search_index.json"), res.ManifestPath)

	saved, err := manifest.Load(res.ManifestPath)
	require.NoError(t, err)
	require.NoError(t, saved.Validate())
	require.Len(t, saved.Sources, 2)
	assert.Equal(t, "b_AI.md", saved.Sources[0].FilePath)
	assert.Equal(t, "a.md", saved.Sources[1].FilePath)
	assert.Equal(t, "https://zhuanlan.zhihu.com/p/42", saved.Sources[1].ExternalLink)
	assert.Equal(t, "2024-03-09", saved.Metadata.GeneratedDate)

	require.NotNil(t, res.Generated)
	require.Len(t, res.Generated.Artifacts, 2)
	assert.Equal(t, "AI_source_based_doc.md", filepath.Base(res.Generated.Artifacts[0].Path))
	assert.Equal(t, "AI_html_doc.html", filepath.Base(res.Generated.Artifacts[1].Path))
	assert.Empty(t, res.Generated.Missing)
}

func TestQuickSearch_QuickCategory(t *testing.T) {
	p := newTestPipeline(t, scenario)
	p.Config().Manifest.QuickCategory = "Quick Search Result"
	_, err := p.Rebuild()
	require.NoError(t, err)

	res, err := p.QuickSearch("AI", nil)

	require.NoError(t, err)
	assert.Nil(t, res.Generated)
	for _, s := range res.Manifest.Sources {
		assert.Equal(t, "Quick Search Result", s.Category)
	}
}

func TestRenderManifest_ReportsMissingSources(t *testing.T) {
	p := newTestPipeline(t, scenario)
	m := &manifest.TopicManifest{
		Metadata: manifest.Metadata{Topic: "Mixed", TotalSources: 2},
		Sources: []manifest.SourceRecord{
			{ID: 1, Title: "A", FilePath: "a.md", Category: "root"},
			{ID: 2, Title: "Gone", FilePath: "gone.md", Category: "root"},
		},
	}

	gen, err := p.RenderManifest(m, render.ManifestLayouts)

	require.NoError(t, err)
	require.Len(t, gen.Artifacts, len(render.ManifestLayouts))
	assert.Equal(t, []string{"gone.md"}, gen.Missing)

	data, err := os.ReadFile(filepath.Join(p.OutputDir(), "Mixed_source_based_doc.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Source file not found: gone.md")
	assert.Less(t, strings.Index(string(data), "## a.md"), strings.Index(string(data), "## gone.md"))
}

func TestGenerateBook(t *testing.T) {
	p := newTestPipeline(t, scenario)
	m := &manifest.TopicManifest{
		Metadata: manifest.Metadata{Topic: "AI Notes", TotalSources: 1},
		Sources:  []manifest.SourceRecord{{ID: 1, Title: "Intro", FilePath: "a.md", Category: "root"}},
	}

	b, artifact, err := p.GenerateBook(m, "")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.OutputDir(), "AI_Notes_20240309_140500.epub"), artifact.Path)
	assert.FileExists(t, artifact.Path)
	assert.Len(t, b.Chapters(), 1)
	assert.Empty(t, b.Missing)
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "metadata": {"topic": "T", "total_sources": 1},
  "sources": [{"id": 5, "title": "x", "file_path": "a.md"}]
}`), 0o644))

	_, err := LoadManifest(path, false)
	require.Error(t, err)
	assert.Equal(t, kberrors.ErrCodeInvalidManifest, kberrors.GetCode(err))

	m, err := LoadManifest(path, true)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Sources[0].ID)
}
