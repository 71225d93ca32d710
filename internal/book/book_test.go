package book

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/manifest"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		Now:   func() time.Time { return fixedTime },
		NewID: func() string { return "00000000-0000-4000-8000-000000000001" },
	}
}

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
		Metadata: manifest.Metadata{Topic: "Free Will", TotalSources: 4},
		Sources: []manifest.SourceRecord{
			{ID: 1, Title: "Choice", FilePath: "9b/choice.md", Category: "ethics", WordCount: 10},
			{ID: 2, Title: "Causes", FilePath: "9a/causes.md", Category: "metaphysics", WordCount: 20},
			{ID: 3, Title: "Blame", FilePath: "9b/blame.md", Category: "ethics", WordCount: 5},
			{ID: 4, Title: "Lost", FilePath: "9c/lost.md", Category: "", WordCount: 1},
		},
	}
}

func sampleSources() mapSources {
	return mapSources{
		"9b/choice.md": "# Choice\nWe **choose**.",
		"9a/causes.md": "Everything has a cause.",
		"9b/blame.md":  "- praise\n- blame",
	}
}

func TestAssemble_GroupsByCategoryInFirstSeenOrder(t *testing.T) {
	b := Assemble(sampleManifest(), sampleSources(), testOptions())

	require.Len(t, b.Sections, 3)
	assert.Equal(t, "ethics", b.Sections[0].Category)
	assert.Equal(t, "metaphysics", b.Sections[1].Category)
	assert.Equal(t, "Uncategorized", b.Sections[2].Category)

	var titles, ids []string
	for _, c := range b.Chapters() {
		titles = append(titles, c.Title)
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"Choice", "Blame", "Causes", "Lost"}, titles)
	assert.Equal(t, []string{"chapter_001", "chapter_002", "chapter_003", "chapter_004"}, ids)
}

func TestAssemble_CoverAndMetadata(t *testing.T) {
	b := Assemble(sampleManifest(), sampleSources(), testOptions())

	assert.Equal(t, Cover{Topic: "Free Will", Sources: 4, TotalWords: 36, Categories: 3, Date: "2024-03-09"}, b.Cover)
	assert.Equal(t, "urn:uuid:00000000-0000-4000-8000-000000000001", b.Identifier)
	assert.Equal(t, "zh-CN", b.Language)
	assert.Equal(t, "A collection of 4 sources on Free Will.", b.Description)
}

func TestAssemble_TitleOverride(t *testing.T) {
	opts := testOptions()
	opts.Title = "My Book"

	b := Assemble(sampleManifest(), sampleSources(), opts)

	assert.Equal(t, "My Book", b.Title)
	assert.Equal(t, "My Book", b.Cover.Topic)
}

func TestAssemble_MissingSourceGetsPlaceholderChapter(t *testing.T) {
	// Given: a source whose file does not exist
	b := Assemble(sampleManifest(), sampleSources(), testOptions())

	// Then: the chapter keeps its declared title and carries the placeholder
	chapters := b.Chapters()
	lost := chapters[3]
	assert.Equal(t, "Lost", lost.Title)
	assert.True(t, lost.Missing)
	assert.Equal(t, "<p>Source file not found: 9c/lost.md</p>", lost.Body)
	assert.Equal(t, []string{"9c/lost.md"}, b.Missing)
}

func TestAssemble_ConvertsBodies(t *testing.T) {
	b := Assemble(sampleManifest(), sampleSources(), testOptions())

	chapters := b.Chapters()
	assert.Equal(t, "<h1>Choice</h1>\n<p>We <strong>choose</strong>.</p>", chapters[0].Body)
	assert.Equal(t, "<ul>\n<li>praise</li>\n<li>blame</li>\n</ul>", chapters[1].Body)
}

func TestSpine_MatchesTOCOrder(t *testing.T) {
	b := Assemble(sampleManifest(), sampleSources(), testOptions())

	spine := b.Spine()

	require.Len(t, spine, 7)
	assert.Equal(t, []string{CoverID, NavID, TOCID}, []string{spine[0].ID, spine[1].ID, spine[2].ID})
	var hrefs []string
	for _, item := range spine[3:] {
		hrefs = append(hrefs, item.Href)
	}
	assert.Equal(t, b.TOCLinks(), hrefs)
}

func TestAssemble_EmptyManifest(t *testing.T) {
	m := &manifest.TopicManifest{Metadata: manifest.Metadata{Topic: "Empty"}}

	b := Assemble(m, mapSources{}, testOptions())

	assert.Empty(t, b.Chapters())
	assert.Empty(t, b.TOCLinks())
	assert.Len(t, b.Spine(), 3)
	assert.Zero(t, b.Cover.Categories)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Free_Will_20240309_140500.epub", FileName("Free Will", fixedTime))
}

// readEPUB returns the archive entries in order and their contents.
func readEPUB(t *testing.T, path string) ([]*zip.File, map[string]string) {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	contents := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		contents[f.Name] = string(data)
	}
	return r.File, contents
}

func TestWrite_Container(t *testing.T) {
	out := filepath.Join(t.TempDir(), "books", "free-will.epub")
	b := Assemble(sampleManifest(), sampleSources(), testOptions())

	require.NoError(t, Write(b, out))

	files, contents := readEPUB(t, out)

	// mimetype first and stored
	require.NotEmpty(t, files)
	assert.Equal(t, "mimetype", files[0].Name)
	assert.Equal(t, zip.Store, files[0].Method)
	assert.Equal(t, MimeType, contents["mimetype"])

	for _, name := range []string{
		"META-INF/container.xml", "OEBPS/content.opf", "OEBPS/nav.xhtml", "OEBPS/toc.ncx",
		"OEBPS/style.css", "OEBPS/cover.xhtml", "OEBPS/toc.xhtml",
		"OEBPS/chapter_001.xhtml", "OEBPS/chapter_004.xhtml",
	} {
		assert.Contains(t, contents, name)
	}

	opf := contents["OEBPS/content.opf"]
	assert.Contains(t, opf, `<dc:identifier id="book-id">urn:uuid:00000000-0000-4000-8000-000000000001</dc:identifier>`)
	assert.Contains(t, opf, `<meta property="dcterms:modified">2024-03-09T14:05:00Z</meta>`)
	idrefs := regexp.MustCompile(`<itemref idref="([^"]+)"/>`).FindAllStringSubmatch(opf, -1)
	var spine []string
	for _, m := range idrefs {
		spine = append(spine, m[1])
	}
	assert.Equal(t, []string{"cover", "nav", "toc", "chapter_001", "chapter_002", "chapter_003", "chapter_004"}, spine)

	// TOC links follow the spine
	links := regexp.MustCompile(`href="(chapter_\d+\.xhtml)"`).FindAllStringSubmatch(contents["OEBPS/toc.xhtml"], -1)
	var tocLinks []string
	for _, m := range links {
		tocLinks = append(tocLinks, m[1])
	}
	assert.Equal(t, b.TOCLinks(), tocLinks)

	chapter := contents["OEBPS/chapter_001.xhtml"]
	assert.Contains(t, chapter, "<title>Choice</title>")
	assert.Contains(t, chapter, "<p>We <strong>choose</strong>.</p>")

	cover := contents["OEBPS/cover.xhtml"]
	assert.Contains(t, cover, "<span>Total words</span> <span>36</span>")

	ncx := contents["OEBPS/toc.ncx"]
	assert.Contains(t, ncx, `<navPoint id="navpoint-3" playOrder="3">`)
	assert.Contains(t, ncx, `<content src="chapter_001.xhtml"/>`)
}

func TestWrite_EscapesMetadata(t *testing.T) {
	m := sampleManifest()
	m.Metadata.Topic = "Rock & <Roll>"
	out := filepath.Join(t.TempDir(), "x.epub")

	require.NoError(t, Write(Assemble(m, sampleSources(), testOptions()), out))

	_, contents := readEPUB(t, out)
	assert.Contains(t, contents["OEBPS/content.opf"], "<dc:title>Rock &amp; &lt;Roll&gt;</dc:title>")
}

func TestWrite_EmptyManifestHasNoChapterLinks(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.epub")
	m := &manifest.TopicManifest{Metadata: manifest.Metadata{Topic: "Empty"}}

	require.NoError(t, Write(Assemble(m, mapSources{}, testOptions()), out))

	_, contents := readEPUB(t, out)
	assert.Contains(t, contents, "OEBPS/toc.xhtml")
	assert.NotContains(t, contents["OEBPS/toc.xhtml"], "chapter_")
	for name := range contents {
		assert.False(t, strings.Contains(name, "chapter_"), name)
	}
}

func TestWrite_FailureIsFatalAndLeavesNothing(t *testing.T) {
	// Given: the destination directory is a regular file
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := Write(Assemble(sampleManifest(), sampleSources(), testOptions()), filepath.Join(blocker, "book.epub"))

	require.Error(t, err)
	assert.True(t, kberrors.IsFatal(err))
	assert.Equal(t, kberrors.ErrCodeOutputWrite, kberrors.GetCode(err))
	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1)
}

func TestGenerate_ReadsFromRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "9b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "9b", "choice.md"), []byte("# Choice\nfrom disk"), 0o644))
	out := filepath.Join(t.TempDir(), "book.epub")

	b, err := Generate(sampleManifest(), root, out, testOptions())

	require.NoError(t, err)
	assert.FileExists(t, out)
	assert.Equal(t, []string{"9b/blame.md", "9a/causes.md", "9c/lost.md"}, b.Missing)
	_, contents := readEPUB(t, out)
	assert.Contains(t, contents["OEBPS/chapter_001.xhtml"], "from disk")
}
