package render

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
)

func TestWriter_SaveMapsFormatToExtension(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	tests := []struct {
		format Format
		want   string
	}{
		{FormatMarkdown, "doc.md"},
		{FormatHTML, "doc.html"},
		{FormatJSON, "doc.json"},
		{FormatEPUB, "doc.epub"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			path, err := w.Save("content", "doc", tt.format)

			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.want), path)
			assert.FileExists(t, path)
		})
	}
}

func TestWriter_SaveKeepsExistingExtension(t *testing.T) {
	w := NewWriter(t.TempDir())

	path, err := w.Save("x", "AI_summary_doc.md", FormatMarkdown)

	require.NoError(t, err)
	assert.Equal(t, "AI_summary_doc.md", filepath.Base(path))
}

func TestWriter_SaveIndentsJSON(t *testing.T) {
	w := NewWriter(t.TempDir())
	payload := map[string]any{"query": "a<b", "results": []int{1}}

	path, err := w.Save(payload, "report", FormatJSON)

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"query\": \"a<b\",\n  \"results\": [\n    1\n  ]\n}\n", string(data))
}

func TestWriter_SaveReport(t *testing.T) {
	w := NewWriter(t.TempDir())
	report := newTestRenderer().RenderJSON(sampleResults(), "AI")

	path, err := w.SaveDocument(Document{Format: FormatJSON, Name: ArtifactName("AI", "report", "json"), Payload: report})

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"metadata\": {\n    \"query\": \"AI\",")
	assert.Contains(t, string(data), "\"relevance_score\": 0.9")
}

func TestWriter_SaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")

	path, err := NewWriter(dir).Save("x", "doc", FormatMarkdown)

	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestWriter_WriteFailureIsFatal(t *testing.T) {
	// Given: an output "directory" that is a regular file
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewWriter(blocker).Save("x", "doc", FormatMarkdown)

	require.Error(t, err)
	assert.True(t, kberrors.IsFatal(err))
}

func TestWriter_UnsupportedFormat(t *testing.T) {
	_, err := NewWriter(t.TempDir()).Save("x", "doc", Format("pdf"))

	require.Error(t, err)
	assert.Equal(t, kberrors.ErrCodeUnsupportedFormat, kberrors.GetCode(err))
}

func TestWriter_ConcurrentSaves(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	var wg sync.WaitGroup
	errs := make([]error, len(ResultLayouts))
	for i, layout := range ResultLayouts {
		wg.Add(1)
		go func(i int, layout ResultLayout) {
			defer wg.Done()
			_, errs[i] = w.Save(string(layout), ArtifactName("AI", string(layout), "md"), FormatMarkdown)
		}(i, layout)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	for _, layout := range ResultLayouts {
		data, err := os.ReadFile(filepath.Join(dir, ArtifactName("AI", string(layout), "md")))
		require.NoError(t, err)
		assert.Equal(t, string(layout), string(data))
	}
}
