package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a status message
	w.Status("•", "Scanning knowledge base...")

	// Then: output contains icon and message
	assert.Equal(t, "• Scanning knowledge base...\n", buf.String())
}

func TestWriter_Status_NoIconIndents(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Status("", "detail")

	assert.Equal(t, "   detail\n", buf.String())
}

func TestWriter_New_BufferIsPlain(t *testing.T) {
	// Given: a non-terminal writer
	buf := &bytes.Buffer{}

	// When: creating an output writer
	w := New(buf)

	// Then: color is disabled
	assert.False(t, w.UseColor())
	assert.False(t, IsTTY(buf))
	assert.False(t, IsTTY(nil))
}

func TestWriter_Levels(t *testing.T) {
	tests := []struct {
		name  string
		print func(w *Writer)
		want  string
	}{
		{"success", func(w *Writer) { w.Successf("indexed %d files", 3) }, "✓ indexed 3 files\n"},
		{"warning", func(w *Writer) { w.Warningf("%d sources missing", 2) }, "! 2 sources missing\n"},
		{"error", func(w *Writer) { w.Errorf("failed: %s", "boom") }, "✗ failed: boom\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.print(NewWithColor(buf, false))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_KeyValue_Aligns(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, false)

	w.KeyValue("Files", 12)
	w.KeyValue("Total words", 3400)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Index(lines[0], "12"), strings.Index(lines[1], "3400"))
	assert.Contains(t, lines[0], "Files:")
}

func TestWriter_Code_PrintsCodeBlock(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a code block
	w.Code("line one\nline two")

	// Then: each line is indented
	assert.Equal(t, "\n  line one\n  line two\n\n", buf.String())
}

func TestWriter_Markdown_PlainPassesThrough(t *testing.T) {
	// Given: a plain writer
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, false)

	// When: printing markdown without trailing newline
	w.Markdown("# Title\n\nbody")

	// Then: the source is printed verbatim with a newline
	assert.Equal(t, "# Title\n\nbody\n", buf.String())
}

func TestWriter_Markdown_ColorRenders(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, true)

	w.Markdown("# Title\n\nsome **bold** body")

	assert.Contains(t, buf.String(), "Title")
	assert.Contains(t, buf.String(), "bold")
}

func TestWriter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	require.NoError(t, w.JSON(map[string]any{"query": "<a&b>", "total": 2}))

	assert.Equal(t, "{\n  \"query\": \"<a&b>\",\n  \"total\": 2\n}\n", buf.String())
}

func TestNoColorStyles_RenderPlain(t *testing.T) {
	s := NoColorStyles()

	assert.Equal(t, "text", s.Header.Render("text"))
	assert.Equal(t, "text", s.Error.Render("text"))
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}
