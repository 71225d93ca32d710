package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
		want    string
	}{
		{"first h1", "intro\n# Free Will\n# Second", "9a/x.md", "Free Will"},
		{"indented h1", "   #   Spaced Title  ", "x.md", "Spaced Title"},
		{"h2 is not a title", "## Sub\nbody", "notes/topic.md", "topic"},
		{"tag is not a title", "#tag\nbody", "notes/topic.md", "topic"},
		{"empty heading skipped", "# \n# Real", "a.md", "Real"},
		{"no heading uses stem", "plain", "dir/file.name.txt", "file.name"},
		{"chinese title", "# 自由意志\n正文", "a.md", "自由意志"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.content, tt.path))
		})
	}
}

func TestExtractTags(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"simple", "text #go and #rust", []string{"go", "rust"}},
		{"repeats kept in order", "#a #b #a", []string{"a", "b", "a"}},
		{"unicode", "关于 #哲学 的讨论 #自由_意志", []string{"哲学", "自由_意志"}},
		{"heading is not a tag", "# Title\n## Sub", nil},
		{"url fragment ignored", "see https://x.com/page#section", nil},
		{"html entity ignored", "a &#39; b", nil},
		{"word then hash ignored", "C#sharp", nil},
		{"start of line", "#first line", []string{"first"}},
		{"in parens", "(#paren)", []string{"paren"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTags(tt.content))
		})
	}
}

func TestCategory(t *testing.T) {
	assert.Equal(t, RootCategory, Category("a.md"))
	assert.Equal(t, "9a", Category("9a/b.md"))
	assert.Equal(t, "9a/philosophy", Category("9a/philosophy/c.md"))
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"one two  three\nfour", 4},
		{"自由意志", 4},
		{"Go 语言 rocks", 4},
		{"  \t\n ", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CountWords(tt.content), "content %q", tt.content)
	}
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, CountLines(""))
	assert.Equal(t, 1, CountLines("one"))
	assert.Equal(t, 3, CountLines("a\nb\nc"))
	assert.Equal(t, 2, CountLines("a\n"))
}

func TestMakePreview(t *testing.T) {
	assert.Equal(t, "short", MakePreview("short", 200))

	long := strings.Repeat("字", 250)
	preview := MakePreview(long, 200)
	assert.Equal(t, strings.Repeat("字", 200)+"...", preview)

	exact := strings.Repeat("x", 200)
	assert.Equal(t, exact, MakePreview(exact, 200))
}
