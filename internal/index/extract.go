package index

import (
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RootCategory is the category of files directly under the knowledge-base root.
const RootCategory = "root"

// PreviewRunes is the length of an entry preview.
const PreviewRunes = 200

// tagRe matches #tag tokens. The leading group keeps URL fragments, HTML
// entities and headings out.
var tagRe = regexp.MustCompile(`(^|[^\p{L}\p{N}_&/#])#([\p{L}\p{N}_]+)`)

// ExtractTitle returns the text of the first "# " heading line, or the
// filename stem when there is none.
func ExtractTitle(content, relPath string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") || strings.HasPrefix(line, "##") {
			continue
		}
		rest := line[1:]
		if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
			continue
		}
		if title := strings.TrimSpace(rest); title != "" {
			return title
		}
	}
	base := path.Base(relPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// ExtractTags returns inline #tag tokens in order of appearance. Repeats are kept.
func ExtractTags(content string) []string {
	var tags []string
	for _, line := range strings.Split(content, "\n") {
		for _, m := range tagRe.FindAllStringSubmatch(line, -1) {
			tags = append(tags, m[2])
		}
	}
	return tags
}

// Category returns the parent directory of relPath, or RootCategory.
func Category(relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." || dir == "/" || dir == "" {
		return RootCategory
	}
	return dir
}

// CountWords counts whitespace-separated tokens, with every CJK ideograph
// counting as one word.
func CountWords(content string) int {
	count := 0
	inWord := false
	for _, r := range content {
		switch {
		case unicode.IsSpace(r):
			inWord = false
		case isCJK(r):
			count++
			inWord = false
		default:
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// CountLines returns the number of lines; empty content has zero.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// MakePreview returns the first n runes of content, with "..." appended when
// the content is longer.
func MakePreview(content string, n int) string {
	if utf8.RuneCountInString(content) <= n {
		return content
	}
	i := 0
	for pos := range content {
		if i == n {
			return content[:pos] + "..."
		}
		i++
	}
	return content
}
