package markup

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	codeSpanRe    = regexp.MustCompile("`([^`]+)`")
	linkRe        = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	boldStarRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderRe   = regexp.MustCompile(`__(.+?)__`)
	italicStarRe  = regexp.MustCompile(`\*([^*\s](?:[^*]*[^*\s])?)\*`)
	italicUnderRe = regexp.MustCompile(`_([^_\s](?:[^_]*[^_\s])?)_`)
	placeholderRe = regexp.MustCompile("\x00(\\d+)\x00")
)

// spans protects already-rendered fragments from later rules.
type spans struct {
	parts []string
}

func (s *spans) hold(fragment string) string {
	s.parts = append(s.parts, fragment)
	return "\x00" + strconv.Itoa(len(s.parts)-1) + "\x00"
}

func (s *spans) restore(text string) string {
	for strings.Contains(text, "\x00") {
		next := placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
			i, err := strconv.Atoi(strings.Trim(m, "\x00"))
			if err != nil || i >= len(s.parts) {
				return m
			}
			return s.parts[i]
		})
		if next == text {
			break
		}
		text = next
	}
	return text
}

// inline resolves code spans, links, bold and italic, in that order.
// NUL is reserved for placeholders and dropped from the input.
func inline(text string) string {
	s := &spans{}
	text = strings.ReplaceAll(text, "\x00", "")

	text = codeSpanRe.ReplaceAllStringFunc(text, func(m string) string {
		code := codeSpanRe.FindStringSubmatch(m)[1]
		return s.hold("<code>" + html.EscapeString(code) + "</code>")
	})

	text = html.EscapeString(text)

	text = linkRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := linkRe.FindStringSubmatch(m)
		return s.hold(`<a href="` + sub[2] + `">` + emphasis(sub[1]) + "</a>")
	})

	return s.restore(emphasis(text))
}

// emphasis applies bold before italic so "**" is never read as two italics.
func emphasis(text string) string {
	text = boldStarRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = boldUnderRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicStarRe.ReplaceAllString(text, "<em>$1</em>")
	return underscoreItalic(text)
}

// underscoreItalic applies _x_ only at word boundaries so snake_case_names
// stay intact.
func underscoreItalic(text string) string {
	var sb strings.Builder
	i := 0
	for i < len(text) {
		loc := italicUnderRe.FindStringSubmatchIndex(text[i:])
		if loc == nil {
			break
		}
		start, end := i+loc[0], i+loc[1]
		if wordBefore(text, start) || wordAfter(text, end) {
			sb.WriteString(text[i : start+1])
			i = start + 1
			continue
		}
		sb.WriteString(text[i:start])
		sb.WriteString("<em>" + text[i+loc[2]:i+loc[3]] + "</em>")
		i = end
	}
	sb.WriteString(text[i:])
	return sb.String()
}

func wordBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWord(r)
}

func wordAfter(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWord(r)
}

func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
