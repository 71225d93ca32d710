package markup

import (
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokBlank tokenKind = iota
	tokHeading
	tokULItem
	tokOLItem
	tokQuote
	tokFence
	tokRule
	tokText
)

// token is one block-level unit. A fence token carries all of its lines.
type token struct {
	kind  tokenKind
	level int    // heading level
	text  string // heading, item, quote or text content
	lang  string // fence info string
	lines []string
}

var (
	headingRe = regexp.MustCompile(`^(#{1,6})[ \t]+(.*?)[ \t]*$`)
	ruleRe    = regexp.MustCompile(`^(?:-[ \t]*){3,}$|^(?:\*[ \t]*){3,}$|^(?:_[ \t]*){3,}$`)
	ulRe      = regexp.MustCompile(`^[ \t]*[-*+][ \t]+(.*)$`)
	olRe      = regexp.MustCompile(`^[ \t]*\d+\.[ \t]+(.*)$`)
	quoteRe   = regexp.MustCompile(`^[ \t]*>[ \t]?(.*)$`)
)

const fenceMarker = "```"

// tokenize splits text into block tokens. An unterminated fence runs to the
// end of the input.
func tokenize(text string) []token {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var tokens []token
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, fenceMarker) {
			fence := token{kind: tokFence, lang: strings.TrimSpace(strings.TrimLeft(trimmed, "`"))}
			for i++; i < len(lines); i++ {
				if strings.HasPrefix(strings.TrimSpace(lines[i]), fenceMarker) {
					break
				}
				fence.lines = append(fence.lines, lines[i])
			}
			tokens = append(tokens, fence)
			continue
		}

		tokens = append(tokens, classify(line, trimmed))
	}
	return tokens
}

func classify(line, trimmed string) token {
	if trimmed == "" {
		return token{kind: tokBlank}
	}
	if m := headingRe.FindStringSubmatch(trimmed); m != nil {
		return token{kind: tokHeading, level: len(m[1]), text: m[2]}
	}
	// Rules are checked before bullets so "---" and "* * *" are not list items.
	if ruleRe.MatchString(trimmed) {
		return token{kind: tokRule}
	}
	if m := ulRe.FindStringSubmatch(line); m != nil {
		return token{kind: tokULItem, text: m[1]}
	}
	if m := olRe.FindStringSubmatch(line); m != nil {
		return token{kind: tokOLItem, text: m[1]}
	}
	if m := quoteRe.FindStringSubmatch(line); m != nil {
		return token{kind: tokQuote, text: m[1]}
	}
	return token{kind: tokText, text: trimmed}
}
