package markup

import (
	"fmt"
	"html"
	"strings"
)

// ToHTML converts Markdown text to HTML. It is deterministic and has no side
// effects. Plain prose with no supported syntax becomes exactly one paragraph.
func ToHTML(text string) string {
	b := &builder{}
	for _, t := range tokenize(text) {
		b.add(t)
	}
	b.finish()
	return strings.Join(b.out, "\n")
}

// builder assembles block tokens into HTML blocks.
type builder struct {
	out   []string
	lists listScanner
	para  []string
	quote [][]string // paragraphs of the open blockquote
}

func (b *builder) add(t token) {
	tr := b.lists.step(eventFor(t))

	if t.kind != tokText {
		b.flushParagraph()
	}
	if t.kind != tokQuote {
		b.flushQuote()
	}
	b.applyTransition(tr)

	switch t.kind {
	case tokBlank:
	case tokHeading:
		b.emit(fmt.Sprintf("<h%d>%s</h%d>", t.level, inline(t.text), t.level))
	case tokULItem, tokOLItem:
		b.emit("<li>" + inline(t.text) + "</li>")
	case tokQuote:
		b.addQuoteLine(t.text)
	case tokFence:
		b.emit(codeBlock(t.lang, t.lines))
	case tokRule:
		b.emit("<hr />")
	case tokText:
		b.para = append(b.para, t.text)
	}
}

func (b *builder) finish() {
	b.flushParagraph()
	b.flushQuote()
	b.applyTransition(b.lists.step(eventEnd))
}

func (b *builder) applyTransition(tr transition) {
	if tr.close != "" {
		b.emit("</" + tr.close + ">")
	}
	if tr.open != "" {
		b.emit("<" + tr.open + ">")
	}
}

func (b *builder) emit(s string) {
	b.out = append(b.out, s)
}

func (b *builder) flushParagraph() {
	if len(b.para) == 0 {
		return
	}
	b.emit("<p>" + inline(strings.Join(b.para, "\n")) + "</p>")
	b.para = nil
}

// addQuoteLine appends to the open blockquote. An empty quote line starts a
// new paragraph inside the same quote.
func (b *builder) addQuoteLine(text string) {
	text = strings.TrimSpace(text)
	if len(b.quote) == 0 {
		b.quote = [][]string{nil}
	}
	if text == "" {
		if len(b.quote[len(b.quote)-1]) > 0 {
			b.quote = append(b.quote, nil)
		}
		return
	}
	last := len(b.quote) - 1
	b.quote[last] = append(b.quote[last], text)
}

func (b *builder) flushQuote() {
	if b.quote == nil {
		return
	}
	var sb strings.Builder
	sb.WriteString("<blockquote>")
	for _, p := range b.quote {
		if len(p) == 0 {
			continue
		}
		sb.WriteString("<p>" + inline(strings.Join(p, "\n")) + "</p>")
	}
	sb.WriteString("</blockquote>")
	b.emit(sb.String())
	b.quote = nil
}

func codeBlock(lang string, lines []string) string {
	class := ""
	if lang != "" {
		class = ` class="language-` + html.EscapeString(lang) + `"`
	}
	return "<pre><code" + class + ">" + html.EscapeString(strings.Join(lines, "\n")) + "</code></pre>"
}
