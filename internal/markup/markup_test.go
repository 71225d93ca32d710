package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTML_PlainProseIsOneParagraph(t *testing.T) {
	inputs := []string{
		"Just one line",
		"The quick brown fox\njumps over the lazy dog.\nAnd keeps going.",
		"第一行\n第二行\n第三行",
		strings.Repeat("words without any markup at all\n", 200),
	}

	for _, in := range inputs {
		out := ToHTML(in)

		assert.Equal(t, 1, strings.Count(out, "<p>"), "input %q", in)
		assert.True(t, strings.HasPrefix(out, "<p>"))
		assert.True(t, strings.HasSuffix(out, "</p>"))
	}
}

func TestToHTML_Blocks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"h1", "# Title", "<h1>Title</h1>"},
		{"h6", "###### Six", "<h6>Six</h6>"},
		{"seven hashes is text", "####### seven", "<p>####### seven</p>"},
		{"tag is not heading", "#tag line", "<p>#tag line</p>"},
		{"heading with inline", "## A **b**", "<h2>A <strong>b</strong></h2>"},
		{"paragraphs split by blank", "one\n\ntwo", "<p>one</p>\n<p>two</p>"},
		{"rule dashes", "---", "<hr />"},
		{"rule stars", "***", "<hr />"},
		{"rule underscores", "___", "<hr />"},
		{"rule spaced", "* * *", "<hr />"},
		{"rule after paragraph", "para\n---", "<p>para</p>\n<hr />"},
		{
			"blockquote run",
			"> one\n> two\n\n> three",
			"<blockquote><p>one\ntwo</p></blockquote>\n<blockquote><p>three</p></blockquote>",
		},
		{
			"blockquote inner paragraphs",
			"> one\n>\n> two",
			"<blockquote><p>one</p><p>two</p></blockquote>",
		},
		{
			"fenced code",
			"```go\nfmt.Println(\"<b>\")\n**not bold**\n```",
			"<pre><code class=\"language-go\">fmt.Println(&#34;&lt;b&gt;&#34;)\n**not bold**</code></pre>",
		},
		{
			"unterminated fence runs to end",
			"```\ncode\nmore",
			"<pre><code>code\nmore</code></pre>",
		},
		{
			"fence between paragraphs",
			"before\n```\nx\n```\nafter",
			"<p>before</p>\n<pre><code>x</code></pre>\n<p>after</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTML(tt.in))
		})
	}
}

func TestToHTML_Lists(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"unordered closed at end of input",
			"* x\n+ y",
			"<ul>\n<li>x</li>\n<li>y</li>\n</ul>",
		},
		{
			"switch from ul to ol then text",
			"- a\n- b\n1. one\n2. two\ntext",
			"<ul>\n<li>a</li>\n<li>b</li>\n</ul>\n<ol>\n<li>one</li>\n<li>two</li>\n</ol>\n<p>text</p>",
		},
		{
			"loose list stays one container",
			"- a\n\n- b",
			"<ul>\n<li>a</li>\n<li>b</li>\n</ul>",
		},
		{
			"paragraph then list",
			"intro\n- a",
			"<p>intro</p>\n<ul>\n<li>a</li>\n</ul>",
		},
		{
			"heading closes list",
			"1. a\n# H",
			"<ol>\n<li>a</li>\n</ol>\n<h1>H</h1>",
		},
		{
			"inline inside items",
			"- **bold** item",
			"<ul>\n<li><strong>bold</strong> item</li>\n</ul>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTML(tt.in))
		})
	}
}

func TestToHTML_Inline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"bold and italic",
			"**bold** and *it* and __b2__ and _i2_",
			"<p><strong>bold</strong> and <em>it</em> and <strong>b2</strong> and <em>i2</em></p>",
		},
		{
			"snake case untouched",
			"use snake_case_name here",
			"<p>use snake_case_name here</p>",
		},
		{
			"lone asterisks untouched",
			"2 * 3 * 4",
			"<p>2 * 3 * 4</p>",
		},
		{
			"link",
			"See [the docs](https://example.com/a?x=1&y=2) now",
			`<p>See <a href="https://example.com/a?x=1&amp;y=2">the docs</a> now</p>`,
		},
		{
			"link href is protected",
			"[x](https://e.com/a_b_c_d)",
			`<p><a href="https://e.com/a_b_c_d">x</a></p>`,
		},
		{
			"emphasis inside link text",
			"[**go**](https://go.dev)",
			`<p><a href="https://go.dev"><strong>go</strong></a></p>`,
		},
		{
			"code spans are not processed",
			"use `a < b` and `**x**`",
			"<p>use <code>a &lt; b</code> and <code>**x**</code></p>",
		},
		{
			"html is escaped",
			"<script>alert(1)</script>",
			"<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTML(tt.in))
		})
	}
}

func TestToHTML_Deterministic(t *testing.T) {
	in := "# T\n\n- a\n- b\n\n> q\n\n```\nc\n```\n\ntext *x*"

	assert.Equal(t, ToHTML(in), ToHTML(in))
}

func TestToHTML_NULInInputKeepsText(t *testing.T) {
	// Given: text that spells out the inline placeholder form
	inputs := map[string]string{
		"a\x000\x00b":        "<p>a0b</p>",
		"`x` \x000\x00 tail": "<p><code>x</code> 0 tail</p>",
		"\x007\x00 **b**":    "<p>7 <strong>b</strong></p>",
	}

	for in, want := range inputs {
		// When: converting it
		out := ToHTML(in)

		// Then: no held span is substituted and no character is lost
		assert.Equal(t, want, out, "input %q", in)
	}
}

func TestSpansRestore_UnknownIndexIsKept(t *testing.T) {
	// Given: one held fragment
	s := &spans{}
	ph := s.hold("<code>x</code>")

	// When: restoring text that also names a fragment that was never held
	out := s.restore(ph + " \x009\x00")

	// Then: the known placeholder is replaced and the unknown one left alone
	assert.Equal(t, "<code>x</code> \x009\x00", out)
}

func TestListTransitions_Complete(t *testing.T) {
	states := []listState{stateNormal, stateInUL, stateInOL}
	events := []listEvent{eventULItem, eventOLItem, eventBlank, eventOther, eventEnd}

	for _, s := range states {
		for _, e := range events {
			_, ok := listTransitions[s][e]
			assert.True(t, ok, "missing transition %s/%d", s, e)
		}
		// End of input always closes an open list
		assert.Equal(t, stateNormal, listTransitions[s][eventEnd].next)
	}
}

func TestListScanner(t *testing.T) {
	var s listScanner

	tr := s.step(eventULItem)
	assert.Equal(t, "ul", tr.open)
	assert.Equal(t, stateInUL, s.state)

	tr = s.step(eventOLItem)
	assert.Equal(t, "ul", tr.close)
	assert.Equal(t, "ol", tr.open)
	assert.Equal(t, "IN_OL", s.state.String())

	tr = s.step(eventEnd)
	assert.Equal(t, "ol", tr.close)
	assert.Equal(t, "NORMAL", s.state.String())
}
