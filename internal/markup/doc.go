// Package markup converts the Markdown subset used by the knowledge base into
// XHTML-compatible HTML.
//
// Conversion runs in two passes. The first pass tokenizes lines into block
// tokens and groups list items with an explicit state machine. The second
// pass resolves inline spans (code, links, bold, italic) inside non-code
// blocks only. Text is always HTML-escaped.
//
// Supported syntax:
//   - ATX headings, h1 to h6
//   - bold (**x**, __x__) and italic (*x*, _x_)
//   - links [text](url)
//   - unordered (-, *, +) and ordered (1.) lists
//   - blockquotes, consecutive lines forming one quote
//   - fenced code blocks with an optional language
//   - inline code
//   - horizontal rules (---, ***, ___)
//   - paragraphs separated by blank lines
package markup
