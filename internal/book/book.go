// Package book assembles topic manifests into EPUB e-books.
//
// Assembly is split in two steps. Assemble builds an in-memory Book: chapters
// in category order, a cover and a table of contents whose links follow the
// same order as the spine. Write packages a Book into an EPUB 3 container with
// an EPUB 2 NCX for older readers.
package book

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DayDreammy/Sth-Matters-epub/internal/manifest"
	"github.com/DayDreammy/Sth-Matters-epub/internal/markup"
)

// Fixed spine entries that precede the chapters.
const (
	CoverID = "cover"
	NavID   = "nav"
	TOCID   = "toc"
)

// Chapter is one source rendered as an XHTML document.
type Chapter struct {
	ID         string
	Title      string
	Category   string
	SourcePath string
	// Body is the converted XHTML body fragment.
	Body    string
	Missing bool
}

// FileName is the chapter's path inside the OEBPS directory.
func (c Chapter) FileName() string {
	return c.ID + ".xhtml"
}

// Section is one category heading of the table of contents.
type Section struct {
	Category string
	Chapters []Chapter
}

// Cover summarizes the book on its first page.
type Cover struct {
	Topic      string
	Sources    int
	TotalWords int
	Categories int
	Date       string
}

// Book is an assembled e-book ready to be written.
type Book struct {
	Identifier  string
	Title       string
	Language    string
	Author      string
	Publisher   string
	Description string
	Modified    time.Time

	Cover    Cover
	Sections []Section
	// Missing lists source paths that were replaced by a placeholder.
	Missing []string
}

// SpineItem is one entry of the reading order.
type SpineItem struct {
	ID   string
	Href string
}

// Options configures assembly.
type Options struct {
	// Title overrides the manifest topic as the book title.
	Title     string
	Language  string
	Author    string
	Publisher string
	// Now and NewID default to time.Now and a random UUID.
	Now   func() time.Time
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.Language == "" {
		o.Language = "zh-CN"
	}
	if o.Author == "" {
		o.Author = "sthmatters"
	}
	if o.Publisher == "" {
		o.Publisher = o.Author
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.NewString() }
	}
	return o
}

// Assemble builds a Book from m, loading sources through src.
// Sources that cannot be loaded become chapters with a placeholder body.
func Assemble(m *manifest.TopicManifest, src manifest.SourceLoader, opts Options) *Book {
	opts = opts.withDefaults()
	now := opts.Now()

	topic := m.Metadata.Topic
	if opts.Title != "" {
		topic = opts.Title
	}

	b := &Book{
		Identifier:  "urn:uuid:" + opts.NewID(),
		Title:       topic,
		Language:    opts.Language,
		Author:      opts.Author,
		Publisher:   opts.Publisher,
		Description: description(m, topic),
		Modified:    now.UTC(),
	}

	n := 0
	for _, g := range m.GroupByCategory() {
		sec := Section{Category: g.Name}
		for _, s := range g.Sources {
			n++
			content, ok := src.LoadOrPlaceholder(s.FilePath)
			if !ok {
				b.Missing = append(b.Missing, s.FilePath)
			}
			sec.Chapters = append(sec.Chapters, Chapter{
				ID:         fmt.Sprintf("chapter_%03d", n),
				Title:      chapterTitle(s),
				Category:   g.Name,
				SourcePath: s.FilePath,
				Body:       markup.ToHTML(content),
				Missing:    !ok,
			})
		}
		b.Sections = append(b.Sections, sec)
	}

	b.Cover = Cover{
		Topic:      topic,
		Sources:    len(m.Sources),
		TotalWords: m.TotalWords(),
		Categories: len(b.Sections),
		Date:       now.Format(manifest.DateLayout),
	}
	return b
}

// Chapters returns every chapter in reading order.
func (b *Book) Chapters() []Chapter {
	var out []Chapter
	for _, sec := range b.Sections {
		out = append(out, sec.Chapters...)
	}
	return out
}

// TOCLinks returns the chapter hrefs of the table of contents in link order.
func (b *Book) TOCLinks() []string {
	var links []string
	for _, c := range b.Chapters() {
		links = append(links, c.FileName())
	}
	return links
}

// Spine returns the reading order: cover, nav, toc, then every chapter.
func (b *Book) Spine() []SpineItem {
	spine := []SpineItem{
		{ID: CoverID, Href: "cover.xhtml"},
		{ID: NavID, Href: "nav.xhtml"},
		{ID: TOCID, Href: "toc.xhtml"},
	}
	for _, c := range b.Chapters() {
		spine = append(spine, SpineItem{ID: c.ID, Href: c.FileName()})
	}
	return spine
}

// FileName returns "{title}_{timestamp}.epub" for a book generated at t.
func FileName(title string, t time.Time) string {
	return fmt.Sprintf("%s_%s.epub", manifest.SanitizeTopic(title), t.Format("20060102_150405"))
}

func chapterTitle(s manifest.SourceRecord) string {
	if s.Title != "" {
		return s.Title
	}
	base := path.Base(s.FilePath)
	return strings.TrimSuffix(base, path.Ext(base))
}

func description(m *manifest.TopicManifest, topic string) string {
	if m.Metadata.Description != "" {
		return m.Metadata.Description
	}
	return fmt.Sprintf("A collection of %d sources on %s.", len(m.Sources), topic)
}
