package book

import (
	"archive/zip"
	"embed"
	"fmt"
	"html"
	"io"
	"log/slog"
	"text/template"
	"time"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/fsutil"
	"github.com/DayDreammy/Sth-Matters-epub/internal/manifest"
)

// MimeType is the content of the uncompressed first entry of every EPUB.
const MimeType = "application/epub+zip"

//go:embed templates
var templateFS embed.FS

var templates = template.Must(template.New("book").Funcs(template.FuncMap{
	"esc":      html.EscapeString,
	"modified": func(t time.Time) string { return t.UTC().Format("2006-01-02T15:04:05Z") },
}).ParseFS(templateFS, "templates/*.tmpl"))

type navPoint struct {
	Order int
	Label string
	Href  string
}

type ncxPage struct {
	Book   *Book
	Points []navPoint
}

type chapterPage struct {
	Language string
	Chapter  Chapter
}

// entry is one file of the container.
type entry struct {
	name string
	tmpl string
	data any
}

// Write packages b as an EPUB at outputPath. The archive is built in a
// temporary file beside outputPath and renamed into place; on any failure
// nothing is left at outputPath and a fatal OutputWriteError is returned.
func Write(b *Book, outputPath string) error {
	tmp, err := fsutil.CreateTempBeside(outputPath)
	if err != nil {
		return kberrors.OutputWriteError(outputPath, err)
	}
	if err := writeContainer(tmp, b); err != nil {
		fsutil.Discard(tmp)
		return kberrors.OutputWriteError(outputPath, err)
	}
	if err := fsutil.Commit(tmp, outputPath); err != nil {
		return kberrors.OutputWriteError(outputPath, err)
	}
	return nil
}

// Generate assembles m with sources read from root and writes the EPUB.
// The returned Book lists any sources that were replaced by placeholders.
func Generate(m *manifest.TopicManifest, root, outputPath string, opts Options) (*Book, error) {
	b := Assemble(m, manifest.NewLoader(root), opts)
	if err := Write(b, outputPath); err != nil {
		return nil, err
	}
	slog.Info("epub written",
		slog.String("path", outputPath),
		slog.Int("chapters", len(b.Chapters())),
		slog.Int("missing", len(b.Missing)))
	return b, nil
}

func writeContainer(w io.Writer, b *Book) error {
	zw := zip.NewWriter(w)

	// The mimetype entry must come first and be stored uncompressed.
	mw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     "mimetype",
		Method:   zip.Store,
		Modified: b.Modified,
	})
	if err != nil {
		return fmt.Errorf("failed to add mimetype: %w", err)
	}
	if _, err := io.WriteString(mw, MimeType); err != nil {
		return fmt.Errorf("failed to add mimetype: %w", err)
	}

	for _, e := range entries(b) {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: b.Modified,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", e.name, err)
		}
		if e.tmpl == "" {
			css, err := templateFS.ReadFile("templates/style.css")
			if err != nil {
				return err
			}
			if _, err := fw.Write(css); err != nil {
				return fmt.Errorf("failed to add %s: %w", e.name, err)
			}
			continue
		}
		if err := templates.ExecuteTemplate(fw, e.tmpl, e.data); err != nil {
			return fmt.Errorf("failed to render %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// entries lists the container files after mimetype. An empty tmpl copies
// the stylesheet.
func entries(b *Book) []entry {
	out := []entry{
		{name: "META-INF/container.xml", tmpl: "container.xml.tmpl"},
		{name: "OEBPS/content.opf", tmpl: "content.opf.tmpl", data: b},
		{name: "OEBPS/nav.xhtml", tmpl: "nav.xhtml.tmpl", data: b},
		{name: "OEBPS/toc.ncx", tmpl: "toc.ncx.tmpl", data: ncx(b)},
		{name: "OEBPS/style.css"},
		{name: "OEBPS/cover.xhtml", tmpl: "cover.xhtml.tmpl", data: b},
		{name: "OEBPS/toc.xhtml", tmpl: "toc.xhtml.tmpl", data: b},
	}
	for _, c := range b.Chapters() {
		out = append(out, entry{
			name: "OEBPS/" + c.FileName(),
			tmpl: "chapter.xhtml.tmpl",
			data: chapterPage{Language: b.Language, Chapter: c},
		})
	}
	return out
}

func ncx(b *Book) ncxPage {
	points := []navPoint{
		{Order: 1, Label: "Cover", Href: "cover.xhtml"},
		{Order: 2, Label: "Contents", Href: "toc.xhtml"},
	}
	for _, c := range b.Chapters() {
		points = append(points, navPoint{Order: len(points) + 1, Label: c.Title, Href: c.FileName()})
	}
	return ncxPage{Book: b, Points: points}
}
