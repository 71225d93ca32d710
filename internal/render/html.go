package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/manifest"
	"github.com/DayDreammy/Sth-Matters-epub/internal/markup"
	"github.com/DayDreammy/Sth-Matters-epub/internal/search"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("render").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.html.tmpl"))

type htmlResult struct {
	search.Result
	Lines string
	Body  template.HTML
}

type resultsPage struct {
	Query     string
	Generated string
	Total     int
	Results   []htmlResult
}

// RenderHTML renders a result set as a single styled page. Previews are
// escaped into <pre> blocks; full content is converted from Markdown.
func (r *Renderer) RenderHTML(results []search.Result, query string) (string, error) {
	sorted := sortedCopy(results)
	page := resultsPage{
		Query:     query,
		Generated: r.timestamp(),
		Total:     len(sorted),
		Results:   make([]htmlResult, 0, len(sorted)),
	}
	for _, res := range sorted {
		hr := htmlResult{Result: res, Lines: formatLines(res.MatchingLines, len(res.MatchingLines))}
		if res.FullContent != "" {
			// markup.ToHTML escapes all source text.
			hr.Body = template.HTML(markup.ToHTML(res.FullContent))
		}
		page.Results = append(page.Results, hr)
	}
	return execute("results", page)
}

type htmlSource struct {
	manifest.SourceRecord
	Body    template.HTML
	Missing bool
}

type htmlGroup struct {
	Name    string
	Anchor  string
	Sources []htmlSource
}

type manifestPage struct {
	Topic        string
	Description  string
	Generated    string
	TotalSources int
	TotalWords   int
	Groups       []htmlGroup
}

func (r *Renderer) renderManifestHTML(m *manifest.TopicManifest, src manifest.SourceLoader, opts ManifestOptions) (string, error) {
	page := manifestPage{
		Topic:        m.Metadata.Topic,
		Description:  m.Metadata.Description,
		Generated:    r.timestamp(),
		TotalSources: len(m.Sources),
		TotalWords:   m.TotalWords(),
	}
	for i, g := range m.GroupByCategory() {
		hg := htmlGroup{Name: g.Name, Anchor: fmt.Sprintf("category-%d", i+1)}
		for _, s := range g.Sources {
			hs := htmlSource{SourceRecord: s}
			if opts.IncludeSourceContent {
				content, ok := src.LoadOrPlaceholder(s.FilePath)
				if ok {
					hs.Body = template.HTML(markup.ToHTML(content))
				} else {
					hs.Missing = true
				}
			}
			hg.Sources = append(hg.Sources, hs)
		}
		page.Groups = append(page.Groups, hg)
	}
	return execute("manifest", page)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", kberrors.New(kberrors.ErrCodeRenderFailed, "failed to render "+name+" page", err)
	}
	return strings.TrimLeft(buf.String(), "\n"), nil
}
