// Package pipeline wires the index, search engine, renderers and book
// assembler into the operations the CLI exposes.
package pipeline

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DayDreammy/Sth-Matters-epub/internal/book"
	"github.com/DayDreammy/Sth-Matters-epub/internal/config"
	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/fsutil"
	"github.com/DayDreammy/Sth-Matters-epub/internal/index"
	"github.com/DayDreammy/Sth-Matters-epub/internal/manifest"
	"github.com/DayDreammy/Sth-Matters-epub/internal/render"
	"github.com/DayDreammy/Sth-Matters-epub/internal/search"
)

// Artifact is one generated file.
type Artifact struct {
	// Kind is the layout or format that produced the file.
	Kind   string        `json:"kind"`
	Format render.Format `json:"format"`
	Path   string        `json:"path"`
}

// Generated is the outcome of a multi-artifact render.
type Generated struct {
	Artifacts []Artifact `json:"artifacts"`
	// Missing lists manifest sources rendered with a placeholder.
	Missing []string `json:"missing,omitempty"`
}

// Pipeline owns the configuration, the index service and the writers.
// It is safe for concurrent use once constructed.
type Pipeline struct {
	cfg      *config.Config
	index    *index.Service
	engine   *search.Engine
	renderer *render.Renderer
	writer   *render.Writer
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used for timestamps and file names.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline for cfg. No index is built until Rebuild.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	svc, err := index.NewService(cfg)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		index:  svc,
		engine: search.NewEngine(),
		writer: render.NewWriter(cfg.OutputDir()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.renderer = render.New(render.WithClock(p.now))
	return p, nil
}

// Config returns the active configuration.
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// Index returns the snapshot service.
func (p *Pipeline) Index() *index.Service {
	return p.index
}

// OutputDir returns the directory artifacts are written to.
func (p *Pipeline) OutputDir() string {
	return p.writer.Dir()
}

// Rebuild builds and publishes a new snapshot.
func (p *Pipeline) Rebuild() (*index.Snapshot, error) {
	start := p.now()
	snap, err := p.index.Rebuild()
	if err != nil {
		return nil, err
	}
	meta := snap.Metadata()
	slog.Info("index rebuilt",
		slog.Uint64("version", meta.Version),
		slog.Int("files", meta.TotalFiles),
		slog.Int("skipped", meta.SkippedFiles),
		slog.Duration("duration", p.now().Sub(start)))
	return snap, nil
}

// NewQuery returns a query for text populated from the search defaults.
func (p *Pipeline) NewQuery(text string) search.Query {
	mt, err := search.ParseMatchType(p.cfg.Search.MatchType)
	if err != nil {
		mt = search.MatchAll
	}
	return search.Query{
		Text:               text,
		MatchType:          mt,
		MaxResults:         p.cfg.Search.MaxResults,
		Deduplicate:        p.cfg.Search.Deduplicate,
		IncludeFullContent: p.cfg.Output.IncludeFullContent,
	}
}

// Search runs q against the published snapshot.
func (p *Pipeline) Search(q search.Query) ([]search.Result, error) {
	snap, err := p.index.Require()
	if err != nil {
		return nil, err
	}
	return p.engine.Search(snap, q)
}

// RenderResults writes the result layouts plus the HTML page and the JSON
// report for a result set. The full_content layout is only written when the
// results carry file text. Files are rendered in parallel; the first failure
// aborts the call.
func (p *Pipeline) RenderResults(query string, results []search.Result) (*Generated, error) {
	type job struct {
		kind   string
		format render.Format
		render func() (any, error)
	}

	withContent := hasFullContent(results)
	var jobs []job
	for _, layout := range render.ResultLayouts {
		if layout == render.LayoutFullContent && !withContent {
			continue
		}
		jobs = append(jobs, job{string(layout), render.FormatMarkdown, func() (any, error) {
			return p.renderer.RenderMarkdown(results, query, layout)
		}})
	}
	jobs = append(jobs,
		job{"report", render.FormatHTML, func() (any, error) {
			return p.renderer.RenderHTML(results, query)
		}},
		job{"report", render.FormatJSON, func() (any, error) {
			return p.renderer.RenderJSON(results, query), nil
		}},
	)

	artifacts := make([]Artifact, len(jobs))
	var g errgroup.Group
	for i, j := range jobs {
		g.Go(func() error {
			content, err := j.render()
			if err != nil {
				return err
			}
			ext, err := j.format.Ext()
			if err != nil {
				return err
			}
			path, err := p.writer.Save(content, render.ArtifactName(query, j.kind, ext), j.format)
			if err != nil {
				return err
			}
			artifacts[i] = Artifact{Kind: j.kind, Format: j.format, Path: path}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("results rendered", slog.String("query", query), slog.Int("artifacts", len(artifacts)))
	return &Generated{Artifacts: artifacts}, nil
}

func hasFullContent(results []search.Result) bool {
	for _, r := range results {
		if r.FullContent != "" {
			return true
		}
	}
	return false
}

// Report searches for q and renders the result set.
func (p *Pipeline) Report(q search.Query) ([]search.Result, *Generated, error) {
	results, err := p.Search(q)
	if err != nil {
		return nil, nil, err
	}
	gen, err := p.RenderResults(q.Text, results)
	if err != nil {
		return nil, nil, err
	}
	return results, gen, nil
}

// QuickResult is the outcome of QuickSearch.
type QuickResult struct {
	Manifest     *manifest.TopicManifest `json:"manifest"`
	ManifestPath string                  `json:"manifest_path"`
	Generated    *Generated              `json:"generated,omitempty"`
}

// QuickSearch searches for topic, saves the derived manifest and renders it
// in the given layouts. No layouts means the manifest only.
func (p *Pipeline) QuickSearch(topic string, layouts []render.ManifestLayout) (*QuickResult, error) {
	snap, err := p.index.Require()
	if err != nil {
		return nil, err
	}
	q := p.NewQuery(topic)
	q.IncludeFullContent = false
	results, err := p.engine.Search(snap, q)
	if err != nil {
		return nil, err
	}

	opts := manifest.QuickOptions{
		Category: p.cfg.Manifest.QuickCategory,
		Now:      p.now,
	}
	if p.cfg.Manifest.LinkPattern != "" {
		re, err := regexp.Compile(p.cfg.Manifest.LinkPattern)
		if err != nil {
			return nil, kberrors.ConfigError("invalid manifest.link_pattern", err)
		}
		opts.LinkPattern = re
	}
	m := manifest.FromResults(topic, results, snap, opts)

	data, err := manifest.Marshal(m)
	if err != nil {
		return nil, kberrors.InternalError("failed to encode manifest", err)
	}
	path, err := p.writer.Save(data, manifest.QuickFileName(topic), render.FormatJSON)
	if err != nil {
		return nil, err
	}

	out := &QuickResult{Manifest: m, ManifestPath: path}
	if len(layouts) > 0 {
		if out.Generated, err = p.RenderManifest(m, layouts); err != nil {
			return nil, err
		}
	}
	slog.Info("quick search saved",
		slog.String("topic", topic),
		slog.Int("sources", len(m.Sources)),
		slog.String("path", path))
	return out, nil
}

// RenderManifest renders m in each layout in parallel. Missing sources are
// rendered with a placeholder and reported in Generated.Missing.
func (p *Pipeline) RenderManifest(m *manifest.TopicManifest, layouts []render.ManifestLayout) (*Generated, error) {
	loader := manifest.NewLoader(p.cfg.Root)
	opts := render.ManifestOptions{IncludeSourceContent: p.cfg.IncludeSourceContent()}

	artifacts := make([]Artifact, len(layouts))
	var g errgroup.Group
	for i, layout := range layouts {
		g.Go(func() error {
			content, err := p.renderer.RenderManifest(m, loader, layout, opts)
			if err != nil {
				return err
			}
			format := layout.Format()
			ext, err := format.Ext()
			if err != nil {
				return err
			}
			path, err := p.writer.Save(content, render.ArtifactName(m.Metadata.Topic, string(layout), ext), format)
			if err != nil {
				return err
			}
			artifacts[i] = Artifact{Kind: string(layout), Format: format, Path: path}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Generated{Artifacts: artifacts, Missing: loader.Missing()}, nil
}

// GenerateBook writes m as an EPUB named after title (or the manifest topic)
// and the current time.
func (p *Pipeline) GenerateBook(m *manifest.TopicManifest, title string) (*book.Book, Artifact, error) {
	name := title
	if name == "" {
		name = m.Metadata.Topic
	}
	dir := p.writer.Dir()
	path := filepath.Join(dir, book.FileName(name, p.now()))

	lock := fsutil.NewDirLock(dir)
	if err := lock.Lock(render.DefaultLockTimeout); err != nil {
		return nil, Artifact{}, kberrors.New(kberrors.ErrCodeOutputLocked, "output directory is locked", err).
			WithDetail("dir", dir)
	}
	defer func() { _ = lock.Unlock() }()

	b, err := book.Generate(m, p.cfg.Root, path, book.Options{
		Title:     title,
		Language:  p.cfg.Book.Language,
		Author:    p.cfg.Book.Author,
		Publisher: p.cfg.Book.Publisher,
		Now:       p.now,
	})
	if err != nil {
		return nil, Artifact{}, err
	}
	return b, Artifact{Kind: "book", Format: render.FormatEPUB, Path: path}, nil
}

// LoadManifest reads a manifest file, optionally renumbering it, and
// validates it.
func LoadManifest(path string, normalize bool) (*manifest.TopicManifest, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	if normalize {
		m.Normalize()
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
