package cmd

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
	"github.com/DayDreammy/Sth-Matters-epub/internal/pipeline"
	"github.com/DayDreammy/Sth-Matters-epub/internal/render"
	"github.com/DayDreammy/Sth-Matters-epub/internal/search"
)

// previewWidth bounds the one-line preview in text output.
const previewWidth = 80

// queryOptions holds the flags that shape a query.
type queryOptions struct {
	matchType   string
	limit       int
	dedupe      bool
	fullContent bool
	scopes      []string
}

func (o *queryOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.matchType, "type", "t", "", "Match type: all, filename, tag, content (default from config)")
	cmd.Flags().IntVarP(&o.limit, "limit", "n", 0, "Maximum number of results, 0 for unlimited (default from config)")
	cmd.Flags().BoolVar(&o.dedupe, "dedupe", false, "Keep only the best match per file")
	cmd.Flags().BoolVar(&o.fullContent, "full-content", false, "Attach each file's full text")
	cmd.Flags().StringSliceVarP(&o.scopes, "scope", "s", nil, "Restrict results to a path prefix (repeatable)")
}

// query builds a query for text from the configured defaults and the flags
// that were set.
func (o *queryOptions) query(cmd *cobra.Command, p *pipeline.Pipeline, text string) (search.Query, error) {
	q := p.NewQuery(text)
	if cmd.Flags().Changed("type") {
		mt, err := search.ParseMatchType(o.matchType)
		if err != nil {
			return search.Query{}, err
		}
		q.MatchType = mt
	}
	if cmd.Flags().Changed("limit") {
		if o.limit < 0 {
			return search.Query{}, kberrors.QueryValidationError(fmt.Sprintf("--limit must be non-negative, got %d", o.limit))
		}
		q.MaxResults = o.limit
	}
	if o.dedupe {
		q.Deduplicate = true
	}
	if o.fullContent {
		q.IncludeFullContent = true
	}
	q.Scopes = o.scopes
	return q, nil
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var (
		qopts  queryOptions
		format string
		layout string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Long: heredoc.Doc(`
			Search file names, #tags and content for a case-insensitive
			substring. Results are ranked by relevance: filename matches score
			0.90, tag matches 0.80 and content matches 0.60 plus 0.10 per
			matching line, capped at 0.90.

			Nothing is written to disk; use 'report' to save documents.
		`),
		Example: heredoc.Doc(`
			sthmatters search "free will"
			sthmatters search choice --type content --limit 10
			sthmatters search choice --format markdown --layout thematic
			sthmatters search choice --format json --scope 9a/philosophy
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, g, strings.Join(args, " "), qopts, format, layout)
		},
	}

	qopts.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, markdown, json")
	cmd.Flags().StringVarP(&layout, "layout", "l", string(render.LayoutSummary), "Markdown layout: summary, detailed, thematic, full_content")

	return cmd
}

func runSearch(cmd *cobra.Command, g *globalOptions, text string, qopts queryOptions, format, layout string) error {
	if err := checkFormat(format, "text", "markdown", "json"); err != nil {
		return err
	}
	resultLayout, err := render.ParseResultLayout(layout)
	if err != nil {
		return err
	}

	p, err := g.openPipeline(cmd, true)
	if err != nil {
		return err
	}
	q, err := qopts.query(cmd, p, text)
	if err != nil {
		return err
	}
	if format == "markdown" && resultLayout == render.LayoutFullContent {
		q.IncludeFullContent = true
	}
	results, err := p.Search(q)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	r := render.New()
	switch format {
	case "json":
		return out.JSON(r.RenderJSON(results, text))
	case "markdown":
		doc, err := r.RenderMarkdown(results, text, resultLayout)
		if err != nil {
			return err
		}
		out.Markdown(doc)
		return nil
	}

	printResults(out, text, results)
	return nil
}

func printResults(out *output.Writer, text string, results []search.Result) {
	if len(results) == 0 {
		out.Warningf("No matching results for %q", text)
		return
	}
	out.Header(fmt.Sprintf("%d results for %q", len(results), text))
	for i, r := range results {
		out.Statusf(fmt.Sprintf("%2d.", i+1), "%s  %s", r.Title, r.FilePath)
		out.Dim(fmt.Sprintf("    %s %.2f  %s", r.MatchType, r.RelevanceScore, oneLine(r.ContentPreview, previewWidth)))
	}
}

// oneLine collapses whitespace and truncates s to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
