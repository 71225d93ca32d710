package cmd

import (
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
	"github.com/DayDreammy/Sth-Matters-epub/internal/pipeline"
	"github.com/DayDreammy/Sth-Matters-epub/internal/render"
)

// quickView is the JSON output of the quick command.
type quickView struct {
	*pipeline.QuickResult
	Book *pipeline.Artifact `json:"book,omitempty"`
}

func newQuickCmd(g *globalOptions) *cobra.Command {
	var (
		layouts []string
		book    bool
		title   string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "quick <topic>",
		Short: "Build a topic manifest from a search, then optional documents",
		Long: heredoc.Doc(`
			Search the knowledge base for a topic and save the matching files
			as a topic manifest ({topic}_quick_search_index.json) in the output
			directory. Each source carries the file's title, category, tags,
			preview, word count and first link matching manifest.link_pattern.

			With --layouts the manifest is also rendered as reading documents;
			with --book it is compiled into an EPUB.
		`),
		Example: heredoc.Doc(`
			sthmatters quick 自由意志
			sthmatters quick "free will" --layouts thematic,summary
			sthmatters quick "free will" --layouts all --book
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuick(cmd, g, strings.Join(args, " "), layouts, book, title, format)
		},
	}

	cmd.Flags().StringSliceVarP(&layouts, "layouts", "l", nil, "Manifest layouts to render: thematic, source_based, concepts, summary, html, all")
	cmd.Flags().BoolVar(&book, "book", false, "Also compile the manifest into an EPUB")
	cmd.Flags().StringVar(&title, "title", "", "Book title (default: the topic)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runQuick(cmd *cobra.Command, g *globalOptions, topic string, layoutNames []string, book bool, title, format string) error {
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}
	layouts, err := parseManifestLayouts(layoutNames)
	if err != nil {
		return err
	}

	p, err := g.openPipeline(cmd, true)
	if err != nil {
		return err
	}
	res, err := p.QuickSearch(topic, layouts)
	if err != nil {
		return err
	}

	view := quickView{QuickResult: res}
	if book {
		_, artifact, err := p.GenerateBook(res.Manifest, title)
		if err != nil {
			return err
		}
		view.Book = &artifact
	}

	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		return out.JSON(view)
	}

	out.Successf("%d sources for %q", len(res.Manifest.Sources), topic)
	out.KeyValue("manifest", res.ManifestPath)
	printArtifacts(out, res.Generated)
	if view.Book != nil {
		out.KeyValue("book (epub)", view.Book.Path)
	}
	return nil
}

// parseManifestLayouts validates layout names. "all" selects every layout;
// duplicates are dropped.
func parseManifestLayouts(names []string) ([]render.ManifestLayout, error) {
	var layouts []render.ManifestLayout
	seen := make(map[render.ManifestLayout]bool)
	add := func(l render.ManifestLayout) {
		if !seen[l] {
			seen[l] = true
			layouts = append(layouts, l)
		}
	}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "all" {
			for _, l := range render.ManifestLayouts {
				add(l)
			}
			continue
		}
		l, err := render.ParseManifestLayout(name)
		if err != nil {
			return nil, err
		}
		add(l)
	}
	return layouts, nil
}
