package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
	"github.com/DayDreammy/Sth-Matters-epub/internal/pipeline"
)

func newRenderCmd(g *globalOptions) *cobra.Command {
	var (
		layouts         []string
		topic           string
		normalize       bool
		noSourceContent bool
		format          string
	)

	cmd := &cobra.Command{
		Use:   "render <manifest.json>",
		Short: "Render a topic manifest as reading documents",
		Long: heredoc.Doc(`
			Render a topic manifest into reading documents. Layouts:

			  thematic      sources grouped by category with a table of contents
			  source_based  one section per source, in manifest order
			  concepts      sources grouped by key concept
			  summary       statistics, categories, concepts and relationships
			  html          a standalone HTML page

			Source files are read relative to the knowledge-base root; a
			missing file is rendered with a placeholder and reported.
		`),
		Example: heredoc.Doc(`
			sthmatters render output/free-will_quick_search_index.json
			sthmatters render topic.json --layouts thematic,html --topic "Free will"
			sthmatters render topic.json --normalize --no-source-content
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, g, args[0], layouts, topic, normalize, noSourceContent, format)
		},
	}

	cmd.Flags().StringSliceVarP(&layouts, "layouts", "l", []string{"all"}, "Layouts: thematic, source_based, concepts, summary, html, all")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Override the manifest topic")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Renumber source ids 1..N before validating")
	cmd.Flags().BoolVar(&noSourceContent, "no-source-content", false, "Leave original file content out of the documents")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runRender(cmd *cobra.Command, g *globalOptions, path string, layoutNames []string, topic string, normalize, noSourceContent bool, format string) error {
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}
	layouts, err := parseManifestLayouts(layoutNames)
	if err != nil {
		return err
	}

	m, err := pipeline.LoadManifest(path, normalize)
	if err != nil {
		return err
	}
	if topic != "" {
		m.Metadata.Topic = topic
	}

	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}
	if noSourceContent {
		include := false
		cfg.Output.IncludeSourceContent = &include
	}
	p, err := openPipeline(cmd, cfg, false)
	if err != nil {
		return err
	}

	gen, err := p.RenderManifest(m, layouts)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		return out.JSON(gen)
	}
	out.Successf("Rendered %q (%d sources)", m.Metadata.Topic, len(m.Sources))
	printArtifacts(out, gen)
	return nil
}
