package cmd

import (
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
	"github.com/DayDreammy/Sth-Matters-epub/internal/pipeline"
)

func newIndexCmd(g *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Scan the knowledge base and summarize the index",
		Long: heredoc.Doc(`
			Scan the active search paths and build the in-memory index.

			Every other command builds the index itself; use this command to
			check which files are picked up and which are skipped.
		`),
		Example: heredoc.Doc(`
			sthmatters index
			sthmatters index --profile philosophy
			sthmatters index --format json
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, g, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runIndex(cmd *cobra.Command, g *globalOptions, format string) error {
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}
	p, err := g.openPipeline(cmd, true)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		return out.JSON(p.Index().Snapshot().Metadata())
	}
	printIndexSummary(out, p)
	return nil
}

// printIndexSummary prints the published snapshot's build metadata.
func printIndexSummary(out *output.Writer, p *pipeline.Pipeline) {
	meta := p.Index().Snapshot().Metadata()
	out.Successf("Indexed %d files in %s", meta.TotalFiles, meta.Duration.Round(time.Millisecond))
	out.KeyValue("Root", p.Config().Root)
	out.KeyValue("Search paths", strings.Join(meta.SearchPaths, ", "))
	out.KeyValue("Version", meta.Version)
	if meta.SkippedFiles > 0 {
		out.KeyValue("Skipped", meta.SkippedFiles)
		for _, s := range meta.Skipped {
			out.Status("", s.Path+": "+s.Reason)
		}
	}
}
