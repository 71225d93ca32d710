package cmd

import (
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
	"github.com/DayDreammy/Sth-Matters-epub/internal/pipeline"
)

// reportView is the JSON output of the report command.
type reportView struct {
	Query        string              `json:"query"`
	TotalResults int                 `json:"total_results"`
	Artifacts    []pipeline.Artifact `json:"artifacts"`
}

func newReportCmd(g *globalOptions) *cobra.Command {
	var (
		qopts  queryOptions
		format string
	)

	cmd := &cobra.Command{
		Use:   "report <query>",
		Short: "Search and save the results in every document format",
		Long: heredoc.Doc(`
			Search the knowledge base and write the result set to the output
			directory as Markdown (summary, detailed and thematic layouts), an
			HTML page and a JSON report. With --full-content the matched files'
			text is attached and the full_content layout is written too.

			Files are named {query}_{layout}_doc.{ext}; an existing file with
			the same name is replaced.
		`),
		Example: heredoc.Doc(`
			sthmatters report "free will"
			sthmatters report choice --full-content --output-dir ./reports
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, g, strings.Join(args, " "), qopts, format)
		},
	}

	qopts.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runReport(cmd *cobra.Command, g *globalOptions, text string, qopts queryOptions, format string) error {
	if err := checkFormat(format, "text", "json"); err != nil {
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
	results, gen, err := p.Report(q)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		return out.JSON(reportView{Query: text, TotalResults: len(results), Artifacts: gen.Artifacts})
	}

	out.Successf("%d results for %q", len(results), text)
	printArtifacts(out, gen)
	return nil
}

// printArtifacts lists generated files and any placeholder sources.
func printArtifacts(out *output.Writer, gen *pipeline.Generated) {
	if gen == nil {
		return
	}
	for _, a := range gen.Artifacts {
		out.KeyValue(a.Kind+" ("+string(a.Format)+")", a.Path)
	}
	if len(gen.Missing) > 0 {
		out.Warningf("%d source file(s) not found, rendered with a placeholder:", len(gen.Missing))
		for _, m := range gen.Missing {
			out.Status("", m)
		}
	}
}
