package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
	"github.com/DayDreammy/Sth-Matters-epub/internal/pipeline"
)

// bookView is the JSON output of the book command.
type bookView struct {
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Chapters int      `json:"chapters"`
	Sections int      `json:"sections"`
	Missing  []string `json:"missing,omitempty"`
}

func newBookCmd(g *globalOptions) *cobra.Command {
	var (
		title     string
		normalize bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "book <manifest.json>",
		Short: "Compile a topic manifest into an EPUB",
		Long: heredoc.Doc(`
			Compile a topic manifest into an EPUB 3 book with a cover page, a
			table of contents and one chapter per source, grouped by category.

			The book is written to the output directory as
			{title}_{YYYYMMDD_HHMMSS}.epub.
		`),
		Example: heredoc.Doc(`
			sthmatters book output/free-will_quick_search_index.json
			sthmatters book topic.json --title "On Free Will"
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBook(cmd, g, args[0], title, normalize, format)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Book title (default: the manifest topic)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Renumber source ids 1..N before validating")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runBook(cmd *cobra.Command, g *globalOptions, path, title string, normalize bool, format string) error {
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}
	m, err := pipeline.LoadManifest(path, normalize)
	if err != nil {
		return err
	}
	p, err := g.openPipeline(cmd, false)
	if err != nil {
		return err
	}

	b, artifact, err := p.GenerateBook(m, title)
	if err != nil {
		return err
	}
	view := bookView{
		Path:     artifact.Path,
		Title:    b.Title,
		Chapters: len(b.Chapters()),
		Sections: len(b.Sections),
		Missing:  b.Missing,
	}

	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		return out.JSON(view)
	}
	out.Successf("Wrote %q: %d chapters in %d sections", view.Title, view.Chapters, view.Sections)
	out.KeyValue("book (epub)", view.Path)
	if len(view.Missing) > 0 {
		out.Warningf("%d source file(s) not found, rendered with a placeholder:", len(view.Missing))
		for _, m := range view.Missing {
			out.Status("", m)
		}
	}
	return nil
}
