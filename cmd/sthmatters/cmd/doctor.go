package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
	"github.com/DayDreammy/Sth-Matters-epub/internal/preflight"
)

type doctorView struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func newDoctorCmd(g *globalOptions) *cobra.Command {
	var (
		format  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the knowledge base is ready",
		Long: heredoc.Doc(`
			Check the knowledge-base root, configuration, search paths and
			output directory before indexing or rendering. The output
			directory is created if missing.

			Exits with an error when a required check fails.
		`),
		Example: heredoc.Doc(`
			  # Check the current directory
			  sthmatters doctor

			  # Check another knowledge base, as JSON
			  sthmatters doctor --root ~/notes --format json
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, g, format, verbose)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details for passing checks")

	return cmd
}

func runDoctor(cmd *cobra.Command, g *globalOptions, format string, verbose bool) error {
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}
	cfg, loadErr, err := g.resolveConfig(cmd)
	if err != nil {
		return err
	}

	results := preflight.New(cfg, loadErr).RunAll(cmd.Context())

	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		if err := out.JSON(doctorView{Status: preflight.SummaryStatus(results), Checks: results}); err != nil {
			return err
		}
	} else {
		preflight.PrintResults(out, results, verbose)
	}

	if preflight.HasCriticalFailures(results) {
		return kberrors.New(kberrors.ErrCodeNotReady, "knowledge base is not ready", nil).
			WithSuggestion("fix the failed checks above")
	}
	return nil
}
