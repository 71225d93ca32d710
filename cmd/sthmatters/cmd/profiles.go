package cmd

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DayDreammy/Sth-Matters-epub/internal/config"
	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
)

// profileView is the JSON form of one search profile.
type profileView struct {
	Name        string   `json:"name"`
	Paths       []string `json:"paths"`
	Description string   `json:"description"`
	Active      bool     `json:"active"`
}

func newProfilesCmd(g *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the configured search profiles",
		Long: `List the named search-path presets. Select one for any command
with --profile NAME.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProfiles(cmd, g, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runProfiles(cmd *cobra.Command, g *globalOptions, format string) error {
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}
	views := profileViews(cfg)

	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		return out.JSON(views)
	}

	out.Header("Search profiles")
	for _, v := range views {
		marker := "•"
		if v.Active {
			marker = "*"
		}
		out.Statusf(marker, "%s: %s", v.Name, strings.Join(v.Paths, ", "))
		if v.Description != "" {
			out.Dim("    " + v.Description)
		}
	}
	out.Newline()
	out.KeyValue("Active paths", strings.Join(cfg.Index.DefaultSearchPaths, ", "))
	return nil
}

// profileViews lists profiles by name. A profile is active when its paths
// are the active search paths.
func profileViews(cfg *config.Config) []profileView {
	names := cfg.ProfileNames()
	views := make([]profileView, 0, len(names))
	for _, name := range names {
		p, _ := cfg.Profile(name)
		views = append(views, profileView{
			Name:        name,
			Paths:       p.Paths,
			Description: p.Description,
			Active:      slices.Equal(p.Paths, cfg.Index.DefaultSearchPaths),
		})
	}
	return views
}
