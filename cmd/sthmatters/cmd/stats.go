package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
)

// topCategoryLimit bounds the category listing in text output.
const topCategoryLimit = 10

func newStatsCmd(g *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge-base statistics",
		Long:  `Display file, word, tag, file-type and category counts for the indexed files.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, g, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runStats(cmd *cobra.Command, g *globalOptions, format string) error {
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}
	p, err := g.openPipeline(cmd, true)
	if err != nil {
		return err
	}
	stats, err := p.Index().Stats()
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		return out.JSON(stats)
	}

	out.Header("Knowledge base")
	out.KeyValue("Files", stats.TotalFiles)
	out.KeyValue("Words", stats.TotalWords)
	out.KeyValue("Tags", stats.TotalTags)
	out.KeyValue("Size", fmt.Sprintf("%d bytes", stats.TotalSizeBytes))
	out.KeyValue("Indexed at", stats.BuiltAt.Format(time.DateTime))

	if len(stats.FileTypes) > 0 {
		out.Newline()
		out.Header("File types")
		types := make([]string, 0, len(stats.FileTypes))
		for t := range stats.FileTypes {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			out.KeyValue(t, stats.FileTypes[t])
		}
	}

	if len(stats.TopCategories) > 0 {
		out.Newline()
		out.Header("Categories")
		for i, c := range stats.TopCategories {
			if i == topCategoryLimit {
				out.Dim(fmt.Sprintf("  ... and %d more", len(stats.TopCategories)-topCategoryLimit))
				break
			}
			out.KeyValue(c.Category, c.Files)
		}
	}
	return nil
}
