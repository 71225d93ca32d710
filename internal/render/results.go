package render

import (
	"fmt"
	"strings"

	"github.com/DayDreammy/Sth-Matters-epub/internal/search"
)

const noResults = "No matching results found."

// RenderMarkdown renders a result set in one of the Markdown layouts.
// Results are shown in score order; ties keep their input order.
func (r *Renderer) RenderMarkdown(results []search.Result, query string, layout ResultLayout) (string, error) {
	if _, ok := layoutTitles[layout]; !ok {
		return "", unsupportedLayout(string(layout))
	}
	sorted := sortedCopy(results)

	var sb strings.Builder
	r.resultHeader(&sb, query, layout, len(sorted))

	if len(sorted) == 0 {
		sb.WriteString(noResults + "\n")
		return sb.String(), nil
	}

	switch layout {
	case LayoutSummary:
		writeSummary(&sb, sorted)
	case LayoutDetailed:
		writeDetailed(&sb, sorted)
	case LayoutThematic:
		writeThematic(&sb, sorted)
	case LayoutFullContent:
		writeFullContent(&sb, sorted)
	}
	return sb.String(), nil
}

var layoutTitles = map[ResultLayout]string{
	LayoutSummary:     "Search Summary",
	LayoutDetailed:    "Detailed Search Report",
	LayoutThematic:    "Thematic Search Report",
	LayoutFullContent: "Full Content Report",
}

func (r *Renderer) resultHeader(sb *strings.Builder, query string, layout ResultLayout, total int) {
	fmt.Fprintf(sb, "# %s: %s\n\n", layoutTitles[layout], query)
	fmt.Fprintf(sb, "- **Query:** %s\n", query)
	fmt.Fprintf(sb, "- **Generated:** %s\n", r.timestamp())
	fmt.Fprintf(sb, "- **Total results:** %d\n\n", total)
}

func writeSummary(sb *strings.Builder, results []search.Result) {
	shown := results
	if len(shown) > SummaryLimit {
		shown = shown[:SummaryLimit]
		fmt.Fprintf(sb, "_Showing the top %d of %d results._\n\n", SummaryLimit, len(results))
	}

	sb.WriteString("## Results\n\n")
	for i, res := range shown {
		fmt.Fprintf(sb, "### %d. %s\n\n", i+1, res.Title)
		fmt.Fprintf(sb, "- **File:** `%s`\n", res.FilePath)
		fmt.Fprintf(sb, "- **Match:** %s (%.2f)\n", res.MatchType, res.RelevanceScore)
		if len(res.MatchingLines) > 0 {
			fmt.Fprintf(sb, "- **Lines:** %s\n", formatLines(res.MatchingLines, summaryLines))
		}
		if res.ContentPreview != "" {
			sb.WriteString("\n" + quote(res.ContentPreview) + "\n")
		}
		sb.WriteString("\n")
	}
}

func writeDetailed(sb *strings.Builder, results []search.Result) {
	for i, res := range results {
		fmt.Fprintf(sb, "## %d. %s\n\n", i+1, res.Title)
		sb.WriteString("| Field | Value |\n|-------|-------|\n")
		fmt.Fprintf(sb, "| File | `%s` |\n", res.FilePath)
		if res.Category != "" {
			fmt.Fprintf(sb, "| Category | %s |\n", res.Category)
		}
		fmt.Fprintf(sb, "| Match type | %s |\n", res.MatchType)
		fmt.Fprintf(sb, "| Relevance | %.2f |\n", res.RelevanceScore)
		fmt.Fprintf(sb, "| Word count | %d |\n", res.WordCount)
		if len(res.MatchingLines) > 0 {
			fmt.Fprintf(sb, "| Matching lines | %s |\n", formatLines(res.MatchingLines, len(res.MatchingLines)))
		}
		sb.WriteString("\n")

		if res.ContentPreview != "" {
			sb.WriteString("### Preview\n\n")
			sb.WriteString(fence("text", res.ContentPreview) + "\n\n")
		}
		if res.FullContent != "" {
			sb.WriteString("### Full Content\n\n")
			sb.WriteString(fence("markdown", strings.TrimRight(res.FullContent, "\n")) + "\n\n")
		}
		sb.WriteString("---\n\n")
	}
}

var thematicGroups = []struct {
	match search.MatchType
	title string
}{
	{search.MatchFilename, "Filename Matches"},
	{search.MatchTag, "Tag Matches"},
	{search.MatchContent, "Content Matches"},
}

func writeThematic(sb *strings.Builder, results []search.Result) {
	for _, g := range thematicGroups {
		var group []search.Result
		for _, res := range results {
			if res.MatchType == g.match {
				group = append(group, res)
			}
		}
		if len(group) == 0 {
			continue
		}

		fmt.Fprintf(sb, "## %s (%d)\n\n", g.title, len(group))
		for _, res := range group {
			fmt.Fprintf(sb, "### %s\n\n", res.Title)
			fmt.Fprintf(sb, "`%s` · %.2f", res.FilePath, res.RelevanceScore)
			if len(res.MatchingLines) > 0 {
				fmt.Fprintf(sb, " · lines %s", formatLines(res.MatchingLines, thematicLines))
			}
			sb.WriteString("\n\n")
			if res.ContentPreview != "" {
				sb.WriteString(quote(truncateRunes(res.ContentPreview, thematicRunes)) + "\n\n")
			}
		}
	}
}

func writeFullContent(sb *strings.Builder, results []search.Result) {
	for i, res := range results {
		fmt.Fprintf(sb, "## %d. %s\n\n", i+1, res.Title)
		fmt.Fprintf(sb, "**Source:** `%s`\n\n", res.FilePath)
		if res.FullContent == "" {
			sb.WriteString("_Content not available._\n\n")
		} else {
			sb.WriteString(fence("markdown", strings.TrimRight(res.FullContent, "\n")) + "\n\n")
		}
		sb.WriteString("---\n\n")
	}
}
