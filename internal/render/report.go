package render

import "github.com/DayDreammy/Sth-Matters-epub/internal/search"

// Generator identifies this tool in generated reports.
const Generator = "sthmatters"

// ReportMetadata describes a JSON report.
type ReportMetadata struct {
	Query        string `json:"query"`
	Timestamp    string `json:"timestamp"`
	TotalResults int    `json:"total_results"`
	Generator    string `json:"generator"`
}

// Report is the JSON form of a result set.
type Report struct {
	Metadata ReportMetadata  `json:"metadata"`
	Results  []search.Result `json:"results"`
}

// RenderJSON builds the JSON report for a result set. Save it with
// Writer.Save to get the indented encoding.
func (r *Renderer) RenderJSON(results []search.Result, query string) *Report {
	sorted := sortedCopy(results)
	if sorted == nil {
		sorted = []search.Result{}
	}
	return &Report{
		Metadata: ReportMetadata{
			Query:        query,
			Timestamp:    r.now().Format(timestampLayout),
			TotalResults: len(sorted),
			Generator:    Generator,
		},
		Results: sorted,
	}
}
