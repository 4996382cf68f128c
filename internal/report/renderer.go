package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/repovitals/repovitals/pkg/models"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

type Renderer interface {
	Render(report *models.HealthReport, w io.Writer) error
}

func NewRenderer(f Format) Renderer {
	switch f {
	case FormatJSON:
		return &JSONRenderer{}
	case FormatMarkdown:
		return &MarkdownRenderer{}
	default:
		return &TextRenderer{}
	}
}

type JSONRenderer struct{}

func (r *JSONRenderer) Render(report *models.HealthReport, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

type TextRenderer struct{}

func (r *TextRenderer) Render(report *models.HealthReport, w io.Writer) error {
	repo := report.Repository
	_, _ = fmt.Fprintf(w, "\n🔎 HEALTH REPORT: %s\n", repo.FullName)
	_, _ = fmt.Fprintln(w, "==================================================")
	if repo.Description != "" {
		_, _ = fmt.Fprintf(w, "%s\n", repo.Description)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Overall Score:\t%d/100 (benchmark %d)\n", report.OverallScore, report.BenchmarkScore)
	_, _ = fmt.Fprintf(tw, "Code Quality:\t%d/100\n", report.Quality.Score)
	_, _ = fmt.Fprintf(tw, "Technical Debt:\t%d/100\n", report.Debt.Score)
	_, _ = fmt.Fprintf(tw, "Deployment:\t%d/100\n", report.Deployment.Score)
	_ = tw.Flush()

	_, _ = fmt.Fprintln(w, "\n[ code metrics (estimated) ]")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "  Total Lines:\t~%d\n", report.Code.TotalLines)
	_, _ = fmt.Fprintf(tw, "  Code / Comment / Blank:\t~%d / ~%d / ~%d\n",
		report.Code.CodeLines, report.Code.CommentLines, report.Code.BlankLines)
	_, _ = fmt.Fprintf(tw, "  Files:\t~%d\n", report.Code.FileCount)
	if len(report.Code.Languages) > 0 {
		_, _ = fmt.Fprintf(tw, "  Languages:\t%s\n", formatLanguages(report.Code.Languages))
	}
	_ = tw.Flush()

	_, _ = fmt.Fprintln(w, "\n[ code quality ]")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "  Commit Hygiene:\t%.2f\n", report.Quality.CommitMessageScore)
	_, _ = fmt.Fprintf(tw, "  Issues (C/H/M/L):\t%d / %d / %d / %d\n",
		report.Quality.Issues.Critical, report.Quality.Issues.High,
		report.Quality.Issues.Medium, report.Quality.Issues.Low)
	_ = tw.Flush()
	renderRecommendations(w, report.Quality.Recommendations)

	_, _ = fmt.Fprintln(w, "\n[ technical debt ]")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "  Complexity:\t%.2f\n", report.Debt.Metrics.ComplexityScore)
	_, _ = fmt.Fprintf(tw, "  Duplication:\t%.1f%%\n", report.Debt.Metrics.Duplications)
	_, _ = fmt.Fprintf(tw, "  Test Coverage (est):\t%.0f%%\n", report.Debt.Metrics.TestCoverage)
	_, _ = fmt.Fprintf(tw, "  Outdated Dependencies:\t%d\n", report.Debt.Metrics.OutdatedDependencies)
	_ = tw.Flush()
	renderRecommendations(w, report.Debt.Recommendations)

	_, _ = fmt.Fprintln(w, "\n[ deployment ]")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "  Frequency:\t%.2f/week\n", report.Deployment.Frequency)
	_, _ = fmt.Fprintf(tw, "  Lead Time:\t%.1fh\n", report.Deployment.LeadTimeHours)
	_, _ = fmt.Fprintf(tw, "  Change Failure Rate:\t%.1f%%\n", report.Deployment.ChangeFailureRate)
	_, _ = fmt.Fprintf(tw, "  Mean Time To Recover:\t%.1fh\n", report.Deployment.MeanTimeToRecover)
	_ = tw.Flush()
	renderRecommendations(w, report.Deployment.Recommendations)

	_, _ = fmt.Fprintf(w, "\nGenerated at %s. All figures are heuristic estimates, not measurements.\n",
		report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	_, _ = fmt.Fprintln(w, "--------------------------------------------------")
	return nil
}

func renderRecommendations(w io.Writer, recs []string) {
	if len(recs) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "  Recommendations:")
	for _, rec := range recs {
		_, _ = fmt.Fprintf(w, "    • %s\n", rec)
	}
}

// formatLanguages lists languages by descending byte count. The breakdown
// map has no defined order, so sorting happens here.
func formatLanguages(languages models.LanguageBreakdown) string {
	type langBytes struct {
		name  string
		bytes int
	}
	sorted := make([]langBytes, 0, len(languages))
	total := 0
	for name, b := range languages {
		sorted = append(sorted, langBytes{name, b})
		total += b
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].bytes != sorted[j].bytes {
			return sorted[i].bytes > sorted[j].bytes
		}
		return sorted[i].name < sorted[j].name
	})

	out := ""
	for i, lb := range sorted {
		if i >= 5 {
			out += fmt.Sprintf(", +%d more", len(sorted)-i)
			break
		}
		if i > 0 {
			out += ", "
		}
		pct := 0.0
		if total > 0 {
			pct = float64(lb.bytes) / float64(total) * 100
		}
		out += fmt.Sprintf("%s %.0f%%", lb.name, pct)
	}
	return out
}
