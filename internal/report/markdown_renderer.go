package report

import (
	"fmt"
	"io"

	"github.com/repovitals/repovitals/pkg/models"
)

// MarkdownRenderer renders reports in Markdown format suitable for GitHub
// Actions summaries and PR comments.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(report *models.HealthReport, w io.Writer) error {
	repo := report.Repository

	_, _ = fmt.Fprintf(w, "## %s Repository Health: %s\n\n", getScoreEmoji(report.OverallScore), repo.FullName)
	_, _ = fmt.Fprintf(w, "**Overall Score: %d/100** (industry benchmark: %d)\n\n", report.OverallScore, report.BenchmarkScore)

	_, _ = fmt.Fprintln(w, "| Section | Score |")
	_, _ = fmt.Fprintln(w, "|---------|-------|")
	_, _ = fmt.Fprintf(w, "| Code Quality | %d/100 |\n", report.Quality.Score)
	_, _ = fmt.Fprintf(w, "| Technical Debt | %d/100 |\n", report.Debt.Score)
	_, _ = fmt.Fprintf(w, "| Deployment | %d/100 |\n", report.Deployment.Score)
	_, _ = fmt.Fprintln(w, "")

	_, _ = fmt.Fprintln(w, "#### 📈 Key Metrics")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "| Category | Metrics |")
	_, _ = fmt.Fprintln(w, "|----------|---------|")
	_, _ = fmt.Fprintf(w, "| code-volume (estimated) | **total lines:** ~%d<br>**files:** ~%d |\n",
		report.Code.TotalLines, report.Code.FileCount)
	_, _ = fmt.Fprintf(w, "| quality | **commit hygiene:** %.2f<br>**issues (C/H/M/L):** %d/%d/%d/%d |\n",
		report.Quality.CommitMessageScore,
		report.Quality.Issues.Critical, report.Quality.Issues.High,
		report.Quality.Issues.Medium, report.Quality.Issues.Low)
	_, _ = fmt.Fprintf(w, "| debt | **complexity:** %.2f<br>**duplication:** %.1f%%<br>**coverage (est):** %.0f%%<br>**outdated deps:** %d |\n",
		report.Debt.Metrics.ComplexityScore, report.Debt.Metrics.Duplications,
		report.Debt.Metrics.TestCoverage, report.Debt.Metrics.OutdatedDependencies)
	_, _ = fmt.Fprintf(w, "| deployment | **frequency:** %.2f/week<br>**lead time:** %.1fh<br>**failure rate:** %.1f%%<br>**MTTR:** %.1fh |\n",
		report.Deployment.Frequency, report.Deployment.LeadTimeHours,
		report.Deployment.ChangeFailureRate, report.Deployment.MeanTimeToRecover)
	_, _ = fmt.Fprintln(w, "")

	recs := make([]string, 0,
		len(report.Quality.Recommendations)+len(report.Debt.Recommendations)+len(report.Deployment.Recommendations))
	recs = append(recs, report.Quality.Recommendations...)
	recs = append(recs, report.Debt.Recommendations...)
	recs = append(recs, report.Deployment.Recommendations...)

	if len(recs) > 0 {
		_, _ = fmt.Fprintln(w, "#### 💡 Recommendations")
		_, _ = fmt.Fprintln(w, "")
		for _, rec := range recs {
			_, _ = fmt.Fprintf(w, "- %s\n", rec)
		}
		_, _ = fmt.Fprintln(w, "")
	}

	_, _ = fmt.Fprintf(w, "*Generated at %s. All figures are heuristic estimates, not measurements.*\n",
		report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	return nil
}

func getScoreEmoji(score int) string {
	switch {
	case score >= 80:
		return "🟢"
	case score >= 60:
		return "🟡"
	case score >= 40:
		return "🟠"
	default:
		return "🔴"
	}
}
