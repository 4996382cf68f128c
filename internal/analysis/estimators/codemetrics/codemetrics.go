// Package codemetrics estimates code volume from repository size. The
// numbers are order-of-magnitude proxies, not measurements: the forge
// reports size in KB and we never clone the tree, so lines and file
// counts are derived from tunable density heuristics.
package codemetrics

import (
	"github.com/repovitals/repovitals/pkg/models"
)

// Tunable heuristics. Roughly: a KB of source holds ~50 lines, a source
// file averages ~10 KB, and a typical codebase splits 75/15/10 between
// code, comments, and blank lines.
const (
	linesPerKB   = 50
	kbPerFile    = 10
	codeFraction = 0.75
	commentFrac  = 0.15
)

// Estimate derives code-volume metrics from the snapshot's size and the
// language breakdown. Blank lines are the remainder so the three parts
// always sum to the total.
func Estimate(snapshot *models.RepositorySnapshot, languages models.LanguageBreakdown) models.CodeMetrics {
	total := snapshot.SizeKB * linesPerKB
	code := int(float64(total) * codeFraction)
	comments := int(float64(total) * commentFrac)

	return models.CodeMetrics{
		TotalLines:   total,
		CodeLines:    code,
		CommentLines: comments,
		BlankLines:   total - code - comments,
		FileCount:    snapshot.SizeKB / kbPerFile,
		Languages:    languages,
	}
}
