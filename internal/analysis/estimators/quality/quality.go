// Package quality scores commit-message hygiene as a cheap proxy for code
// quality. No static analysis happens here: the score rewards descriptive,
// conventionally formatted commit messages with explanatory bodies, and
// the severity buckets are derived arithmetically from its inverse. All
// constants are tunable heuristics.
package quality

import (
	"regexp"

	"github.com/repovitals/repovitals/pkg/models"
)

// MaxCommits bounds how many recent commits the score samples.
const MaxCommits = 30

// Partial credits awarded per commit message. A message can earn at most
// 1.0.
const (
	creditLen10        = 0.2 // more than a couple of words
	creditLen20        = 0.1
	creditLen50        = 0.1
	creditConventional = 0.4 // type(scope): subject
	creditBody         = 0.2 // blank-line-separated explanation
)

// Severity divisors: issue counts grow as the score shrinks.
const (
	criticalDivisor = 25
	highDivisor     = 20
	mediumDivisor   = 10
	lowDivisor      = 5
)

// conventionalPattern matches "type(scope): subject" and the scope-less
// "type: subject" form, including breaking-change markers.
var conventionalPattern = regexp.MustCompile(`^[a-zA-Z]+(\([\w\-./]+\))?!?:\s+\S`)

var bodyPattern = regexp.MustCompile(`\n\s*\n\S`)

// CommitMessageScore returns the normalized hygiene score in [0,1] over
// up to MaxCommits recent commits. An empty commit list scores 0.
func CommitMessageScore(commits []models.CommitRecord) float64 {
	if len(commits) == 0 {
		return 0
	}

	sample := commits
	if len(sample) > MaxCommits {
		sample = sample[:MaxCommits]
	}

	var sum float64
	for _, commit := range sample {
		sum += scoreMessage(commit.Message)
	}

	score := sum / float64(len(sample))
	if score > 1 {
		score = 1
	}
	return score
}

func scoreMessage(msg string) float64 {
	var credit float64
	if len(msg) > 10 {
		credit += creditLen10
	}
	if len(msg) > 20 {
		credit += creditLen20
	}
	if len(msg) > 50 {
		credit += creditLen50
	}
	if conventionalPattern.MatchString(msg) {
		credit += creditConventional
	}
	if bodyPattern.MatchString(msg) {
		credit += creditBody
	}
	if credit > 1 {
		credit = 1
	}
	return credit
}

// Estimate converts recent commits into the code-quality section of the
// report. Pure: no fetching happens here.
func Estimate(commits []models.CommitRecord) models.CodeQuality {
	commitScore := CommitMessageScore(commits)

	score := int(commitScore * 100)
	if score > 100 {
		score = 100
	}

	inverse := 100 - score
	issues := models.IssueCounts{
		Critical: inverse / criticalDivisor,
		High:     inverse / highDivisor,
		Medium:   inverse / mediumDivisor,
		Low:      inverse / lowDivisor,
	}

	return models.CodeQuality{
		Score:              score,
		CommitMessageScore: commitScore,
		Issues:             issues,
		Recommendations:    recommend(score, commitScore, issues),
	}
}

func recommend(score int, commitScore float64, issues models.IssueCounts) []string {
	var recs []string

	if issues.Critical > 0 {
		recs = append(recs, "Address critical issues before the next release")
	}
	if commitScore < 0.6 {
		recs = append(recs, "Adopt conventional commit messages (type(scope): subject) to improve traceability")
	}
	if issues.High > 3 {
		recs = append(recs, "Schedule a focused cleanup sprint for high-severity issues")
	}

	// Keep the list non-empty for any imperfect score.
	if len(recs) < 2 && score < 100 {
		fillers := []string{
			"Increase code review coverage for recent changes",
			"Document non-obvious decisions in commit bodies",
		}
		for _, f := range fillers {
			if len(recs) >= 2 {
				break
			}
			recs = append(recs, f)
		}
	}

	return recs
}
