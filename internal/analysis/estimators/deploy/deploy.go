// Package deploy estimates DORA-style deployment performance from
// releases, workflow runs, pull requests, and commit messages. Deployment
// events are recognized by name ("deploy", "release", "production"), not
// observed; every threshold below is a tunable heuristic.
package deploy

import (
	"sort"
	"strings"
	"time"

	"github.com/repovitals/repovitals/pkg/models"
)

const (
	// Lead-time sampling: merged-PR-to-release deltas beyond this are
	// discarded as outliers.
	leadTimeSamplePRs    = 10
	leadTimeOutlierHours = 30 * 24

	// MTTR only counts fix-to-fix gaps inside this window; shorter gaps
	// are amended commits, longer ones unrelated work.
	recoveryMinGap = 1 * time.Hour
	recoveryMaxGap = 7 * 24 * time.Hour

	// Fallback defaults when no signal exists at all.
	defaultLeadTimeHours = 48.0
	defaultRecoveryHours = 24.0

	hoursPerWeek = 24 * 7
)

// Score component caps: frequency up to 30 points, lead time 30, failure
// rate 25, recovery 15.
const (
	freqPointsPerDeploy = 10.0
	freqPointsCap       = 30.0
	leadPointsCap       = 30.0
	failPointsCap       = 25.0
	recoverPointsCap    = 15.0
)

var deployKeywords = []string{"deploy", "release", "production"}

var revertKeywords = []string{"revert", "rollback", "hotfix"}

var fixKeywords = []string{"fix", "hotfix", "patch", "urgent", "critical"}

var fixTitleKeywords = []string{"fix", "bug", "hotfix", "patch"}

// Inputs is the slice of fetched data the deployment estimator reads.
// Commits are expected in the forge's reverse-chronological order.
type Inputs struct {
	Commits      []models.CommitRecord
	PullRequests []models.PullRequestRecord
	Releases     []models.ReleaseRecord
	WorkflowRuns []models.WorkflowRunRecord
}

// Estimate derives the deployment section of the report. Pure and
// deterministic for a fixed now.
func Estimate(in Inputs, now time.Time) models.DeploymentMetrics {
	frequency := deployFrequency(in, now)
	leadTime := leadTimeHours(in)
	failureRate := changeFailureRate(in)
	recovery := meanTimeToRecover(in)

	score := scorePoints(frequency, leadTime, failureRate, recovery)

	metrics := models.DeploymentMetrics{
		Frequency:         frequency,
		LeadTimeHours:     leadTime,
		ChangeFailureRate: failureRate,
		MeanTimeToRecover: recovery,
		Score:             score,
	}
	metrics.Recommendations = recommend(metrics)
	return metrics
}

func isDeployRun(run models.WorkflowRunRecord) bool {
	name := strings.ToLower(run.Name)
	for _, kw := range deployKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// deployFrequency is deployments per week: the better of release cadence
// and successful deploy-workflow cadence, measured from the oldest sampled
// item (floored at one week so sparse histories do not divide by zero).
func deployFrequency(in Inputs, now time.Time) float64 {
	perWeek := func(count int, oldest time.Time) float64 {
		if count == 0 || oldest.IsZero() {
			return 0
		}
		weeks := now.Sub(oldest).Hours() / hoursPerWeek
		if weeks < 1 {
			weeks = 1
		}
		return float64(count) / weeks
	}

	var oldestRelease time.Time
	for _, rel := range in.Releases {
		if oldestRelease.IsZero() || rel.PublishedAt.Before(oldestRelease) {
			oldestRelease = rel.PublishedAt
		}
	}
	releaseFreq := perWeek(len(in.Releases), oldestRelease)

	deploySuccesses := 0
	var oldestRun time.Time
	for _, run := range in.WorkflowRuns {
		if !isDeployRun(run) || run.Conclusion != "success" {
			continue
		}
		deploySuccesses++
		if oldestRun.IsZero() || run.CreatedAt.Before(oldestRun) {
			oldestRun = run.CreatedAt
		}
	}
	runFreq := perWeek(deploySuccesses, oldestRun)

	if runFreq > releaseFreq {
		return runFreq
	}
	return releaseFreq
}

// leadTimeHours averages merged-PR-to-next-release deltas over recent
// merged PRs. Fallback chain: half the average inter-release interval,
// then average inter-commit interval, then a fixed default.
func leadTimeHours(in Inputs) float64 {
	releases := append([]models.ReleaseRecord(nil), in.Releases...)
	sort.Slice(releases, func(i, j int) bool {
		return releases[i].PublishedAt.Before(releases[j].PublishedAt)
	})

	var total float64
	samples := 0
	for _, pr := range in.PullRequests {
		if pr.MergedAt == nil {
			continue
		}
		if samples >= leadTimeSamplePRs {
			break
		}
		// First release published after the merge.
		for _, rel := range releases {
			if rel.PublishedAt.After(*pr.MergedAt) {
				hours := rel.PublishedAt.Sub(*pr.MergedAt).Hours()
				if hours <= leadTimeOutlierHours {
					total += hours
					samples++
				}
				break
			}
		}
	}
	if samples > 0 {
		return total / float64(samples)
	}

	if len(releases) > 1 {
		span := releases[len(releases)-1].PublishedAt.Sub(releases[0].PublishedAt).Hours()
		avgInterval := span / float64(len(releases)-1)
		return avgInterval / 2
	}

	if len(in.Commits) > 1 {
		newest := in.Commits[0].AuthoredAt
		oldest := in.Commits[len(in.Commits)-1].AuthoredAt
		if newest.After(oldest) {
			return newest.Sub(oldest).Hours() / float64(len(in.Commits)-1)
		}
	}

	return defaultLeadTimeHours
}

// changeFailureRate is the failure percentage among deploy-labeled runs,
// falling back to the share of revert/rollback/hotfix commits.
func changeFailureRate(in Inputs) float64 {
	deployRuns, failed := 0, 0
	for _, run := range in.WorkflowRuns {
		if !isDeployRun(run) {
			continue
		}
		deployRuns++
		if run.Conclusion == "failure" {
			failed++
		}
	}
	if deployRuns > 0 {
		return float64(failed) / float64(deployRuns) * 100
	}

	if len(in.Commits) == 0 {
		return 0
	}
	reverts := 0
	for _, commit := range in.Commits {
		msg := strings.ToLower(commit.Message)
		for _, kw := range revertKeywords {
			if strings.Contains(msg, kw) {
				reverts++
				break
			}
		}
	}
	return float64(reverts) / float64(len(in.Commits)) * 100
}

// meanTimeToRecover averages gaps between consecutive fix-labeled commits
// within the recovery window, falling back to the resolution time of
// merged fix-titled PRs, then a fixed default.
func meanTimeToRecover(in Inputs) float64 {
	var fixTimes []time.Time
	for _, commit := range in.Commits {
		msg := strings.ToLower(commit.Message)
		for _, kw := range fixKeywords {
			if strings.Contains(msg, kw) {
				fixTimes = append(fixTimes, commit.AuthoredAt)
				break
			}
		}
	}
	sort.Slice(fixTimes, func(i, j int) bool { return fixTimes[i].Before(fixTimes[j]) })

	var total float64
	pairs := 0
	for i := 1; i < len(fixTimes); i++ {
		gap := fixTimes[i].Sub(fixTimes[i-1])
		if gap >= recoveryMinGap && gap <= recoveryMaxGap {
			total += gap.Hours()
			pairs++
		}
	}
	if pairs > 0 {
		return total / float64(pairs)
	}

	var prTotal float64
	prSamples := 0
	for _, pr := range in.PullRequests {
		if pr.MergedAt == nil {
			continue
		}
		title := strings.ToLower(pr.Title)
		for _, kw := range fixTitleKeywords {
			if strings.Contains(title, kw) {
				prTotal += pr.MergedAt.Sub(pr.CreatedAt).Hours()
				prSamples++
				break
			}
		}
	}
	if prSamples > 0 {
		return prTotal / float64(prSamples)
	}

	return defaultRecoveryHours
}

func scorePoints(frequency, leadTime, failureRate, recovery float64) int {
	freqPoints := freqPointsPerDeploy * frequency
	if freqPoints > freqPointsCap {
		freqPoints = freqPointsCap
	}

	leadPoints := leadPointsCap - leadTime/2
	if leadPoints < 0 {
		leadPoints = 0
	}

	failPoints := failPointsCap - failureRate
	if failPoints < 0 {
		failPoints = 0
	}

	recoverPoints := recoverPointsCap - recovery/2
	if recoverPoints < 0 {
		recoverPoints = 0
	}

	return int(freqPoints + leadPoints + failPoints + recoverPoints)
}

func recommend(m models.DeploymentMetrics) []string {
	var recs []string

	if m.Frequency < 1 {
		recs = append(recs, "Ship smaller changes more often; less than one deployment per week was detected")
	}
	if m.LeadTimeHours > 72 {
		recs = append(recs, "Shorten the merge-to-release gap with automated release pipelines")
	}
	if m.ChangeFailureRate > 15 {
		recs = append(recs, "Add pre-deployment checks; a high share of deployments end in failure or rollback")
	}
	if m.MeanTimeToRecover > 24 {
		recs = append(recs, "Practice incident response to bring recovery time under a day")
	}

	if len(recs) < 2 {
		fillers := []string{
			"Label deployment workflows consistently so they can be tracked",
			"Tag releases for every production rollout",
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
