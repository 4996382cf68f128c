package deploy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/repovitals/repovitals/pkg/models"
)

var now = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func mergedAt(t time.Time) *time.Time { return &t }

func TestDeployFrequencyNoSignal(t *testing.T) {
	assert.Equal(t, 0.0, deployFrequency(Inputs{}, now))
}

func TestDeployFrequencyFromReleases(t *testing.T) {
	in := Inputs{
		Releases: []models.ReleaseRecord{
			{TagName: "v1.3", PublishedAt: now.Add(-1 * 7 * 24 * time.Hour)},
			{TagName: "v1.2", PublishedAt: now.Add(-2 * 7 * 24 * time.Hour)},
			{TagName: "v1.1", PublishedAt: now.Add(-3 * 7 * 24 * time.Hour)},
			{TagName: "v1.0", PublishedAt: now.Add(-4 * 7 * 24 * time.Hour)},
		},
	}
	assert.InDelta(t, 1.0, deployFrequency(in, now), 1e-9)
}

func TestDeployFrequencyPrefersBusierSignal(t *testing.T) {
	in := Inputs{
		Releases: []models.ReleaseRecord{
			{TagName: "v1.0", PublishedAt: now.Add(-4 * 7 * 24 * time.Hour)},
		},
		WorkflowRuns: []models.WorkflowRunRecord{
			{Name: "Deploy to production", Conclusion: "success", CreatedAt: now.Add(-7 * 24 * time.Hour)},
			{Name: "Deploy to production", Conclusion: "success", CreatedAt: now.Add(-3 * 24 * time.Hour)},
			{Name: "Deploy to production", Conclusion: "failure", CreatedAt: now.Add(-2 * 24 * time.Hour)},
			{Name: "CI", Conclusion: "success", CreatedAt: now.Add(-1 * 24 * time.Hour)},
		},
	}
	// Two successful deploy runs over one week beat one release per month.
	assert.InDelta(t, 2.0, deployFrequency(in, now), 1e-9)
}

func TestDeployFrequencySparseHistoryFloorsAtOneWeek(t *testing.T) {
	in := Inputs{
		Releases: []models.ReleaseRecord{
			{TagName: "v1.0", PublishedAt: now.Add(-1 * time.Hour)},
		},
	}
	assert.InDelta(t, 1.0, deployFrequency(in, now), 1e-9)
}

func TestLeadTimeFromMergedPRs(t *testing.T) {
	merge := now.Add(-48 * time.Hour)
	in := Inputs{
		PullRequests: []models.PullRequestRecord{
			{Number: 1, MergedAt: mergedAt(merge)},
			{Number: 2}, // never merged, skipped
		},
		Releases: []models.ReleaseRecord{
			{TagName: "v0.9", PublishedAt: merge.Add(-100 * time.Hour)}, // before the merge
			{TagName: "v1.0", PublishedAt: merge.Add(10 * time.Hour)},
			{TagName: "v1.1", PublishedAt: merge.Add(200 * time.Hour)},
		},
	}
	// The first release after the merge counts, not later ones.
	assert.InDelta(t, 10.0, leadTimeHours(in), 1e-9)
}

func TestLeadTimeDiscardsOutliers(t *testing.T) {
	merge := now.Add(-2000 * time.Hour)
	in := Inputs{
		PullRequests: []models.PullRequestRecord{
			{Number: 1, MergedAt: mergedAt(merge)},
		},
		Releases: []models.ReleaseRecord{
			{TagName: "v1.0", PublishedAt: merge.Add(1000 * time.Hour)}, // > 30 days later
			{TagName: "v1.1", PublishedAt: merge.Add(1100 * time.Hour)},
		},
	}
	// The only sample is an outlier, so the inter-release fallback kicks
	// in: 100h average interval, halved.
	assert.InDelta(t, 50.0, leadTimeHours(in), 1e-9)
}

func TestLeadTimeInterCommitFallback(t *testing.T) {
	in := Inputs{
		Commits: []models.CommitRecord{
			{AuthoredAt: now},
			{AuthoredAt: now.Add(-10 * time.Hour)},
			{AuthoredAt: now.Add(-20 * time.Hour)},
		},
	}
	assert.InDelta(t, 10.0, leadTimeHours(in), 1e-9)
}

func TestLeadTimeDefault(t *testing.T) {
	assert.Equal(t, defaultLeadTimeHours, leadTimeHours(Inputs{}))
}

func TestChangeFailureRateFromDeployRuns(t *testing.T) {
	in := Inputs{
		WorkflowRuns: []models.WorkflowRunRecord{
			{Name: "deploy", Conclusion: "success"},
			{Name: "deploy", Conclusion: "failure"},
			{Name: "Release pipeline", Conclusion: "success"},
			{Name: "CI", Conclusion: "failure"}, // not a deploy run
		},
		Commits: []models.CommitRecord{{Message: "revert everything"}},
	}
	// 1 failure among 3 deploy-labeled runs; revert commits are ignored
	// when run data exists.
	assert.InDelta(t, 100.0/3.0, changeFailureRate(in), 1e-9)
}

func TestChangeFailureRateRevertFallback(t *testing.T) {
	in := Inputs{
		Commits: []models.CommitRecord{
			{Message: "feat: add thing"},
			{Message: "Revert \"feat: add thing\""},
			{Message: "docs: update readme"},
			{Message: "chore: bump deps"},
		},
	}
	assert.InDelta(t, 25.0, changeFailureRate(in), 1e-9)
}

func TestChangeFailureRateNoData(t *testing.T) {
	assert.Equal(t, 0.0, changeFailureRate(Inputs{}))
}

func TestMeanTimeToRecoverFromFixCommits(t *testing.T) {
	base := now.Add(-100 * time.Hour)
	in := Inputs{
		Commits: []models.CommitRecord{
			{Message: "fix: first", AuthoredAt: base},
			{Message: "fix: second", AuthoredAt: base.Add(2 * time.Hour)},
			{Message: "fix: third", AuthoredAt: base.Add(4 * time.Hour)},
			{Message: "fix: amended", AuthoredAt: base.Add(4*time.Hour + 30*time.Minute)}, // < 1h gap, ignored
			{Message: "feat: unrelated", AuthoredAt: base.Add(5 * time.Hour)},
		},
	}
	assert.InDelta(t, 2.0, meanTimeToRecover(in), 1e-9)
}

func TestMeanTimeToRecoverPRFallback(t *testing.T) {
	created := now.Add(-50 * time.Hour)
	in := Inputs{
		Commits: []models.CommitRecord{{Message: "feat: no recoveries here", AuthoredAt: now}},
		PullRequests: []models.PullRequestRecord{
			{Number: 1, Title: "Fix crash on startup", CreatedAt: created, MergedAt: mergedAt(created.Add(6 * time.Hour))},
			{Number: 2, Title: "Add feature", CreatedAt: created, MergedAt: mergedAt(created.Add(100 * time.Hour))},
		},
	}
	assert.InDelta(t, 6.0, meanTimeToRecover(in), 1e-9)
}

func TestMeanTimeToRecoverDefault(t *testing.T) {
	assert.Equal(t, defaultRecoveryHours, meanTimeToRecover(Inputs{}))
}

func TestScorePoints(t *testing.T) {
	// 2/week = 20 pts, 10h lead = 25 pts, 0% failures = 25 pts,
	// 2h recovery = 14 pts.
	assert.Equal(t, 84, scorePoints(2, 10, 0, 2))

	// Component floors and the frequency cap.
	assert.Equal(t, 30, scorePoints(100, 1000, 100, 1000))
	assert.Equal(t, 0, scorePoints(0, 1000, 100, 1000))
}

func TestEstimateDeterministic(t *testing.T) {
	in := Inputs{
		Commits: []models.CommitRecord{
			{Message: "fix: correct bug", AuthoredAt: now.Add(-10 * time.Hour)},
		},
		Releases: []models.ReleaseRecord{
			{TagName: "v1.0", PublishedAt: now.Add(-7 * 24 * time.Hour)},
		},
	}
	first := Estimate(in, now)
	second := Estimate(in, now)
	assert.Equal(t, first, second)

	assert.GreaterOrEqual(t, first.Score, 0)
	assert.LessOrEqual(t, first.Score, 100)
	assert.NotEmpty(t, first.Recommendations)
}
