// Package analysis defines the boundary between the report pipeline and
// the forge: the Client interface the aggregator fetches through, the
// bundle of fetched inputs the estimators consume, and the fetch limits
// that bound API cost.
package analysis

import (
	"context"

	"github.com/repovitals/repovitals/pkg/models"
)

// Client is the subset of forge operations the report pipeline needs.
// All methods are read-only; implementations must be safe for concurrent
// use since the aggregator fans fetches out in parallel.
type Client interface {
	GetRepository(ctx context.Context, owner, repo string) (*models.RepositorySnapshot, error)
	GetCommits(ctx context.Context, owner, repo string, count int) ([]models.CommitRecord, error)
	GetLanguages(ctx context.Context, owner, repo string) (models.LanguageBreakdown, error)
	GetContributors(ctx context.Context, owner, repo string) ([]models.ContributorRecord, error)
	GetFileContent(ctx context.Context, owner, repo, path string) (string, error)
	GetDirectoryContents(ctx context.Context, owner, repo, path string) ([]models.DirectoryEntry, error)
	GetWorkflowRuns(ctx context.Context, owner, repo string) ([]models.WorkflowRunRecord, error)
	GetPullRequests(ctx context.Context, owner, repo, state string, count int) ([]models.PullRequestRecord, error)
	GetIssues(ctx context.Context, owner, repo, state string, count int) ([]models.IssueRecord, error)
	GetReleases(ctx context.Context, owner, repo string, count int) ([]models.ReleaseRecord, error)
	GetCodeFrequencyStats(ctx context.Context, owner, repo string) ([]models.WeeklyCodeFrequency, error)
	GetRateLimit(ctx context.Context) (*models.RateLimit, error)
}

// Target locates the repository under analysis.
type Target struct {
	Owner string
	Name  string
}

// Limits bounds how much the pipeline fetches per report. These cap API
// cost, not correctness: every estimate is defined over a bounded sample.
type Limits struct {
	Commits      int // recent commits for message scoring and time deltas
	PullRequests int // recent closed PRs for engagement and lead time
	Issues       int // recent open issues
	Releases     int // recent releases
}

// DefaultLimits match the sample sizes the scoring formulas assume
// (commit scoring wants at least 30 messages).
func DefaultLimits() Limits {
	return Limits{
		Commits:      50,
		PullRequests: 30,
		Issues:       30,
		Releases:     20,
	}
}

// Inputs is everything the estimators consume, fetched once per report.
// Estimators are pure functions over this value; nothing here is mutated
// after the fetch phase completes.
type Inputs struct {
	Snapshot     *models.RepositorySnapshot
	Commits      []models.CommitRecord
	Languages    models.LanguageBreakdown
	PullRequests []models.PullRequestRecord
	Issues       []models.IssueRecord
	Releases     []models.ReleaseRecord
	WorkflowRuns []models.WorkflowRunRecord

	// RootEntries is the repository root listing, used for test and
	// manifest signature probing. Empty when the listing was unavailable.
	RootEntries []models.DirectoryEntry
	// ManifestName/ManifestContent carry the first dependency manifest
	// found at the root and its decoded content; both empty when absent.
	ManifestName    string
	ManifestContent string
	// HasCIWorkflows is true when .github/workflows exists and is
	// non-empty.
	HasCIWorkflows bool
}
