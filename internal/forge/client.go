// Package forge provides typed, rate-limit-aware access to a
// GitHub-compatible REST API. It isolates all transport and authorization
// concerns from the scoring logic: payloads are converted into pkg/models
// value types, quota exhaustion becomes a distinguished *RateLimitError,
// and endpoints that need elevated scopes degrade to empty results for
// unauthenticated clients.
package forge

import (
	"context"
	"errors"
	"math"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
	"golang.org/x/time/rate"

	"github.com/repovitals/repovitals/pkg/models"
)

const (
	defaultTimeout = 30 * time.Second

	// Request pacing. GitHub enforces the real quota server-side; the
	// local limiter only keeps a single report run from stampeding it.
	defaultRequestsPerSecond = 8
	defaultBurst             = 16

	maxRetries         = 3
	retryBackoffBase   = 1 * time.Second
	maxBackoffDuration = 30 * time.Second
)

// endpoint describes one forge operation and its degradation policy.
type endpoint struct {
	name string
	// requiresElevatedScope marks operations the forge refuses for
	// unauthenticated clients. A 401/403 refusal on such an endpoint
	// without a token degrades to the operation's empty result so the
	// engine stays usable against public repositories, at reduced
	// fidelity. New endpoints inherit the policy by declaration.
	requiresElevatedScope bool
}

var (
	epRepository    = endpoint{name: "repos.get"}
	epCommits       = endpoint{name: "repos.commits"}
	epLanguages     = endpoint{name: "repos.languages"}
	epContributors  = endpoint{name: "repos.contributors"}
	epContents      = endpoint{name: "repos.contents"}
	epWorkflowRuns  = endpoint{name: "actions.runs", requiresElevatedScope: true}
	epPullRequests  = endpoint{name: "pulls.list", requiresElevatedScope: true}
	epIssues        = endpoint{name: "issues.list", requiresElevatedScope: true}
	epReleases      = endpoint{name: "repos.releases"}
	epCodeFrequency = endpoint{name: "repos.stats.code_frequency"}
	epRateLimit     = endpoint{name: "rate_limit"}
)

// Client wraps the google/go-github client. It holds no mutable state
// beyond the immutable token and is safe for concurrent use by the
// aggregator's parallel fetches.
type Client struct {
	gh      *github.Client
	token   string
	limiter *rate.Limiter
}

// Options configures a Client. The zero value of each field selects a
// sensible default.
type Options struct {
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	// BaseURL overrides the API endpoint, used by tests and GHE setups.
	BaseURL string
}

// NewClient creates a client with default options. An empty token is a
// valid, supported mode: public access under the low unauthenticated
// rate limit.
func NewClient(token string) *Client {
	return New(Options{Token: token})
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	httpClient := &http.Client{Timeout: timeout}
	gh := github.NewClient(httpClient)
	if opts.Token != "" {
		gh = gh.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		if u, err := gh.BaseURL.Parse(base); err == nil {
			gh.BaseURL = u
		}
	}

	return &Client{
		gh:      gh,
		token:   opts.Token,
		limiter: rate.NewLimiter(rate.Limit(rps), defaultBurst),
	}
}

// ResolveToken attempts to find a GitHub token from:
// 1. The explicit value (flag or config file)
// 2. "gh auth token"
// 3. GITHUB_TOKEN environment variable
func ResolveToken(configToken string) string {
	if configToken != "" {
		return configToken
	}

	cmd := exec.Command("gh", "auth", "token")
	out, err := cmd.Output()
	if err == nil {
		token := strings.TrimSpace(string(out))
		if token != "" {
			return token
		}
	}

	return os.Getenv("GITHUB_TOKEN")
}

// Authenticated reports whether the client carries a token.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// degrades reports whether err on ep should be softened to an empty result
// instead of failing the report.
func (c *Client) degrades(ep endpoint, err error) bool {
	if !ep.requiresElevatedScope || c.token != "" {
		return false
	}
	var ae *AuthError
	return errors.As(err, &ae)
}

// call runs one API operation with pacing, bounded retry for transient
// 5xx failures, and error classification. Rate-limit errors are returned
// immediately, never retried.
func call[T any](ctx context.Context, c *Client, ep endpoint, fn func() (T, *github.Response, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, err
		}

		v, resp, err := fn()
		if err == nil {
			return v, nil
		}

		if isTransient(resp, err) && attempt < maxRetries-1 {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * retryBackoffBase
			if backoff > maxBackoffDuration {
				backoff = maxBackoffDuration
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}

		return zero, classify(ep.name, err)
	}
}

// GetRepository fetches the repository snapshot, the one hard dependency
// of every estimator.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*models.RepositorySnapshot, error) {
	r, err := call(ctx, c, epRepository, func() (*github.Repository, *github.Response, error) {
		return c.gh.Repositories.Get(ctx, owner, repo)
	})
	if err != nil {
		return nil, err
	}

	return &models.RepositorySnapshot{
		Owner:           r.GetOwner().GetLogin(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		AvatarURL:       r.GetOwner().GetAvatarURL(),
		Description:     r.GetDescription(),
		SizeKB:          r.GetSize(),
		PrimaryLanguage: r.GetLanguage(),
		DefaultBranch:   r.GetDefaultBranch(),
		Stars:           r.GetStargazersCount(),
		Forks:           r.GetForksCount(),
		OpenIssues:      r.GetOpenIssuesCount(),
		CreatedAt:       r.GetCreatedAt().Time,
		UpdatedAt:       r.GetUpdatedAt().Time,
		PushedAt:        r.GetPushedAt().Time,
	}, nil
}

// GetCommits returns up to count recent commits in the forge's native
// reverse-chronological order. Lead-time and recovery calculations depend
// on that ordering being preserved.
func (c *Client) GetCommits(ctx context.Context, owner, repo string, count int) ([]models.CommitRecord, error) {
	opts := &github.CommitsListOptions{ListOptions: github.ListOptions{PerPage: perPage(count)}}
	commits, err := call(ctx, c, epCommits, func() ([]*github.RepositoryCommit, *github.Response, error) {
		return c.gh.Repositories.ListCommits(ctx, owner, repo, opts)
	})
	if err != nil {
		return nil, err
	}

	records := make([]models.CommitRecord, 0, len(commits))
	for _, rc := range commits {
		if len(records) >= count {
			break
		}
		commit := rc.GetCommit()
		records = append(records, models.CommitRecord{
			SHA:         rc.GetSHA(),
			AuthorName:  commit.GetAuthor().GetName(),
			AuthorEmail: commit.GetAuthor().GetEmail(),
			AuthoredAt:  commit.GetAuthor().GetDate().Time,
			Message:     commit.GetMessage(),
		})
	}
	return records, nil
}

func (c *Client) GetLanguages(ctx context.Context, owner, repo string) (models.LanguageBreakdown, error) {
	langs, err := call(ctx, c, epLanguages, func() (map[string]int, *github.Response, error) {
		return c.gh.Repositories.ListLanguages(ctx, owner, repo)
	})
	if err != nil {
		return nil, err
	}
	return models.LanguageBreakdown(langs), nil
}

func (c *Client) GetContributors(ctx context.Context, owner, repo string) ([]models.ContributorRecord, error) {
	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	contributors, err := call(ctx, c, epContributors, func() ([]*github.Contributor, *github.Response, error) {
		return c.gh.Repositories.ListContributors(ctx, owner, repo, opts)
	})
	if err != nil {
		return nil, err
	}

	records := make([]models.ContributorRecord, 0, len(contributors))
	for _, contrib := range contributors {
		records = append(records, models.ContributorRecord{
			Login:         contrib.GetLogin(),
			Contributions: contrib.GetContributions(),
		})
	}
	return records, nil
}

// GetFileContent returns the decoded content of a file. A missing path is
// reported as ErrNotFound, which callers treat as "absent".
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path string) (string, error) {
	file, err := call(ctx, c, epContents, func() (*github.RepositoryContent, *github.Response, error) {
		f, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
		return f, resp, err
	})
	if err != nil {
		return "", err
	}
	if file == nil {
		// The path resolved to a directory.
		return "", ErrNotFound
	}
	content, err := file.GetContent()
	if err != nil {
		return "", classify(epContents.name, err)
	}
	return content, nil
}

// GetDirectoryContents lists a directory. Pass "" for the repository root.
// A missing path is reported as ErrNotFound.
func (c *Client) GetDirectoryContents(ctx context.Context, owner, repo, path string) ([]models.DirectoryEntry, error) {
	dir, err := call(ctx, c, epContents, func() ([]*github.RepositoryContent, *github.Response, error) {
		_, d, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
		return d, resp, err
	})
	if err != nil {
		return nil, err
	}
	if dir == nil {
		return nil, ErrNotFound
	}

	entries := make([]models.DirectoryEntry, 0, len(dir))
	for _, entry := range dir {
		entries = append(entries, models.DirectoryEntry{
			Name: entry.GetName(),
			Path: entry.GetPath(),
			Type: entry.GetType(),
		})
	}
	return entries, nil
}

// GetWorkflowRuns returns recent workflow runs. Unauthenticated refusals
// degrade to an empty list.
func (c *Client) GetWorkflowRuns(ctx context.Context, owner, repo string) ([]models.WorkflowRunRecord, error) {
	opts := &github.ListWorkflowRunsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	runs, err := call(ctx, c, epWorkflowRuns, func() (*github.WorkflowRuns, *github.Response, error) {
		return c.gh.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo, opts)
	})
	if err != nil {
		if c.degrades(epWorkflowRuns, err) {
			return []models.WorkflowRunRecord{}, nil
		}
		return nil, err
	}

	records := make([]models.WorkflowRunRecord, 0, len(runs.WorkflowRuns))
	for _, run := range runs.WorkflowRuns {
		records = append(records, models.WorkflowRunRecord{
			Name:       run.GetName(),
			Conclusion: run.GetConclusion(),
			Event:      run.GetEvent(),
			CreatedAt:  run.GetCreatedAt().Time,
			UpdatedAt:  run.GetUpdatedAt().Time,
		})
	}
	return records, nil
}

// GetPullRequests returns up to count pull requests in the given state
// ("open", "closed", "all"). Unauthenticated refusals degrade to an empty
// list.
func (c *Client) GetPullRequests(ctx context.Context, owner, repo, state string, count int) ([]models.PullRequestRecord, error) {
	opts := &github.PullRequestListOptions{
		State:       state,
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: perPage(count)},
	}
	prs, err := call(ctx, c, epPullRequests, func() ([]*github.PullRequest, *github.Response, error) {
		return c.gh.PullRequests.List(ctx, owner, repo, opts)
	})
	if err != nil {
		if c.degrades(epPullRequests, err) {
			return []models.PullRequestRecord{}, nil
		}
		return nil, err
	}

	records := make([]models.PullRequestRecord, 0, len(prs))
	for _, pr := range prs {
		if len(records) >= count {
			break
		}
		record := models.PullRequestRecord{
			Number:         pr.GetNumber(),
			State:          pr.GetState(),
			Title:          pr.GetTitle(),
			CreatedAt:      pr.GetCreatedAt().Time,
			Comments:       pr.GetComments(),
			ReviewComments: pr.GetReviewComments(),
		}
		if pr.MergedAt != nil {
			merged := pr.MergedAt.Time
			record.MergedAt = &merged
		}
		records = append(records, record)
	}
	return records, nil
}

// GetIssues returns up to count issues in the given state, excluding pull
// requests. Unauthenticated refusals degrade to an empty list.
func (c *Client) GetIssues(ctx context.Context, owner, repo, state string, count int) ([]models.IssueRecord, error) {
	opts := &github.IssueListByRepoOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: perPage(count)},
	}
	issues, err := call(ctx, c, epIssues, func() ([]*github.Issue, *github.Response, error) {
		return c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
	})
	if err != nil {
		if c.degrades(epIssues, err) {
			return []models.IssueRecord{}, nil
		}
		return nil, err
	}

	records := make([]models.IssueRecord, 0, len(issues))
	for _, issue := range issues {
		// The issues endpoint also returns pull requests.
		if issue.IsPullRequest() {
			continue
		}
		if len(records) >= count {
			break
		}
		record := models.IssueRecord{
			Number:    issue.GetNumber(),
			State:     issue.GetState(),
			CreatedAt: issue.GetCreatedAt().Time,
		}
		if issue.ClosedAt != nil {
			closed := issue.ClosedAt.Time
			record.ClosedAt = &closed
		}
		for _, label := range issue.Labels {
			record.Labels = append(record.Labels, label.GetName())
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *Client) GetReleases(ctx context.Context, owner, repo string, count int) ([]models.ReleaseRecord, error) {
	opts := &github.ListOptions{PerPage: perPage(count)}
	releases, err := call(ctx, c, epReleases, func() ([]*github.RepositoryRelease, *github.Response, error) {
		return c.gh.Repositories.ListReleases(ctx, owner, repo, opts)
	})
	if err != nil {
		return nil, err
	}

	records := make([]models.ReleaseRecord, 0, len(releases))
	for _, rel := range releases {
		if len(records) >= count {
			break
		}
		published := rel.GetPublishedAt().Time
		if published.IsZero() {
			published = rel.GetCreatedAt().Time
		}
		records = append(records, models.ReleaseRecord{
			TagName:     rel.GetTagName(),
			PublishedAt: published,
		})
	}
	return records, nil
}

// GetCodeFrequencyStats returns weekly addition/deletion totals. GitHub
// computes these lazily; a 202 means "still computing" and surfaces as an
// empty slice.
func (c *Client) GetCodeFrequencyStats(ctx context.Context, owner, repo string) ([]models.WeeklyCodeFrequency, error) {
	stats, err := call(ctx, c, epCodeFrequency, func() ([]*github.WeeklyStats, *github.Response, error) {
		return c.gh.Repositories.ListCodeFrequency(ctx, owner, repo)
	})
	if err != nil {
		var aerr *github.AcceptedError
		if errors.As(err, &aerr) {
			return []models.WeeklyCodeFrequency{}, nil
		}
		return nil, err
	}

	records := make([]models.WeeklyCodeFrequency, 0, len(stats))
	for _, ws := range stats {
		records = append(records, models.WeeklyCodeFrequency{
			WeekStart: ws.GetWeek().Time,
			Additions: ws.GetAdditions(),
			Deletions: ws.GetDeletions(),
		})
	}
	return records, nil
}

// GetRateLimit returns the current core quota. Also used to validate
// tokens during auth.
func (c *Client) GetRateLimit(ctx context.Context) (*models.RateLimit, error) {
	limits, err := call(ctx, c, epRateLimit, func() (*github.RateLimits, *github.Response, error) {
		return c.gh.RateLimit.Get(ctx)
	})
	if err != nil {
		return nil, err
	}
	core := limits.GetCore()
	return &models.RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

func perPage(count int) int {
	if count <= 0 || count > 100 {
		return 100
	}
	return count
}
