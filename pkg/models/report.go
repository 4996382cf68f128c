package models

import (
	"time"
)

// HealthReport is the top-level canonical output structure.
// It is built exactly once per Generate call and never mutated afterward.
type HealthReport struct {
	Repository RepositorySnapshot `json:"repository"`
	Code       CodeMetrics        `json:"code_metrics"`
	Quality    CodeQuality        `json:"code_quality"`
	Debt       TechnicalDebt      `json:"technical_debt"`
	Deployment DeploymentMetrics  `json:"deployment"`

	// OverallScore is the weighted blend of the three section scores.
	OverallScore int `json:"overall_score"`
	// BenchmarkScore is a notional industry-average comparison point.
	// Deterministic: a lookup by primary language and size bucket, standing
	// in for a real benchmark dataset.
	BenchmarkScore int       `json:"benchmark_score"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// RepositorySnapshot is the repository metadata every estimator depends on,
// at minimum for age and size. Fetched once per report.
type RepositorySnapshot struct {
	Owner           string    `json:"owner"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	Description     string    `json:"description,omitempty"`
	SizeKB          int       `json:"size_kb"`
	PrimaryLanguage string    `json:"primary_language,omitempty"`
	DefaultBranch   string    `json:"default_branch,omitempty"`
	Stars           int       `json:"stars"`
	Forks           int       `json:"forks"`
	OpenIssues      int       `json:"open_issues"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	PushedAt        time.Time `json:"pushed_at"`
}

// AgeMonths returns the repository age in (fractional) months at t.
func (r RepositorySnapshot) AgeMonths(t time.Time) float64 {
	if r.CreatedAt.IsZero() || !t.After(r.CreatedAt) {
		return 0
	}
	return t.Sub(r.CreatedAt).Hours() / (24 * 30)
}

// CommitRecord is a single commit as returned by the forge, reverse
// chronological. Only message heuristics and time deltas consume it;
// the list is paginated and must not be assumed complete.
type CommitRecord struct {
	SHA         string    `json:"sha"`
	AuthorName  string    `json:"author_name,omitempty"`
	AuthorEmail string    `json:"author_email,omitempty"`
	AuthoredAt  time.Time `json:"authored_at"`
	Message     string    `json:"message"`
}

// PullRequestRecord carries the subset of PR fields the estimators read.
// Optional fields may be absent depending on forge privileges.
type PullRequestRecord struct {
	Number         int        `json:"number"`
	State          string     `json:"state"`
	Title          string     `json:"title"`
	CreatedAt      time.Time  `json:"created_at"`
	MergedAt       *time.Time `json:"merged_at,omitempty"`
	Comments       int        `json:"comments"`
	ReviewComments int        `json:"review_comments"`
}

// IssueRecord is fetched but only partially consumed: the estimators use
// count and age only.
type IssueRecord struct {
	Number    int        `json:"number"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	Labels    []string   `json:"labels,omitempty"`
}

type WorkflowRunRecord struct {
	Name       string    `json:"name"`
	Conclusion string    `json:"conclusion"` // success, failure, cancelled, ...
	Event      string    `json:"event"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ReleaseRecord struct {
	TagName     string    `json:"tag_name"`
	PublishedAt time.Time `json:"published_at"`
}

type ContributorRecord struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

// DirectoryEntry is one entry of a directory listing.
type DirectoryEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // "file" or "dir"
}

// LanguageBreakdown maps language name to byte count. Keys are unique and
// carry no defined order; consumers sort by value themselves.
type LanguageBreakdown map[string]int

// WeeklyCodeFrequency is one week of the forge's code frequency stats.
type WeeklyCodeFrequency struct {
	WeekStart time.Time `json:"week_start"`
	Additions int       `json:"additions"`
	Deletions int       `json:"deletions"`
}

// RateLimit is the forge-side quota as reported by the rate limit endpoint.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// CodeMetrics are order-of-magnitude proxies derived from repository size,
// not measurements.
type CodeMetrics struct {
	TotalLines   int               `json:"total_lines"`
	CodeLines    int               `json:"code_lines"`
	CommentLines int               `json:"comment_lines"`
	BlankLines   int               `json:"blank_lines"`
	FileCount    int               `json:"file_count"`
	Languages    LanguageBreakdown `json:"languages"`
}

// IssueCounts buckets estimated issues by severity.
type IssueCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

type CodeQuality struct {
	Score int `json:"score"` // 0..100
	// CommitMessageScore is the normalized commit hygiene score in [0,1]
	// that Score derives from.
	CommitMessageScore float64     `json:"commit_message_score"`
	Issues             IssueCounts `json:"issues"`
	Recommendations    []string    `json:"recommendations"`
}

// DebtMetrics are the technical-debt sub-metrics.
type DebtMetrics struct {
	ComplexityScore      float64 `json:"complexity_score"`      // 0..1
	Duplications         float64 `json:"duplications"`          // percent, 0..40
	TestCoverage         float64 `json:"test_coverage"`         // percent, 0..95
	OutdatedDependencies int     `json:"outdated_dependencies"` // 0..20
}

type TechnicalDebt struct {
	Score           int         `json:"score"` // 0..100
	Metrics         DebtMetrics `json:"metrics"`
	Recommendations []string    `json:"recommendations"`
}

type DeploymentMetrics struct {
	Frequency         float64  `json:"frequency"`            // deployments/week, >= 0
	LeadTimeHours     float64  `json:"lead_time_hours"`      // >= 0
	ChangeFailureRate float64  `json:"change_failure_rate"`  // percent, 0..100
	MeanTimeToRecover float64  `json:"mean_time_to_recover"` // hours, >= 0
	Score             int      `json:"score"`                // 0..100
	Recommendations   []string `json:"recommendations"`
}
