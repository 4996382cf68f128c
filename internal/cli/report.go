package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/repovitals/repovitals/internal/analysis"
	"github.com/repovitals/repovitals/internal/config"
	"github.com/repovitals/repovitals/internal/forge"
	"github.com/repovitals/repovitals/internal/report"
	"github.com/repovitals/repovitals/pkg/models"
)

type reportResult struct {
	repo   string
	report *models.HealthReport
	err    error
}

func runReport(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	targets, err := parseTargets(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	token := forge.ResolveToken(firstNonEmpty(flagToken, cfg.Global.GitHubToken))
	if token == "" && shouldPrintInfo() {
		fmt.Fprintln(os.Stderr, "⚠️  No GitHub token found. Running unauthenticated: 60 requests/hour, and pull requests, issues, and workflow runs will be unavailable.")
	}

	client := forge.New(forge.Options{
		Token:             token,
		Timeout:           time.Duration(cfg.Global.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.Global.RequestsPerSecond,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := &report.Generator{
		Client: client,
		Limits: analysis.Limits{
			Commits:      cfg.Limits.Commits,
			PullRequests: cfg.Limits.PullRequests,
			Issues:       cfg.Limits.Issues,
			Releases:     cfg.Limits.Releases,
		},
		Weights: report.Weights{
			Quality:    cfg.Scoring.QualityWeight,
			Debt:       cfg.Scoring.DebtWeight,
			Deployment: cfg.Scoring.DeploymentWeight,
		},
		BenchmarkOverride: cfg.Scoring.BenchmarkOverride,
	}

	results := generateAll(ctx, gen, targets, cfg.Global.Concurrency)

	renderer := report.NewRenderer(report.Format(flagFormat))
	failed := false
	belowThreshold := false
	for _, res := range results {
		if res.err != nil {
			failed = true
			printReportError(res.repo, res.err)
			continue
		}
		if err := renderer.Render(res.report, os.Stdout); err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "Error rendering %s: %v\n", res.repo, err)
			continue
		}
		if flagFail > 0 && res.report.OverallScore < flagFail {
			belowThreshold = true
			fmt.Fprintf(os.Stderr, "❌ %s scored %d, below threshold %d\n", res.repo, res.report.OverallScore, flagFail)
		}
	}

	if failed || belowThreshold {
		os.Exit(1)
	}
}

// generateAll runs the pipeline for every target under a bounded worker
// pool. Results come back in input order regardless of completion order.
func generateAll(ctx context.Context, gen *report.Generator, targets []analysis.Target, concurrency int) []reportResult {
	if concurrency < 1 {
		concurrency = 1
	}

	var bar *progressbar.ProgressBar
	if len(targets) > 1 && shouldPrintInfo() {
		bar = progressbar.NewOptions(len(targets),
			progressbar.OptionSetDescription("Generating reports"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionShowCount(),
		)
	}

	results := make([]reportResult, len(targets))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		go func(i int, target analysis.Target) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rep, err := gen.Generate(ctx, target.Owner, target.Name)
			results[i] = reportResult{
				repo:   target.Owner + "/" + target.Name,
				report: rep,
				err:    err,
			}
			if bar != nil {
				_ = bar.Add(1)
			}
		}(i, target)
	}
	wg.Wait()
	if bar != nil {
		_ = bar.Finish()
	}
	return results
}

func printReportError(repo string, err error) {
	var rl *forge.RateLimitError
	switch {
	case errors.As(err, &rl):
		fmt.Fprintf(os.Stderr, "⛔ %s: GitHub API rate limit exceeded (limit %d).\n", repo, rl.Limit)
		if wait := time.Until(rl.ResetTime); wait > 0 {
			fmt.Fprintf(os.Stderr, "   Quota resets in %s (at %s).\n",
				wait.Round(time.Second), rl.ResetTime.Local().Format("15:04:05"))
		}
		fmt.Fprintln(os.Stderr, "   Run 'repovitals auth' or pass --token to raise the limit to 5000/hour.")
	case errors.Is(err, forge.ErrNotFound):
		fmt.Fprintf(os.Stderr, "Error: repository %s not found (check the name, or authenticate if it is private)\n", repo)
	default:
		fmt.Fprintf(os.Stderr, "Error generating report for %s: %v\n", repo, err)
	}
}

func parseTargets(args []string) ([]analysis.Target, error) {
	targets := make([]analysis.Target, 0, len(args))
	for _, arg := range args {
		owner, name, ok := strings.Cut(strings.TrimSuffix(arg, ".git"), "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return nil, fmt.Errorf("invalid repository %q: expected owner/repo", arg)
		}
		targets = append(targets, analysis.Target{Owner: owner, Name: name})
	}
	return targets, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
