// Package report orchestrates health-report generation: it fans the
// per-estimator fetches out through the forge client, runs the pure
// estimators over the results, and assembles the final immutable
// HealthReport. Rendering lives in this package too.
package report

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/repovitals/repovitals/internal/analysis"
	"github.com/repovitals/repovitals/internal/analysis/estimators/codemetrics"
	"github.com/repovitals/repovitals/internal/analysis/estimators/debt"
	"github.com/repovitals/repovitals/internal/analysis/estimators/deploy"
	"github.com/repovitals/repovitals/internal/analysis/estimators/quality"
	"github.com/repovitals/repovitals/internal/forge"
	"github.com/repovitals/repovitals/pkg/benchmark"
	"github.com/repovitals/repovitals/pkg/models"
)

// Weights blend the three section scores into the overall score.
type Weights struct {
	Quality    float64
	Debt       float64
	Deployment float64
}

func DefaultWeights() Weights {
	return Weights{Quality: 0.3, Debt: 0.4, Deployment: 0.3}
}

// Generator runs the report pipeline. The zero value is not usable; set
// Client at minimum.
type Generator struct {
	Client  analysis.Client
	Limits  analysis.Limits
	Weights Weights

	// BenchmarkOverride pins the benchmark score when > 0.
	BenchmarkOverride int

	// Now is the clock; nil means time.Now. Tests pin it.
	Now func() time.Time
}

// Generate produces the health report for one repository. It fails fast:
// the first fatal fetch error (rate-limit exhaustion included) cancels
// all outstanding sibling fetches and is returned unchanged. There is no
// retry at this level and never a partial report.
func Generate(ctx context.Context, client analysis.Client, owner, repo string) (*models.HealthReport, error) {
	g := &Generator{Client: client, Limits: analysis.DefaultLimits(), Weights: DefaultWeights()}
	return g.Generate(ctx, owner, repo)
}

func (g *Generator) Generate(ctx context.Context, owner, repo string) (*models.HealthReport, error) {
	limits := g.Limits
	if limits == (analysis.Limits{}) {
		limits = analysis.DefaultLimits()
	}
	weights := g.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	// The snapshot is the one hard dependency of every estimator.
	snapshot, err := g.Client.GetRepository(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	inputs, err := g.fetchInputs(ctx, owner, repo, snapshot, limits)
	if err != nil {
		return nil, err
	}

	// Estimators are pure; everything below is deterministic for a fixed
	// clock.
	at := now()
	code := codemetrics.Estimate(inputs.Snapshot, inputs.Languages)
	qual := quality.Estimate(inputs.Commits)
	techDebt := debt.Estimate(debt.Inputs{
		Snapshot:        inputs.Snapshot,
		Commits:         inputs.Commits,
		PullRequests:    inputs.PullRequests,
		Languages:       inputs.Languages,
		RootEntries:     inputs.RootEntries,
		ManifestName:    inputs.ManifestName,
		ManifestContent: inputs.ManifestContent,
		HasCIWorkflows:  inputs.HasCIWorkflows,
	}, at)
	deployment := deploy.Estimate(deploy.Inputs{
		Commits:      inputs.Commits,
		PullRequests: inputs.PullRequests,
		Releases:     inputs.Releases,
		WorkflowRuns: inputs.WorkflowRuns,
	}, at)

	overall := int(math.Floor(
		weights.Quality*float64(qual.Score) +
			weights.Debt*float64(techDebt.Score) +
			weights.Deployment*float64(deployment.Score)))

	bench := g.BenchmarkOverride
	if bench <= 0 {
		bench = benchmark.Score(snapshot.PrimaryLanguage, snapshot.SizeKB)
	}

	return &models.HealthReport{
		Repository:     *snapshot,
		Code:           code,
		Quality:        qual,
		Debt:           techDebt,
		Deployment:     deployment,
		OverallScore:   overall,
		BenchmarkScore: bench,
		GeneratedAt:    at,
	}, nil
}

// fetchInputs gathers every secondary resource concurrently. The fetches
// are independent of each other, so they run under one errgroup: the
// first error cancels the rest, which keeps a detected rate-limit
// exhaustion from burning the remaining quota.
func (g *Generator) fetchInputs(ctx context.Context, owner, repo string, snapshot *models.RepositorySnapshot, limits analysis.Limits) (*analysis.Inputs, error) {
	inputs := &analysis.Inputs{Snapshot: snapshot}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		commits, err := g.Client.GetCommits(ctx, owner, repo, limits.Commits)
		if err != nil {
			return err
		}
		inputs.Commits = commits
		return nil
	})

	eg.Go(func() error {
		languages, err := g.Client.GetLanguages(ctx, owner, repo)
		if err != nil {
			return err
		}
		inputs.Languages = languages
		return nil
	})

	eg.Go(func() error {
		pulls, err := g.Client.GetPullRequests(ctx, owner, repo, "closed", limits.PullRequests)
		if err != nil {
			return err
		}
		inputs.PullRequests = pulls
		return nil
	})

	eg.Go(func() error {
		issues, err := g.Client.GetIssues(ctx, owner, repo, "open", limits.Issues)
		if err != nil {
			return err
		}
		inputs.Issues = issues
		return nil
	})

	eg.Go(func() error {
		releases, err := g.Client.GetReleases(ctx, owner, repo, limits.Releases)
		if err != nil {
			return err
		}
		inputs.Releases = releases
		return nil
	})

	eg.Go(func() error {
		runs, err := g.Client.GetWorkflowRuns(ctx, owner, repo)
		if err != nil {
			return err
		}
		inputs.WorkflowRuns = runs
		return nil
	})

	// Root listing, then the first manifest's content. Sequential inside
	// one goroutine since the second fetch depends on the first.
	eg.Go(func() error {
		entries, err := g.Client.GetDirectoryContents(ctx, owner, repo, "")
		if err != nil {
			if errors.Is(err, forge.ErrNotFound) {
				return nil // empty repository
			}
			return err
		}
		inputs.RootEntries = entries

		manifest := debt.FirstManifest(entries)
		if manifest == "" {
			return nil
		}
		content, err := g.Client.GetFileContent(ctx, owner, repo, manifest)
		if err != nil {
			if errors.Is(err, forge.ErrNotFound) {
				return nil // listed but gone; treat as absent
			}
			return err
		}
		inputs.ManifestName = manifest
		inputs.ManifestContent = content
		return nil
	})

	eg.Go(func() error {
		entries, err := g.Client.GetDirectoryContents(ctx, owner, repo, ".github/workflows")
		if err != nil {
			if errors.Is(err, forge.ErrNotFound) {
				return nil
			}
			return err
		}
		inputs.HasCIWorkflows = len(entries) > 0
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}
