// Package debt estimates technical debt without any real static analysis.
// Complexity is inferred from commit hygiene and review engagement,
// duplication from repository age and language spread, test coverage from
// filesystem and manifest signatures, and outdated dependencies from
// manifest size times age. Every constant is a tunable heuristic, not a
// discovered truth.
package debt

import (
	"encoding/json"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/repovitals/repovitals/internal/analysis/estimators/quality"
	"github.com/repovitals/repovitals/pkg/models"
)

// Complexity blend weights: poor commit hygiene counts for more than low
// review engagement.
const (
	complexityCommitWeight = 0.6
	complexityReviewWeight = 0.4
	// neutralEngagement is assumed when no PRs were sampled (e.g. the
	// tokenless degrade path). An empty degraded result must not read as
	// "nothing is ever reviewed".
	neutralEngagement = 0.5
)

// Duplication heuristics: ~1% per month of age up to 25%, plus 2% per
// language beyond the third, capped at 40% overall.
const (
	duplicationPerMonth  = 1.0
	duplicationAgeCap    = 25.0
	duplicationPerLang   = 2.0
	duplicationTotalCap  = 40.0
	duplicationFreeLangs = 3
)

// Coverage signal increments, capped at 95%. A repo with no signal at all
// floors at 5% rather than 0 to reflect estimation uncertainty.
const (
	coverageNameHit     = 15.0
	coverageScriptHit   = 20.0
	coverageCIHit       = 10.0
	coverageCap         = 95.0
	coverageFloor       = 5.0
	coverageNameHitsMax = 3 // at most three name-based increments count
)

// Outdated dependencies grow with manifest size times repository age.
const (
	outdatedPerDepMonth = 0.015
	outdatedCap         = 20
	// nominalDepCount feeds the formula for manifest types we detect but
	// do not parse.
	nominalDepCount = 15
)

// Score deduction weights.
const (
	scoreComplexityWeight = 25.0
	scoreDuplicationRate  = 0.4
	scoreCoverageRate     = 0.25
	scorePerOutdatedDep   = 3.0
)

var testNameSignatures = []string{"test", "tests", "__tests__", "spec", "specs", "e2e"}

var testScriptSignatures = []string{"test", "jest", "mocha", "cypress", "vitest", "pytest", "rspec"}

// manifestProbes is ordered: only the FIRST manifest type found at the
// repository root feeds the outdated-dependency estimate.
var manifestProbes = []string{
	"package.json",
	"requirements.txt",
	"Gemfile",
	"composer.json",
	"pom.xml",
	"build.gradle",
	"Cargo.toml",
}

// FirstManifest returns the highest-priority dependency manifest present
// in a root listing, or "" when none is.
func FirstManifest(entries []models.DirectoryEntry) string {
	names := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.Type == "file" {
			names[entry.Name] = true
		}
	}
	for _, manifest := range manifestProbes {
		if names[manifest] {
			return manifest
		}
	}
	return ""
}

// Inputs is the slice of fetched data the debt estimator reads.
type Inputs struct {
	Snapshot     *models.RepositorySnapshot
	Commits      []models.CommitRecord
	PullRequests []models.PullRequestRecord
	Languages    models.LanguageBreakdown
	RootEntries  []models.DirectoryEntry

	// ManifestName/ManifestContent carry the first manifest found at the
	// root (per FirstManifest) and its decoded content. Both empty when
	// no manifest exists; content may be empty when the fetch 404ed.
	ManifestName    string
	ManifestContent string

	// HasCIWorkflows is true when .github/workflows exists and is
	// non-empty.
	HasCIWorkflows bool
}

// Estimate derives the technical-debt section of the report. Pure and
// deterministic for a fixed now.
func Estimate(in Inputs, now time.Time) models.TechnicalDebt {
	ageMonths := in.Snapshot.AgeMonths(now)

	complexity := complexityScore(in.Commits, in.PullRequests)
	duplication := duplicationPercent(ageMonths, len(in.Languages))
	coverage := coveragePercent(in)
	outdated := outdatedDependencies(in, ageMonths)

	score := 100.0 -
		scoreComplexityWeight*complexity -
		scoreDuplicationRate*duplication -
		scoreCoverageRate*(100.0-coverage) -
		scorePerOutdatedDep*float64(outdated)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	metrics := models.DebtMetrics{
		ComplexityScore:      complexity,
		Duplications:         duplication,
		TestCoverage:         coverage,
		OutdatedDependencies: outdated,
	}

	return models.TechnicalDebt{
		Score:           int(score),
		Metrics:         metrics,
		Recommendations: recommend(metrics),
	}
}

// complexityScore blends inverse commit hygiene with inverse review
// engagement into [0,1].
func complexityScore(commits []models.CommitRecord, pulls []models.PullRequestRecord) float64 {
	commitScore := quality.CommitMessageScore(commits)

	engagement := neutralEngagement
	if len(pulls) > 0 {
		engaged := 0
		for _, pr := range pulls {
			if pr.Comments > 0 || pr.ReviewComments > 0 {
				engaged++
			}
		}
		engagement = float64(engaged) / float64(len(pulls))
	}

	c := complexityCommitWeight*(1-commitScore) + complexityReviewWeight*(1-engagement)
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

func duplicationPercent(ageMonths float64, languageCount int) float64 {
	dup := ageMonths * duplicationPerMonth
	if dup > duplicationAgeCap {
		dup = duplicationAgeCap
	}
	if extra := languageCount - duplicationFreeLangs; extra > 0 {
		dup += float64(extra) * duplicationPerLang
	}
	if dup > duplicationTotalCap {
		dup = duplicationTotalCap
	}
	return dup
}

// coveragePercent scans root entries, package.json scripts, and CI
// presence for test signatures. Each signal adds a fixed increment.
func coveragePercent(in Inputs) float64 {
	coverage := 0.0

	nameHits := 0
	for _, entry := range in.RootEntries {
		if nameHits >= coverageNameHitsMax {
			break
		}
		name := strings.ToLower(entry.Name)
		for _, sig := range testNameSignatures {
			if name == sig || strings.Contains(name, sig) {
				coverage += coverageNameHit
				nameHits++
				break
			}
		}
	}

	if in.ManifestName == "package.json" && hasTestScript(in.ManifestContent) {
		coverage += coverageScriptHit
	}

	if in.HasCIWorkflows {
		coverage += coverageCIHit
	}

	if coverage == 0 {
		return coverageFloor
	}
	if coverage > coverageCap {
		return coverageCap
	}
	return coverage
}

func hasTestScript(packageJSON string) bool {
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal([]byte(packageJSON), &pkg); err != nil {
		return false
	}
	for name, cmd := range pkg.Scripts {
		lower := strings.ToLower(name + " " + cmd)
		for _, sig := range testScriptSignatures {
			if strings.Contains(lower, sig) {
				return true
			}
		}
	}
	return false
}

// outdatedDependencies estimates staleness for the detected manifest:
// dependency count times age in months, scaled and capped.
func outdatedDependencies(in Inputs, ageMonths float64) int {
	if in.ManifestName == "" {
		return 0
	}

	depCount := nominalDepCount
	switch in.ManifestName {
	case "package.json":
		if deps, devDeps := parsePackageJSON(in.ManifestContent); deps+devDeps > 0 {
			depCount = deps + devDeps
		}
	case "requirements.txt":
		if total, _ := parseRequirementsTxt(in.ManifestContent); total > 0 {
			depCount = total
		}
	case "Cargo.toml":
		if total := parseCargoToml(in.ManifestContent); total > 0 {
			depCount = total
		}
		// Gemfile, composer.json, pom.xml, build.gradle: detected but not
		// parsed; the nominal count stands in.
	}

	outdated := int(float64(depCount) * ageMonths * outdatedPerDepMonth)
	if outdated > outdatedCap {
		return outdatedCap
	}
	if outdated < 0 {
		return 0
	}
	return outdated
}

// parsePackageJSON extracts dependency counts from package.json.
func parsePackageJSON(content string) (deps, devDeps int) {
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return 0, 0
	}
	return len(pkg.Dependencies), len(pkg.DevDependencies)
}

// parseRequirementsTxt counts dependencies and pinned versions.
func parseRequirementsTxt(content string) (total, pinned int) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		total++
		if strings.Contains(line, "==") {
			pinned++
		}
	}
	return total, pinned
}

// parseCargoToml counts dependencies in a Cargo.toml body. TOML dependency
// tables are close enough to YAML mappings for a count.
func parseCargoToml(content string) int {
	var cargo struct {
		Dependencies    map[string]interface{} `yaml:"dependencies"`
		DevDependencies map[string]interface{} `yaml:"dev-dependencies"`
	}
	if err := yaml.Unmarshal([]byte(content), &cargo); err != nil {
		return 0
	}
	return len(cargo.Dependencies) + len(cargo.DevDependencies)
}

func recommend(m models.DebtMetrics) []string {
	var recs []string

	if m.ComplexityScore > 0.5 {
		recs = append(recs, "Refactor the most-churned modules to reduce estimated complexity")
	}
	if m.Duplications > 15 {
		recs = append(recs, "Consolidate duplicated logic into shared packages")
	}
	if m.TestCoverage < 50 {
		recs = append(recs, "Add automated tests; no strong test signal was detected in the repository layout")
	}
	if m.OutdatedDependencies > 10 {
		recs = append(recs, "Update aging dependencies to reduce upgrade risk")
	}

	if len(recs) < 2 {
		fillers := []string{
			"Track debt items in the issue tracker with a dedicated label",
			"Review dependency manifests quarterly",
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
