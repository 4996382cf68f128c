package config

import (
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"
)

type Config struct {
	Global  GlobalConfig  `yaml:"global"`
	Scoring ScoringConfig `yaml:"scoring"`
	Limits  LimitsConfig  `yaml:"limits"`
}

type GlobalConfig struct {
	Concurrency    int    `yaml:"concurrency"`
	GitHubToken    string `yaml:"github_token,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// RequestsPerSecond paces outgoing API calls within a run.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ScoringConfig exposes the overall-score blend and the benchmark
// override. The per-estimator formulas document their own constants;
// these are the knobs worth turning from the outside.
type ScoringConfig struct {
	QualityWeight    float64 `yaml:"quality_weight"`
	DebtWeight       float64 `yaml:"debt_weight"`
	DeploymentWeight float64 `yaml:"deployment_weight"`
	// BenchmarkOverride pins the benchmark score when > 0, replacing the
	// built-in language/size lookup.
	BenchmarkOverride int `yaml:"benchmark_override,omitempty"`
}

type LimitsConfig struct {
	Commits      int `yaml:"commits"`
	PullRequests int `yaml:"pull_requests"`
	Issues       int `yaml:"issues"`
	Releases     int `yaml:"releases"`
}

func Default() *Config {
	return &Config{
		Global: GlobalConfig{
			Concurrency:       4,
			TimeoutSeconds:    30,
			RequestsPerSecond: 8,
		},
		Scoring: ScoringConfig{
			QualityWeight:    0.3,
			DebtWeight:       0.4,
			DeploymentWeight: 0.3,
		},
		Limits: LimitsConfig{
			Commits:      50,
			PullRequests: 30,
			Issues:       30,
			Releases:     20,
		},
	}
}

func GetConfigPath() (string, error) {
	// Respect XDG_CONFIG_HOME if set (useful for testing and Linux users)
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "repovitals", "config.yaml"), nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "repovitals", "config.yaml"), nil
}

// Load returns defaults overlaid with the first config file found.
// Search order: ./config.yaml, the user config dir, ~/.repovitals.yaml.
func Load() (*Config, error) {
	cfg := Default()

	paths := []string{"config.yaml"} // local override

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(userConfigDir, "repovitals", "config.yaml"))
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		paths = append(paths, filepath.Join(xdgConfig, "repovitals", "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".repovitals.yaml"))
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", p, err)
		}
		return cfg, nil
	}

	return cfg, nil
}

// Save writes the configuration to the user's config file.
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("error getting config path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
