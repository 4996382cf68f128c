package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version can be set via build flags: -ldflags "-X 'main.Version=v1.0.0'"
var Version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:   "repovitals",
		Short: "GitHub Repository Health Reports",
		Long: `repovitals generates a structured health report for GitHub repositories:
estimated code volume, commit hygiene, technical debt, and deployment
performance, blended into one overall score with an industry benchmark.
All figures are inexpensive heuristics derived from the REST API, not
static analysis.`,
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	reportCmd = &cobra.Command{
		Use:   "report [repos...]",
		Short: "Generate health reports for one or more repositories (format: owner/repo)",
		Long: `Generate a health report for each named repository.
Works without a token against public repositories at reduced fidelity;
authenticated runs see pull requests, issues, and workflow runs too.`,
		Example: `  repovitals report golang/go
  repovitals report owner/repo1 owner/repo2 --format=json
  repovitals report owner/repo --fail-under 60`,
		Args: cobra.MinimumNArgs(1),
		Run:  runReport,
	}
)

// Flags
var (
	flagFormat string
	flagToken  string
	flagFail   int
	flagQuiet  bool
)

func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(authCmd)

	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress and informational output")

	reportCmd.Flags().StringVarP(&flagFormat, "format", "f", "text", "Output format (text, json, markdown)")
	_ = reportCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "markdown"}, cobra.ShellCompDirectiveNoFileComp
	})

	reportCmd.Flags().StringVarP(&flagToken, "token", "t", "", "GitHub token (overrides config and environment)")
	reportCmd.Flags().IntVar(&flagFail, "fail-under", 0, "Exit with error code 1 if any overall score is below this value")
}

func shouldPrintInfo() bool {
	return !flagQuiet
}
