package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/repovitals/repovitals/internal/config"
	"github.com/repovitals/repovitals/internal/forge"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Store a GitHub token for authenticated reports",
	Long: `Prompt for a GitHub personal access token, validate it against the
API, and store it in the user config file. A token raises the rate
limit from 60 to 5000 requests/hour and unlocks pull request, issue,
and workflow run data.`,
	Run: runAuth,
}

func runAuth(cmd *cobra.Command, args []string) {
	fmt.Println("🔑 GitHub Token Setup")
	fmt.Println("Create a token at https://github.com/settings/tokens (no scopes needed for public repositories).")
	fmt.Print("Enter token: ")

	token, err := readToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError reading token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println()

	if token == "" {
		fmt.Fprintln(os.Stderr, "No token entered.")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := forge.New(forge.Options{Token: token})
	rl, err := client.GetRateLimit(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Token validation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Token valid. Rate limit: %d/%d remaining.\n", rl.Remaining, rl.Limit)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.Global.GitHubToken = token
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	path, _ := config.GetConfigPath()
	fmt.Printf("Token saved to %s\n", path)
}

// readToken masks input when stdin is a terminal and falls back to a
// plain line read when it is not (pipes, CI).
func readToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
