// repovitals generates engineering health reports for GitHub repositories.
// It estimates code volume, commit hygiene, technical debt, and deployment
// performance from the REST API alone, without cloning the repository.
//
// Usage:
//
//	repovitals report owner/repo
//	repovitals report owner/repo1 owner/repo2 --format=json
package main

import (
	"github.com/repovitals/repovitals/internal/cli"
)

// Version is set at build time:
//
//	go build -ldflags="-X main.Version=v1.0.0"
var Version = "dev"

func main() {
	cli.Version = Version
	cli.Execute()
}
