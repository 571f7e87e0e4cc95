// Package version holds devsup build metadata, injected at link time:
//
//	go build -ldflags "-X github.com/tessro/devsup/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for display.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
