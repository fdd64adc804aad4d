package version

import "fmt"

// These variables are set at build time via -ldflags
// Example: go build -ldflags "-X github.com/pysugar/dataroom/internal/version.Version=v0.2.0"
var (
	// Version is the semantic version of the application
	Version = "dev"

	// Commit is the git commit hash
	Commit = "none"

	// BuildTime is the timestamp of the build
	BuildTime = "unknown"
)

// String formats the build information for `dataroom version` and the startup log.
func String() string {
	return fmt.Sprintf("dataroom %s (commit %s, built %s)", Version, Commit, BuildTime)
}
