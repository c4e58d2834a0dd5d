// Package version carries build metadata injected through -ldflags.
package version

import "fmt"

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String formats the build metadata for --version and /health.
func String() string {
	return fmt.Sprintf("docnorm %s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}
