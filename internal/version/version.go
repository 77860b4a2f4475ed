// Package version reports the build version of bridgewatch.
package version

import "fmt"

// Version is set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/bridgewatch/internal/version.Version=v0.3.0".
var Version = "dev"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("bridgewatch %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
