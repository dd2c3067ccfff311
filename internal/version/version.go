// Package version holds build metadata set through -ldflags, e.g.
// go build -ldflags "-X git.home.luguber.info/inful/sitebuilder/internal/version.Version=v0.3.0".
package version

import "fmt"

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the metadata for --version.
func String() string {
	return fmt.Sprintf("sitebuilder %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
