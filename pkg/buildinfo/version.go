// Package buildinfo holds version information stamped in at build time:
//
//	go build -ldflags "-X github.com/nodemedic/nodemedic/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/nodemedic/nodemedic/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/nodemedic/nodemedic/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	Version = "dev"     // semantic version, e.g. "v0.3.0"
	Commit  = "none"    // git commit SHA
	Date    = "unknown" // build timestamp
)

// String returns the build information, one field per line.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the cobra --version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}

// UserAgent identifies nodemedic in outgoing HTTP requests.
func UserAgent() string {
	return "nodemedic/" + Version
}
