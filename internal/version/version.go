// Package version holds build metadata stamped in via -ldflags and
// reported by the /api/version endpoint.
package version

var (
	// Version is the trackfix release version
	Version = "dev"
	// GitSHA is the git commit SHA of the build
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)
