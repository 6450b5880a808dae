// Package version holds build metadata stamped in with -ldflags.
package version

var (
	// Version is the release tag, "dev" for local builds
	Version = "dev"
	// Commit is the git commit hash
	Commit = "dev"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Info describes the build of one service as served by /v1/version
func Info(service string) map[string]string {
	return map[string]string{
		"service":   service,
		"version":   Version,
		"commit":    Commit,
		"buildTime": BuildTime,
	}
}
