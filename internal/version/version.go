// Package version centralizes the binary's version information.
package version

const (
	// Version is the current semantic version of diffscope.
	Version = "0.3.0"

	// BuildDate is set during build time (use -ldflags)
	BuildDate = "development"

	// GitCommit is set during build time (use -ldflags)
	GitCommit = "unknown"
)

// Info returns the bare version string.
func Info() string {
	return Version
}

// FullInfo returns detailed version information.
func FullInfo() string {
	return "diffscope " + Version + " (commit: " + GitCommit + ", built: " + BuildDate + ")"
}
