// Package version holds build-time version information.
package version

// Populated at build time via -ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
