// Package version exposes build metadata injected at link time.
package version

// Overridden via -ldflags on release builds.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
