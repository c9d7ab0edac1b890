package version

// Overridden at build time via -ldflags.
//
//nolint:gochecknoglobals
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
