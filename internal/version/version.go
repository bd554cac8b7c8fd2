// Package version holds the build-time version variables for the cwd binary.
// The zero values ("dev", "none", "unknown") are used for local builds.
package version

import "fmt"

// These variables are overridden with -ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns the formatted version string printed by cwd version.
func Info() string {
	return fmt.Sprintf(
		"cwd version %s\ncommit: %s\nbuilt: %s\n",
		Version,
		Commit,
		Date,
	)
}
