package buildconfig

import (
	"fmt"
	"runtime"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

// Version returns the build version
func Version() string {
	return version
}

// Commit returns the git commit hash
func Commit() string {
	return commit
}

// VersionInfo returns full version information
func VersionInfo() map[string]string {
	return map[string]string{
		"version":    version,
		"commit":     commit,
		"go_version": runtime.Version(),
	}
}

// String formats the version for command-line output.
func String() string {
	return fmt.Sprintf("prest %s (%s, %s)", version, commit, runtime.Version())
}
