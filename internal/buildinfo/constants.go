package buildinfo

import (
	"fmt"
)

// These variables will be set at build time using ldflags
var (
	// Version is the release version of the forwarder binary
	Version = "dev"

	// Commit is the git commit the binary was built from
	Commit string

	// BuildEnvironment names the deployment the binary targets (dev, staging, prod)
	BuildEnvironment string
)

// UserAgent returns the User-Agent sent on outbound query requests
func UserAgent() string {
	return fmt.Sprintf("loganalytics-forwarder/%s", Version)
}

// Summary returns a one-line description of the build
func Summary() string {
	env := BuildEnvironment
	if env == "" {
		env = "unknown"
	}
	if Commit == "" {
		return fmt.Sprintf("%s (environment: %s)", Version, env)
	}
	return fmt.Sprintf("%s+%s (environment: %s)", Version, Commit, env)
}

// ValidateConstants ensures the release constants were set at build time
func ValidateConstants() error {
	if Version == "" {
		return fmt.Errorf("VERSION not set at build time")
	}
	if BuildEnvironment == "" {
		return fmt.Errorf("BUILD_ENVIRONMENT not set at build time")
	}
	return nil
}
