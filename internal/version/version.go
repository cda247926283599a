// Package version records build metadata injected at link time.
package version

// These are set via -ldflags at build time.
var (
	// Version is the release version, e.g. "v0.3.0".
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// String returns a single-line description of the build.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
