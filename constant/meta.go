// Package constant defines immutable application-level identifiers and build metadata.
package constant

const (
	// App is the canonical application identifier used for filesystem paths, environment prefixes and CLI branding.
	App = "glasspane"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// UserAgent is sent with plugin bundle downloads.
	UserAgent = App + "/" + Version
)

// Build metadata, overridden at link time with -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
