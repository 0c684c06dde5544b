// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Backend Preferences - persisted per-backend switches, independent of installation state.
const (
	BackendMPVEnabled = "backend.mpv.enabled"
	BackendVLCEnabled = "backend.vlc.enabled"
)

// BackendEnabled returns the preference key holding the enabled flag of the named backend.
func BackendEnabled(name string) string {
	return "backend." + name + ".enabled"
}

// Plugin Installation - these keys tune the download and verification pipeline.
const (
	InstallMinDownloadSize = "install.min_download_size"
	InstallTimeout         = "install.timeout"
)

// Playback - these keys govern the shared session state machine.
const (
	PlaybackPollRate = "playback.poll_rate"
	SeekEpsilon      = "seek.epsilon"
)

// Metadata - retry policy for late or invalid media properties.
const (
	MetadataRetryAttempts = "metadata.retry_attempts"
	MetadataRetryDelay    = "metadata.retry_delay"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these settings govern the maintenance command line.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
	IconsVariant    = "icons.variant"
)
