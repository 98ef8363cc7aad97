package config

// Version/Commit/Date are stamped at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Config is the frozen v1 schema of ~/.simman/config.toml.
type Config struct {
	Version int           `toml:"version"`
	Storage StorageConfig `toml:"storage"`
	Runs    RunConfig     `toml:"runs"`
	Logging LoggingConfig `toml:"logging"`
}

// StorageConfig locates the root directory all runs live under.
type StorageConfig struct {
	Root string `toml:"root"`
}

// RunConfig carries the default lifecycle policy for new runs.
type RunConfig struct {
	// Suffix is appended to result filenames.
	Suffix string `toml:"suffix,omitempty"`
	// CreateClean wipes reclaimed directories before reuse.
	CreateClean bool `toml:"create_clean"`
	// WriteProtect strips write permission from simulation, logs, and
	// data on clean release.
	WriteProtect bool `toml:"write_protect"`
	// SourceDir is a path inside the source repository used for
	// metadata capture; empty means the working directory.
	SourceDir string `toml:"source_dir,omitempty"`
}

// LoggingConfig controls the lifecycle event log.
type LoggingConfig struct {
	// Events is the JSON-lines event log path; empty disables it.
	Events string `toml:"events,omitempty"`
}
