package config

import (
	"reflect"
	"slices"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; everything else
// is reported through RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SessionChanged is true when any session tuning value changed. The new
	// values apply to sessions opened after the reload.
	SessionChanged bool
	NewSession     SessionConfig

	// FilesChanged is true when the upload restrictions changed.
	FilesChanged bool
	NewFiles     FilesConfig

	// RestartRequired lists top-level sections that changed but cannot be
	// applied without restarting the server.
	RestartRequired []string
}

// Empty reports whether d carries no changes at all.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.SessionChanged && !d.FilesChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Session != new.Session {
		d.SessionChanged = true
		d.NewSession = new.Session
	}

	if old.Files.MaxUploadBytes != new.Files.MaxUploadBytes ||
		!slices.Equal(old.Files.AllowedExtensions, new.Files.AllowedExtensions) {
		d.FilesChanged = true
		d.NewFiles = new.Files
	}

	oldServer, newServer := old.Server, new.Server
	oldServer.LogLevel, newServer.LogLevel = "", ""
	if !reflect.DeepEqual(oldServer, newServer) {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if old.Files.MaxBatchFiles != new.Files.MaxBatchFiles || old.Files.Parallelism != new.Files.Parallelism {
		d.RestartRequired = append(d.RestartRequired, "files")
	}
	if !reflect.DeepEqual(old.Providers, new.Providers) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	if old.Resilience != new.Resilience {
		d.RestartRequired = append(d.RestartRequired, "resilience")
	}

	return d
}
