package config_test

import (
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/livespell/internal/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	d := config.Diff(baseConfig(), baseConfig())
	if !d.Empty() {
		t.Errorf("expected empty diff, got %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("log level change not reported: %+v", d)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("log level alone must not require restart, got %v", d.RestartRequired)
	}
}

func TestDiff_Session(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Session.RequestTimeout = 2 * time.Second
	new.Session.MinLength = 5

	d := config.Diff(old, new)
	if !d.SessionChanged {
		t.Fatal("expected SessionChanged")
	}
	if d.NewSession.MinLength != 5 || d.NewSession.RequestTimeout != 2*time.Second {
		t.Errorf("NewSession: got %+v", d.NewSession)
	}
}

func TestDiff_Files(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Files.AllowedExtensions = []string{"txt"}

	d := config.Diff(old, new)
	if !d.FilesChanged {
		t.Fatal("expected FilesChanged")
	}
	if !slices.Equal(d.NewFiles.AllowedExtensions, []string{"txt"}) {
		t.Errorf("NewFiles: got %+v", d.NewFiles)
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Server.ListenAddr = ":9999"
	new.Providers.Analysis.Name = "remote"
	new.Resilience.MaxFailures = 1
	new.Files.Parallelism = 8

	d := config.Diff(old, new)
	want := []string{"server", "files", "providers", "resilience"}
	if !slices.Equal(d.RestartRequired, want) {
		t.Errorf("RestartRequired: got %v, want %v", d.RestartRequired, want)
	}
	if d.LogLevelChanged || d.SessionChanged || d.FilesChanged {
		t.Errorf("unexpected hot-reload flags: %+v", d)
	}
}
