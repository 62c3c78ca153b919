package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"analysis": {"remote", "dictionary", "llm"},
	"files":    {"remote"},
	"language": {"detectlanguage"},
	"llm":      {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the default config.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if r := cfg.Server.TraceSampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("server.trace_sample_ratio %g must be between 0 and 1", r))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Providers
	if cfg.Providers.Analysis.Name == "" {
		errs = append(errs, errors.New("providers.analysis.name is required"))
	}
	validateProviderName("analysis", cfg.Providers.Analysis.Name)
	for i, fb := range cfg.Providers.Fallback {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.fallback[%d].name is required", i))
		}
		validateProviderName("analysis", fb.Name)
	}
	validateProviderName("files", cfg.Providers.Files.Name)
	validateProviderName("language", cfg.Providers.Language.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)

	usesLLM := cfg.Providers.Analysis.Name == "llm"
	for _, fb := range cfg.Providers.Fallback {
		usesLLM = usesLLM || fb.Name == "llm"
	}
	if usesLLM && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New(`analysis provider "llm" requires providers.llm to be configured`))
	}
	if cfg.Providers.Files.Name == "" {
		slog.Warn("providers.files is not configured; file checks will not be available")
	}

	// Session
	if cfg.Session.MinLength < 1 {
		errs = append(errs, fmt.Errorf("session.min_length %d must be at least 1", cfg.Session.MinLength))
	}
	if cfg.Session.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.request_timeout %s must not be negative", cfg.Session.RequestTimeout))
	}

	// Resilience
	if cfg.Resilience.MaxFailures < 1 {
		errs = append(errs, fmt.Errorf("resilience.max_failures %d must be at least 1", cfg.Resilience.MaxFailures))
	}
	if cfg.Resilience.ResetTimeout < 0 {
		errs = append(errs, fmt.Errorf("resilience.reset_timeout %s must not be negative", cfg.Resilience.ResetTimeout))
	}

	// Files
	if cfg.Files.MaxUploadBytes < 0 {
		errs = append(errs, fmt.Errorf("files.max_upload_bytes %d must not be negative", cfg.Files.MaxUploadBytes))
	}
	if cfg.Files.MaxBatchFiles < 0 {
		errs = append(errs, fmt.Errorf("files.max_batch_files %d must not be negative", cfg.Files.MaxBatchFiles))
	}
	if cfg.Files.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("files.parallelism %d must not be negative", cfg.Files.Parallelism))
	}
	for i, ext := range cfg.Files.AllowedExtensions {
		if ext == "" {
			errs = append(errs, fmt.Errorf("files.allowed_extensions[%d] is empty", i))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name; may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
