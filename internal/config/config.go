// Package config provides the configuration schema, loader, and provider
// registry for the livespell server.
package config

import (
	"strings"
	"time"
)

// LogLevel controls log verbosity for the livespell server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [Config.ApplyDefaults].
const (
	DefaultListenAddr     = ":8080"
	DefaultAnalysis       = "dictionary"
	DefaultMinLength      = 3
	DefaultBoundaryChars  = " .,?!"
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxFailures    = 5
	DefaultResetTimeout   = 30 * time.Second
	DefaultMaxUploadBytes = 10 << 20
	DefaultMaxBatchFiles  = 5
	DefaultParallelism    = 4
)

// DefaultAllowedExtensions are the file types accepted for upload.
var DefaultAllowedExtensions = []string{"txt", "pdf", "docx"}

// Config is the root configuration structure for livespell.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Session    SessionConfig    `yaml:"session"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Files      FilesConfig      `yaml:"files"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`

	// AllowedOrigins lists host patterns (e.g., "localhost:5173") whose
	// browsers may open the live editing WebSocket. Same-origin requests are
	// always allowed.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// TraceSampleRatio is the fraction of new traces recorded, in (0, 1].
	// Zero records every trace.
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which collaborator implementation to use for each
// concern. Each entry selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	// Analysis is the primary text analysis provider.
	Analysis ProviderEntry `yaml:"analysis"`

	// Fallback lists analysis providers tried, in order, when the primary
	// fails or its circuit breaker is open.
	Fallback []ProviderEntry `yaml:"fallback"`

	// Files is the whole-file analysis provider. Optional.
	Files ProviderEntry `yaml:"files"`

	// Language is the language detection provider. Optional.
	Language ProviderEntry `yaml:"language"`

	// LLM backs the "llm" analysis provider.
	LLM ProviderEntry `yaml:"llm"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "remote", "dictionary").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within an LLM provider (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}

// StringOption returns Options[key] when it is a string, or def.
func (e ProviderEntry) StringOption(key, def string) string {
	if v, ok := e.Options[key].(string); ok {
		return v
	}
	return def
}

// IntOption returns Options[key] when it is an integer, or def.
func (e ProviderEntry) IntOption(key string, def int) int {
	switch v := e.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// StringsOption returns Options[key] when it is a list of strings, or nil.
func (e ProviderEntry) StringsOption(key string) []string {
	raw, ok := e.Options[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// SessionConfig tunes the live editing sessions. All fields may be
// hot-reloaded; new values apply to sessions opened afterwards.
type SessionConfig struct {
	// MinLength is the shortest text, in characters, that is analyzed.
	MinLength int `yaml:"min_length"`

	// BoundaryChars lists the characters that complete a word.
	BoundaryChars string `yaml:"boundary_chars"`

	// RequestTimeout bounds each analysis and language detection call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ResilienceConfig tunes the circuit breakers guarding analysis providers.
type ResilienceConfig struct {
	// MaxFailures is the number of consecutive failures that opens a breaker.
	MaxFailures int `yaml:"max_failures"`

	// ResetTimeout is how long a breaker stays open before probing again.
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// FilesConfig restricts file uploads.
type FilesConfig struct {
	// AllowedExtensions lists accepted extensions without the leading dot.
	AllowedExtensions []string `yaml:"allowed_extensions"`

	// MaxUploadBytes caps the size of an uploaded file.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// MaxBatchFiles caps how many files one check-file request may carry.
	MaxBatchFiles int `yaml:"max_batch_files"`

	// Parallelism caps how many files of a batch are analyzed at once.
	Parallelism int `yaml:"parallelism"`
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Providers.Analysis.Name == "" {
		c.Providers.Analysis.Name = DefaultAnalysis
	}
	if c.Session.MinLength == 0 {
		c.Session.MinLength = DefaultMinLength
	}
	if c.Session.BoundaryChars == "" {
		c.Session.BoundaryChars = DefaultBoundaryChars
	}
	if c.Session.RequestTimeout == 0 {
		c.Session.RequestTimeout = DefaultRequestTimeout
	}
	if c.Resilience.MaxFailures == 0 {
		c.Resilience.MaxFailures = DefaultMaxFailures
	}
	if c.Resilience.ResetTimeout == 0 {
		c.Resilience.ResetTimeout = DefaultResetTimeout
	}
	if len(c.Files.AllowedExtensions) == 0 {
		c.Files.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	}
	for i, ext := range c.Files.AllowedExtensions {
		c.Files.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(ext, "."))
	}
	if c.Files.MaxUploadBytes == 0 {
		c.Files.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Files.MaxBatchFiles == 0 {
		c.Files.MaxBatchFiles = DefaultMaxBatchFiles
	}
	if c.Files.Parallelism == 0 {
		c.Files.Parallelism = DefaultParallelism
	}
}
