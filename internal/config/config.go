// Package config provides configuration types and defaults for graphdoc.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GraphiteEditor/graphdoc/internal/compiler"
	"github.com/GraphiteEditor/graphdoc/internal/log"
	"github.com/GraphiteEditor/graphdoc/internal/tracing"
)

// Config holds all configuration options for graphdoc.
type Config struct {
	// DatabasePath is the SQLite document store location.
	// Default: ~/.graphdoc/graphdoc.db
	DatabasePath string `mapstructure:"database_path"`

	// LogPath is the debug log location. Empty disables file logging.
	LogPath string `mapstructure:"log_path"`

	Compiler CompilerConfig `mapstructure:"compiler"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

// CompilerConfig holds compile pass configuration.
type CompilerConfig struct {
	// Seed overrides the fresh-id seed used when flattening mints literal
	// nodes. Zero selects the built-in default. Two runs with the same seed
	// produce identical compiled output for the same document.
	Seed uint64 `mapstructure:"seed"`

	// CacheEnabled controls reuse of compiled results for unchanged
	// documents.
	CacheEnabled bool `mapstructure:"cache_enabled"`

	// CacheTTLMinutes bounds how long a compiled result stays cached.
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes"`
}

// CacheTTL returns the cache expiration as a duration.
func (c CompilerConfig) CacheTTL() time.Duration {
	if c.CacheTTLMinutes <= 0 {
		return compiler.DefaultCacheTTL
	}
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// TracingConfig holds span export configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	// Default: ~/.config/graphdoc/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// 1.0 = all traces, 0.1 = 10% of traces
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// ToTracing converts the user-facing settings into the tracing subsystem's
// config, filling derived defaults.
func (t TracingConfig) ToTracing() tracing.Config {
	cfg := tracing.DefaultConfig()
	cfg.Enabled = t.Enabled
	if t.Exporter != "" {
		cfg.Exporter = t.Exporter
	}
	cfg.FilePath = t.FilePath
	if cfg.FilePath == "" {
		cfg.FilePath = DefaultTracesFilePath()
	}
	if t.SampleRate > 0 {
		cfg.SampleRate = t.SampleRate
	}
	return cfg
}

// WatchConfig holds file watching configuration for the watch command.
type WatchConfig struct {
	// DebounceMillis is how long to wait after the last change before
	// recompiling.
	// Default: 250
	DebounceMillis int `mapstructure:"debounce_millis"`
}

// Debounce returns the debounce window as a duration.
func (w WatchConfig) Debounce() time.Duration {
	if w.DebounceMillis <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(w.DebounceMillis) * time.Millisecond
}

// DefaultDatabasePath returns the default document store location.
// Returns ~/.graphdoc/graphdoc.db or empty string if home dir unavailable.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".graphdoc", "graphdoc.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/graphdoc/traces/traces.jsonl or empty string if home dir
// unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "graphdoc", "traces", "traces.jsonl")
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(t TracingConfig) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}
	if t.Exporter != "" {
		switch t.Exporter {
		case "none", "file", "stdout":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", or \"stdout\", got %q", t.Exporter)
		}
	}
	return nil
}

// ValidateCompiler checks compiler configuration for errors.
func ValidateCompiler(c CompilerConfig) error {
	if c.CacheTTLMinutes < 0 {
		return fmt.Errorf("compiler.cache_ttl_minutes must not be negative, got %d", c.CacheTTLMinutes)
	}
	return nil
}

// Validate checks the whole configuration for errors.
func Validate(cfg Config) error {
	if err := ValidateCompiler(cfg.Compiler); err != nil {
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		DatabasePath: DefaultDatabasePath(),
		Compiler: CompilerConfig{
			Seed:            0, // Built-in default seed
			CacheEnabled:    true,
			CacheTTLMinutes: 10,
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "file",
			FilePath:   "", // Derived from config dir at runtime
			SampleRate: 1.0,
		},
		Watch: WatchConfig{
			DebounceMillis: 250,
		},
	}
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Graphdoc Configuration

# Path to the SQLite document store (default: ~/.graphdoc/graphdoc.db)
# database_path: /path/to/graphdoc.db

# Debug log file. Empty disables file logging.
# log_path: ~/.graphdoc/graphdoc.log

# Compile pass settings
compiler:
  # Reuse compiled results for unchanged documents
  cache_enabled: true
  # How long a compiled result stays cached, in minutes
  cache_ttl_minutes: 10
  # Seed for synthesized node ids; 0 selects the built-in default.
  # Runs with the same seed produce identical compiled output.
  # seed: 0

# Span export for compile passes
# tracing:
#   enabled: false        # Enable/disable tracing (default: false)
#   exporter: file        # Export backend: none, file, stdout (default: file)
#   file_path: ~/.config/graphdoc/traces/traces.jsonl
#   sample_rate: 1.0      # Trace sampling rate 0.0-1.0 (default: 1.0)

# Watch command settings
watch:
  # How long to wait after the last file change before recompiling
  debounce_millis: 250
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
