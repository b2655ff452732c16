package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GraphiteEditor/graphdoc/internal/compiler"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.True(t, cfg.Compiler.CacheEnabled)
	require.Equal(t, 10, cfg.Compiler.CacheTTLMinutes)
	require.Zero(t, cfg.Compiler.Seed, "zero seed selects the built-in default")
	require.False(t, cfg.Tracing.Enabled)
	require.Equal(t, "file", cfg.Tracing.Exporter)
	require.Equal(t, 1.0, cfg.Tracing.SampleRate)
	require.Equal(t, 250, cfg.Watch.DebounceMillis)
}

func TestDefaults_Valid(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestValidateTracing_SampleRateOutOfRange(t *testing.T) {
	err := ValidateTracing(TracingConfig{SampleRate: 1.5})
	require.Error(t, err)
	require.Contains(t, err.Error(), "sample_rate")

	err = ValidateTracing(TracingConfig{SampleRate: -0.1})
	require.Error(t, err)
}

func TestValidateTracing_InvalidExporter(t *testing.T) {
	err := ValidateTracing(TracingConfig{Exporter: "carrier-pigeon", SampleRate: 1.0})
	require.Error(t, err)
	require.Contains(t, err.Error(), "carrier-pigeon")
}

func TestValidateTracing_EmptyExporterUsesDefault(t *testing.T) {
	require.NoError(t, ValidateTracing(TracingConfig{SampleRate: 0.5}))
}

func TestValidateCompiler_NegativeTTL(t *testing.T) {
	err := ValidateCompiler(CompilerConfig{CacheTTLMinutes: -1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cache_ttl_minutes")
}

func TestCompilerConfig_CacheTTL(t *testing.T) {
	require.Equal(t, compiler.DefaultCacheTTL, CompilerConfig{}.CacheTTL())
	require.Equal(t, 5*time.Minute, CompilerConfig{CacheTTLMinutes: 5}.CacheTTL())
}

func TestWatchConfig_Debounce(t *testing.T) {
	require.Equal(t, 250*time.Millisecond, WatchConfig{}.Debounce())
	require.Equal(t, time.Second, WatchConfig{DebounceMillis: 1000}.Debounce())
}

func TestTracingConfig_ToTracing(t *testing.T) {
	cfg := TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 0.25}.ToTracing()
	require.True(t, cfg.Enabled)
	require.Equal(t, "stdout", cfg.Exporter)
	require.Equal(t, 0.25, cfg.SampleRate)
	require.Equal(t, "graphdoc", cfg.ServiceName)
}

func TestTracingConfig_ToTracingDerivesFilePath(t *testing.T) {
	cfg := TracingConfig{Enabled: true, Exporter: "file"}.ToTracing()
	require.NotEmpty(t, cfg.FilePath, "file exporter should get a derived default path")
	require.Equal(t, 1.0, cfg.SampleRate, "zero sample rate falls back to default")
}

func TestWriteDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "cache_enabled: true")
	require.Contains(t, string(data), "debounce_millis: 250")
}
