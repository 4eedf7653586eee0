package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Metadata: MetadataConfig{TrackLabel: "id3", MaxSampleSize: 256 * Kilobyte},
		Buffer:   BufferConfig{BackBufferLength: 30 * time.Second},
		Replay:   ReplayConfig{Output: OutputText},
		Server:   ServerConfig{Port: 8080},
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Load without config file should use defaults
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metadata defaults
	assert.Equal(t, "id3", cfg.Metadata.TrackLabel)
	assert.Equal(t, 256*Kilobyte, cfg.Metadata.MaxSampleSize)

	// Surface defaults
	assert.True(t, cfg.Surface.DataCues)
	assert.True(t, cfg.Surface.VTTCues)

	// Buffer defaults
	assert.Equal(t, 30*time.Second, cfg.Buffer.BackBufferLength)
	assert.False(t, cfg.Buffer.TrimVOD)

	// Replay defaults
	assert.Equal(t, OutputText, cfg.Replay.Output)
	assert.False(t, cfg.Replay.DetachOnFinish)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "debug"
  format: "text"

metadata:
  track_label: "timed-id3"
  max_sample_size: "1MB"

surface:
  data_cues: false

buffer:
  back_buffer_length: 90s
  trim_vod: true

replay:
  output: "yaml"
  detach_on_finish: true

server:
  host: "127.0.0.1"
  port: 9090
`
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "timed-id3", cfg.Metadata.TrackLabel)
	assert.Equal(t, Megabyte, cfg.Metadata.MaxSampleSize)
	assert.False(t, cfg.Surface.DataCues)
	assert.True(t, cfg.Surface.VTTCues)
	assert.Equal(t, 90*time.Second, cfg.Buffer.BackBufferLength)
	assert.True(t, cfg.Buffer.TrimVOD)
	assert.Equal(t, OutputYAML, cfg.Replay.Output)
	assert.True(t, cfg.Replay.DetachOnFinish)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TIMEDMETA_SERVER_PORT", "3000")
	t.Setenv("TIMEDMETA_LOGGING_LEVEL", "warn")
	t.Setenv("TIMEDMETA_BUFFER_BACK_BUFFER_LENGTH", "2m")
	t.Setenv("TIMEDMETA_METADATA_MAX_SAMPLE_SIZE", "64KB")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 2*time.Minute, cfg.Buffer.BackBufferLength)
	assert.Equal(t, 64*Kilobyte, cfg.Metadata.MaxSampleSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 8080
metadata:
  track_label: "from-file"
`
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	// Set env var to override file
	t.Setenv("TIMEDMETA_SERVER_PORT", "9000")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Env should override file
	assert.Equal(t, 9000, cfg.Server.Port)
	// File value should be preserved
	assert.Equal(t, "from-file", cfg.Metadata.TrackLabel)
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validTestConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"empty label", func(c *Config) { c.Metadata.TrackLabel = "" }, "metadata.track_label"},
		{"negative sample size", func(c *Config) { c.Metadata.MaxSampleSize = -1 }, "metadata.max_sample_size"},
		{"negative back buffer", func(c *Config) { c.Buffer.BackBufferLength = -time.Second }, "buffer.back_buffer_length"},
		{"output format", func(c *Config) { c.Replay.Output = "csv" }, "replay.output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ZeroBackBufferAllowed(t *testing.T) {
	cfg := validTestConfig()
	cfg.Buffer.BackBufferLength = 0
	assert.NoError(t, cfg.Validate())
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 9090}
	assert.Equal(t, "127.0.0.1:9090", cfg.Address())
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidContent := `
server:
  port: "not a number"
  invalid yaml structure
`
	err := os.WriteFile(configPath, []byte(invalidContent), 0o600)
	require.NoError(t, err)

	_, err = Load(configPath)
	assert.Error(t, err)
}

func TestLoad_InvalidByteSize(t *testing.T) {
	t.Setenv("TIMEDMETA_METADATA_MAX_SAMPLE_SIZE", "lots")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_NonExistentFile(t *testing.T) {
	// Specifying a non-existent file should fail
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}
