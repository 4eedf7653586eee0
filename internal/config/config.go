// Package config provides configuration management for timedmeta using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort       = 8080
	defaultServerTimeout    = 30 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultTrackLabel       = "id3"
	defaultMaxSampleSize    = "256KB"
	defaultBackBufferLength = 30 * time.Second
)

// Output formats supported by the replay command.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
	OutputText = "text"
)

// Config holds all configuration for the application.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Surface  SurfaceConfig  `mapstructure:"surface"`
	Buffer   BufferConfig   `mapstructure:"buffer"`
	Replay   ReplayConfig   `mapstructure:"replay"`
	Server   ServerConfig   `mapstructure:"server"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetadataConfig holds timed metadata decoding configuration.
type MetadataConfig struct {
	// TrackLabel is the label of the metadata text track.
	TrackLabel string `mapstructure:"track_label"`
	// MaxSampleSize bounds the size of a decodable sample. Larger samples are
	// skipped. Supports human-readable values like "256KB".
	MaxSampleSize ByteSize `mapstructure:"max_sample_size"`
}

// SurfaceConfig holds the capabilities advertised by the headless surface.
type SurfaceConfig struct {
	DataCues bool `mapstructure:"data_cues"`
	VTTCues  bool `mapstructure:"vtt_cues"`
}

// BufferConfig holds live back buffer configuration.
type BufferConfig struct {
	// BackBufferLength is the media retained behind the live edge (0 = never trim).
	BackBufferLength time.Duration `mapstructure:"back_buffer_length"`
	// TrimVOD also trims playlists carrying an ENDLIST tag.
	TrimVOD bool `mapstructure:"trim_vod"`
}

// ReplayConfig holds replay configuration.
type ReplayConfig struct {
	DetachOnFinish bool   `mapstructure:"detach_on_finish"`
	Output         string `mapstructure:"output"` // json, yaml, text
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with TIMEDMETA_ and use underscores for nesting.
// Example: TIMEDMETA_BUFFER_BACK_BUFFER_LENGTH=90s.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/timedmeta")
		v.AddConfigPath("$HOME/.timedmeta")
	}

	// Environment variable settings
	v.SetEnvPrefix("TIMEDMETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	return FromViper(v)
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metadata defaults
	v.SetDefault("metadata.track_label", defaultTrackLabel)
	v.SetDefault("metadata.max_sample_size", defaultMaxSampleSize)

	// Surface defaults
	v.SetDefault("surface.data_cues", true)
	v.SetDefault("surface.vtt_cues", true)

	// Buffer defaults
	v.SetDefault("buffer.back_buffer_length", defaultBackBufferLength)
	v.SetDefault("buffer.trim_vod", false)

	// Replay defaults
	v.SetDefault("replay.detach_on_finish", false)
	v.SetDefault("replay.output", OutputText)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Logging validation
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Metadata validation
	if c.Metadata.TrackLabel == "" {
		return fmt.Errorf("metadata.track_label is required")
	}
	if c.Metadata.MaxSampleSize < 0 {
		return fmt.Errorf("metadata.max_sample_size must not be negative")
	}

	// Buffer validation
	if c.Buffer.BackBufferLength < 0 {
		return fmt.Errorf("buffer.back_buffer_length must not be negative")
	}

	// Replay validation
	validOutputs := map[string]bool{OutputJSON: true, OutputYAML: true, OutputText: true}
	if !validOutputs[c.Replay.Output] {
		return fmt.Errorf("replay.output must be one of: json, yaml, text")
	}

	// Server validation
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
