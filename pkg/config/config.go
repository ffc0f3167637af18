// Package config loads, defaults, and validates the net-store configuration,
// and provides factory functions turning configuration sections into live
// components (key-value store, backup target).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete net-store configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (NETSTORE_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// the Store section carries a Type plus one type-specific options map; only
// the map matching the selected type is decoded, by the factory in
// factories.go.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Store specifies the key-value store type and type-specific options
	Store StoreConfig `mapstructure:"store"`

	// Security holds the server secret and authentication toggles
	Security SecurityConfig `mapstructure:"security"`

	// Metrics controls prometheus collection
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Backup configures snapshot export
	Backup BackupConfig `mapstructure:"backup"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// SingleUser runs the store without per-user event scoping. Intended
	// for local, single-operator deployments.
	SingleUser bool `mapstructure:"single_user"`
}

// StoreConfig specifies the key-value store configuration.
type StoreConfig struct {
	// Type specifies which key-value store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific options
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific options
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// SecurityConfig holds secrets and authentication settings.
type SecurityConfig struct {
	// Secret is the server secret the pagination cursor encryption key is
	// derived from. Required; there is no safe default.
	Secret string `mapstructure:"secret" validate:"required,min=8"`
}

// MetricsConfig controls prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns metrics collection on
	Enabled bool `mapstructure:"enabled"`
}

// BackupConfig configures snapshot export.
type BackupConfig struct {
	// Enabled turns the backup path on
	Enabled bool `mapstructure:"enabled"`

	// Type specifies the snapshot target
	// Valid values: filesystem, s3
	Type string `mapstructure:"type" validate:"omitempty,oneof=filesystem s3"`

	// Filesystem contains filesystem target options
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// S3 contains S3 target options
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file
// settings. Environment variables use the NETSTORE_ prefix with underscores,
// e.g. NETSTORE_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("NETSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// is acceptable; defaults and environment variables take over.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path. Uses
// XDG_CONFIG_HOME if set, otherwise ~/.config, falling back to the current
// directory when the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "net-store")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "net-store")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
