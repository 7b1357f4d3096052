// Package config loads the tool configuration from file, environment and
// defaults, validates it, and builds the default backend registry from it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures everything tunable about the facade: logging, credential
// source locations, and per-backend-family knobs. Credential payloads
// themselves never live here; those are the credential registry's job.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (LVFS_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Credentials points at extra credential files, tried before the
	// standard search locations.
	Credentials CredentialsConfig `mapstructure:"credentials"`

	// Backends contains per-backend-family tuning.
	Backends BackendsConfig `mapstructure:"backends"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output is where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required"`
}

// CredentialsConfig locates credential realm files.
type CredentialsConfig struct {
	// Files lists credential file paths tried before the default search
	// locations. The first readable source wins.
	Files []string `mapstructure:"files"`
}

// BackendsConfig groups backend-family tuning.
type BackendsConfig struct {
	S3          S3Config          `mapstructure:"s3"`
	Artifactory ArtifactoryConfig `mapstructure:"artifactory"`
}

// S3Config tunes the object store family.
type S3Config struct {
	// Region is the fallback AWS region for realms that do not name one.
	Region string `mapstructure:"region" validate:"required"`
}

// ArtifactoryConfig tunes the artifact repository backend.
type ArtifactoryConfig struct {
	// Timeout bounds each HTTP request, uploads included.
	Timeout time.Duration `mapstructure:"timeout" validate:"required,gt=0"`

	// InsecureSkipVerify disables TLS certificate verification, for
	// instances behind self-signed internal CAs.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// Load loads configuration from file, environment and defaults.
// An empty configPath uses the default search location.
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

// setupViper configures environment variable support and the config file
// search. Environment variables use the LVFS_ prefix with underscores,
// e.g. LVFS_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("LVFS")
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

// readConfigFile reads the configuration file if present. A missing file is
// fine; defaults cover everything.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory, honoring
// XDG_CONFIG_HOME.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lvfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "lvfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
