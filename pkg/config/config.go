// Package config loads and validates hvrpc tool configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority, bound by the commands)
//  2. Environment variables (HVRPC_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/marmos91/hvrpc/internal/bytesize"
	"github.com/marmos91/hvrpc/internal/telemetry"
)

// Config represents the hvrpc tool configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry"`

	// Decode configures the frame inspector
	Decode DecodeConfig `mapstructure:"decode" yaml:"decode"`
}

// LoggingConfig controls log level, format and destination.
type LoggingConfig struct {
	// Level is the minimum level emitted
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format selects the output encoding
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is "stdout", "stderr", or a file path
	Output string `mapstructure:"output" yaml:"output"`
}

// DecodeConfig configures the frame inspector.
type DecodeConfig struct {
	// MaxFrameSize is a reader-side guard on declared frame sizes.
	// Frames above it are reported and skipped before any allocation
	// happens; the codec's own wire limit still applies underneath.
	MaxFrameSize bytesize.ByteSize `mapstructure:"max_frame_size" validate:"required,gt=0" yaml:"max_frame_size"`

	// MaxFrames stops the inspector after this many frames; 0 means
	// no limit.
	MaxFrames int `mapstructure:"max_frames" validate:"gte=0" yaml:"max_frames"`

	// Hexdump dumps payload bytes for every frame
	Hexdump bool `mapstructure:"hexdump" yaml:"hexdump"`
}

// Load reads configuration from configPath (or the default locations
// when empty), applies environment overrides, fills defaults, and
// validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	// A missing file is not an error: environment overrides and the
	// viper defaults still apply below.
	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	return nil
}

// DefaultConfigPath returns the default config file location,
// honouring XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "hvrpc", "config.yaml")
}

// setupViper configures file locations, env binding and defaults.
func setupViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Dir(DefaultConfigPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HVRPC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range defaultValues() {
		v.SetDefault(key, val)
	}
}

// readConfigFile reads the config file, tolerating a missing file at
// the default locations.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the combined decode hook for custom types:
// ByteSize fields accept strings like "256Mi" via TextUnmarshaler.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}
