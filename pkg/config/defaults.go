package config

import (
	"github.com/marmos91/hvrpc/internal/bytesize"
	"github.com/marmos91/hvrpc/internal/telemetry"
	"github.com/marmos91/hvrpc/pkg/wire"
)

// defaultMaxFrameSize mirrors the codec's wire limit: a full frame of
// the maximum payload plus the length prefix.
const defaultMaxFrameSize = bytesize.ByteSize(wire.PayloadMax + wire.LenSize)

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	def := telemetry.DefaultConfig()
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = def.ServiceName
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = def.ServiceVersion
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = def.Endpoint
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = def.SampleRate
	}

	if cfg.Decode.MaxFrameSize == 0 {
		cfg.Decode.MaxFrameSize = defaultMaxFrameSize
	}
}

// defaultValues returns the viper defaults keyed by config path.
func defaultValues() map[string]any {
	return map[string]any{
		"logging.level":         "INFO",
		"logging.format":        "text",
		"logging.output":        "stderr",
		"telemetry.enabled":      false,
		"telemetry.service_name": "hvrpc",
		"telemetry.endpoint":     "localhost:4317",
		"telemetry.sample_rate": 1.0,
		"decode.max_frame_size": defaultMaxFrameSize.String(),
		"decode.max_frames":     0,
		"decode.hexdump":        false,
	}
}
