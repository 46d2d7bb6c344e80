package config

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/tchung1970/record/lib/capture"
)

// Config holds all configuration for the recorder
type Config struct {
	// Recording configuration
	Duration  int    `envconfig:"RECORD_DURATION" default:"60"`
	OutputDir string `envconfig:"RECORD_OUTPUT_DIR" default:"."`
	PreRoll   int    `envconfig:"RECORD_PREROLL" default:"3"`

	// Capture input device. Empty picks the platform default ("1" for
	// avfoundation, ":0.0" for x11grab).
	Display string `envconfig:"RECORD_DISPLAY"`

	// Absolute or relative path to the ffmpeg binary. If empty the code falls back to "ffmpeg" on $PATH.
	PathToFFmpeg string `envconfig:"RECORD_FFMPEG_PATH" default:"ffmpeg"`

	// How long a stopped capture gets to finalize the file before it is terminated.
	StopTimeout time.Duration `envconfig:"RECORD_STOP_TIMEOUT" default:"5s"`

	LogLevel string `envconfig:"RECORD_LOG_LEVEL" default:"warn"`
}

// Load loads configuration from RECORD_* environment variables
func Load() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, err
	}
	if config.Display == "" {
		config.Display = capture.DefaultDisplay(runtime.GOOS)
	}
	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// SlogLevel parses LogLevel. Call after Load, which has already validated it.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel)))
	return level
}

func validate(config *Config) error {
	if config.Duration <= 0 {
		return fmt.Errorf("RECORD_DURATION must be greater than 0")
	}
	if config.OutputDir == "" {
		return fmt.Errorf("RECORD_OUTPUT_DIR is required")
	}
	if config.PreRoll < 0 {
		return fmt.Errorf("RECORD_PREROLL must not be negative")
	}
	if config.PathToFFmpeg == "" {
		return fmt.Errorf("RECORD_FFMPEG_PATH is required")
	}
	if config.StopTimeout <= 0 {
		return fmt.Errorf("RECORD_STOP_TIMEOUT must be greater than 0")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(config.LogLevel))); err != nil {
		return fmt.Errorf("RECORD_LOG_LEVEL: %w", err)
	}

	return nil
}
