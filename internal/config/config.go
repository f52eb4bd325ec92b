package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vango-dev/liveset/internal/errors"
)

const (
	// DefaultAddress is the default stream server listen address.
	DefaultAddress = ":8080"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default log format.
	DefaultLogFormat = "text"

	// DefaultMaxBytes is the default source document size limit.
	DefaultMaxBytes = 32 << 20

	// DefaultDebounce is the default delay between a file change and the
	// reload it triggers.
	DefaultDebounce = 100 * time.Millisecond
)

// Config is the complete liveset configuration.
type Config struct {
	Log    LogConfig    `koanf:"log"`
	Serve  ServeConfig  `koanf:"serve"`
	Source SourceConfig `koanf:"source"`
	Loop   LoopConfig   `koanf:"loop"`
	Watch  WatchConfig  `koanf:"watch"`
	Output OutputConfig `koanf:"output"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `koanf:"level"`

	// Format is text or json.
	Format string `koanf:"format"`
}

// ServeConfig configures the stream server.
type ServeConfig struct {
	Address           string        `koanf:"address"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	PingInterval      time.Duration `koanf:"ping_interval"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`

	// Namespace prefixes every exported metric.
	Namespace string `koanf:"namespace"`
}

// SourceConfig configures document loading.
type SourceConfig struct {
	MaxBytes   int64         `koanf:"max_bytes"`
	Timeout    time.Duration `koanf:"timeout"`
	S3Region   string        `koanf:"s3_region"`
	S3Endpoint string        `koanf:"s3_endpoint"`
}

// LoopConfig configures the control loop.
type LoopConfig struct {
	FrameInterval time.Duration `koanf:"frame_interval"`
}

// WatchConfig configures file watching.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// OutputConfig configures CLI output.
type OutputConfig struct {
	// Color is auto, always or never.
	Color string `koanf:"color"`

	// Format is text or json.
	Format string `koanf:"format"`
}

// defaults returns the built-in values as flat koanf keys.
func defaults() map[string]any {
	return map[string]any{
		"log.level":                 DefaultLogLevel,
		"log.format":                DefaultLogFormat,
		"serve.address":             DefaultAddress,
		"serve.read_header_timeout": "10s",
		"serve.write_timeout":       "10s",
		"serve.ping_interval":       "30s",
		"serve.shutdown_timeout":    "5s",
		"serve.max_body_bytes":      1 << 20,
		"serve.namespace":           "liveset",
		"source.max_bytes":          DefaultMaxBytes,
		"source.timeout":            "30s",
		"loop.frame_interval":       "16ms",
		"watch.debounce":            DefaultDebounce.String(),
		"output.color":              "auto",
		"output.format":             "text",
	}
}

// Validate checks the configuration and returns an L020 error describing
// the first problem found.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", err.Error())
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format", fmt.Sprintf("unknown format %q (want text or json)", c.Log.Format))
	}
	switch c.Output.Format {
	case "text", "json":
	default:
		return invalid("output.format", fmt.Sprintf("unknown format %q (want text or json)", c.Output.Format))
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return invalid("output.color", fmt.Sprintf("unknown mode %q (want auto, always or never)", c.Output.Color))
	}
	if c.Serve.Address == "" {
		return invalid("serve.address", "must not be empty")
	}
	if c.Serve.MaxBodyBytes <= 0 {
		return invalid("serve.max_body_bytes", "must be positive")
	}
	if c.Source.MaxBytes <= 0 {
		return invalid("source.max_bytes", "must be positive")
	}
	if c.Loop.FrameInterval <= 0 {
		return invalid("loop.frame_interval", "must be positive")
	}
	if c.Watch.Debounce < 0 {
		return invalid("watch.debounce", "must not be negative")
	}
	return nil
}

func invalid(key, detail string) *errors.Error {
	return errors.New("L020").
		WithDetailf("%s: %s", key, detail).
		WithSuggestion("Check liveset.yaml, LIVESET_ environment variables and flags")
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level %q", level)
	}
}
