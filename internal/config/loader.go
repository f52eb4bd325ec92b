package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/vango-dev/liveset/internal/errors"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "LIVESET_"

// FileNames are searched in the working directory when no file is given.
var FileNames = []string{"liveset.yaml", "liveset.yml"}

// FlagKeys maps command-line flag names to configuration keys. Flags not
// listed here are ignored by the loader.
var FlagKeys = map[string]string{
	"log-level":      "log.level",
	"log-format":     "log.format",
	"addr":           "serve.address",
	"max-bytes":      "source.max_bytes",
	"s3-region":      "source.s3_region",
	"s3-endpoint":    "source.s3_endpoint",
	"timeout":        "source.timeout",
	"frame-interval": "loop.frame_interval",
	"debounce":       "watch.debounce",
	"color":          "output.color",
	"output":         "output.format",
}

// Result is a loaded configuration plus where it came from.
type Result struct {
	*Config

	// File is the configuration file that was read, or "".
	File string
}

// findFile returns the configuration file to read.
// Priority: explicit path > liveset.yaml > liveset.yml
func findFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range FileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey maps LIVESET_SOURCE_MAX_BYTES to source.max_bytes.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Load reads configuration from defaults, file, environment and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Result, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.New("L020").WithDetail("failed to load defaults").Wrap(err)
	}

	// 2. File
	used := findFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, errors.New("L021").WithDetailf("error reading %s", used).Wrap(err)
		}
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.New("L020").WithDetail("failed to load environment").Wrap(err)
	}

	// 4. Flags, only those set explicitly
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errors.New("L020").WithDetail("failed to load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.New("L020").WithDetail("unable to decode configuration").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Result{Config: &cfg, File: used}, nil
}

// Default returns the built-in configuration, ignoring files, environment
// and flags.
func Default() *Config {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(defaults(), "."), nil)
	var cfg Config
	_ = k.Unmarshal("", &cfg)
	return &cfg
}
