// Package config loads ruminate settings from defaults, an optional config
// file, the environment and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys understood by Load.
const (
	KeyModel           = "model"
	KeyPattern         = "pattern"
	KeyPatternsFile    = "patterns_file"
	KeyMaxRounds       = "max_rounds"
	KeyStream          = "stream"
	KeyNATSURL         = "nats_url"
	KeyTemporalAddress = "temporal_address"
	KeyTaskQueue       = "task_queue"
	KeyLogLevel        = "log_level"
)

// envKeys maps config keys to the environment variables that set them.
var envKeys = map[string]string{
	KeyModel:           "OPENAI_DEFAULT_MODEL",
	KeyPattern:         "RUMINATE_PATTERN",
	KeyPatternsFile:    "RUMINATE_PATTERNS_FILE",
	KeyMaxRounds:       "RUMINATE_MAX_ROUNDS",
	KeyStream:          "RUMINATE_STREAM",
	KeyNATSURL:         "NATS_URL",
	KeyTemporalAddress: "TEMPORAL_ADDRESS",
	KeyTaskQueue:       "RUMINATE_TASK_QUEUE",
	KeyLogLevel:        "RUMINATE_LOG_LEVEL",
}

// UsePatternRounds is the MaxRounds value that defers to the pattern.
const UsePatternRounds = -1

type Config struct {
	Model     string `mapstructure:"model"`
	Pattern   string `mapstructure:"pattern"`
	MaxRounds int    `mapstructure:"max_rounds"`
	Stream    bool   `mapstructure:"stream"`

	// PatternsFile names a JSON file with extra patterns.
	PatternsFile string `mapstructure:"patterns_file"`

	NATSURL         string `mapstructure:"nats_url"`
	TemporalAddress string `mapstructure:"temporal_address"`
	TaskQueue       string `mapstructure:"task_queue"`
	LogLevel        string `mapstructure:"log_level"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Model:     "gpt-4o-mini",
		Pattern:   "reflection",
		MaxRounds: UsePatternRounds,
		Stream:    true,
		TaskQueue: "ruminate",
		LogLevel:  "info",
	}
}

// New creates a viper instance with defaults and environment bindings. When
// file is not empty it is read as the config file; its format follows the
// extension.
func New(file string) (*viper.Viper, error) {
	v := viper.New()

	d := Default()
	v.SetDefault(KeyModel, d.Model)
	v.SetDefault(KeyPattern, d.Pattern)
	v.SetDefault(KeyPatternsFile, d.PatternsFile)
	v.SetDefault(KeyMaxRounds, d.MaxRounds)
	v.SetDefault(KeyStream, d.Stream)
	v.SetDefault(KeyNATSURL, d.NATSURL)
	v.SetDefault(KeyTemporalAddress, d.TemporalAddress)
	v.SetDefault(KeyTaskQueue, d.TaskQueue)
	v.SetDefault(KeyLogLevel, d.LogLevel)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// BindFlags binds the flags that are present in fs to their keys. Flag
// names use dashes where keys use underscores.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	for key := range envKeys {
		name := strings.ReplaceAll(key, "_", "-")
		if f := fs.Lookup(name); f != nil {
			err = errors.Join(err, v.BindPFlag(key, f))
		}
	}
	return err
}

// Load decodes and validates the settings.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var err error
	if strings.TrimSpace(c.Model) == "" {
		err = errors.Join(err, errors.New("model is required"))
	}
	if c.MaxRounds < UsePatternRounds {
		err = errors.Join(err, fmt.Errorf("max rounds must be at least %d, got %d", UsePatternRounds, c.MaxRounds))
	}
	if _, lerr := c.Level(); lerr != nil {
		err = errors.Join(err, lerr)
	}
	return err
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Remote reports whether a Temporal address is configured.
func (c Config) Remote() bool {
	return c.TemporalAddress != ""
}
