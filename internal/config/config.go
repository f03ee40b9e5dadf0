// Package config loads the harness configuration: an optional YAML file
// overlaid with environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PublicKeyEnv names the environment variable holding the provider key.
const PublicKeyEnv = "DESYNC_PUBLIC_KEY"

// DefaultFile is read when no explicit path is given. A missing default file
// is not an error.
const DefaultFile = "desync.yaml"

// Config holds harness configuration.
type Config struct {
	PublicKey string        `yaml:"public_key"`
	Interval  time.Duration `yaml:"interval"`  // typing period
	Text      string        `yaml:"text"`      // inserted on every tick
	Latency   time.Duration `yaml:"latency"`   // loopback delivery delay
	LogLevel  string        `yaml:"log_level"` // debug, info, warn, error
	LogFile   string        `yaml:"log_file"`
}

// DefaultConfig returns the values used when neither the file nor the
// environment sets a field.
func DefaultConfig() Config {
	return Config{
		Interval: 50 * time.Millisecond,
		Text:     "a",
		LogLevel: "info",
	}
}

// MissingKeyError reports a required configuration key that was not set.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing %s: set it in the environment or as public_key in %s", e.Key, DefaultFile)
}

// Load reads path (or DefaultFile when path is empty), applies environment
// overrides from getenv, and validates the result. getenv may be nil, in which
// case os.Getenv is used.
func Load(path string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if key := strings.TrimSpace(getenv(PublicKeyEnv)); key != "" {
		cfg.PublicKey = key
	}
	cfg.PublicKey = strings.TrimSpace(cfg.PublicKey)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c Config) Validate() error {
	if c.PublicKey == "" {
		return &MissingKeyError{Key: PublicKeyEnv}
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.Text == "" {
		return errors.New("text must not be empty")
	}
	if c.Latency < 0 {
		return fmt.Errorf("latency must not be negative, got %s", c.Latency)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}
