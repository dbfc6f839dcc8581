// Package config loads memon settings from a YAML file and the environment.
// Command-line flags are applied on top by the caller, giving the precedence
// flags > environment > file > defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/srodi/memon/pkg/collector/snapshot"
	"github.com/srodi/memon/pkg/types"
)

const (
	OutputText = "text"
	OutputYAML = "yaml"

	// MinNameWidth leaves room for at least one character before "...".
	MinNameWidth = 4
)

var (
	ErrInvalidOutput    = errors.New("invalid output format")
	ErrInvalidSource    = errors.New("invalid snapshot source")
	ErrInvalidNameWidth = errors.New("invalid name width")
	ErrInvalidWatch     = errors.New("invalid watch interval")
	ErrInvalidLogLevel  = errors.New("invalid log level")
)

// Config holds every setting that can come from a file.
type Config struct {
	NameWidth int     `yaml:"name_width"`
	NoColor   bool    `yaml:"no_color"`
	Verbose   bool    `yaml:"verbose"`
	Watch     float64 `yaml:"watch"` // seconds, 0 disables watch mode
	Output    string  `yaml:"output"`
	Source    string  `yaml:"source"`
	LogLevel  string  `yaml:"log_level"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		NameWidth: types.DefaultNameWidth,
		Output:    OutputText,
		Source:    string(snapshot.KindAuto),
		LogLevel:  "warn",
	}
}

// WatchInterval converts the watch setting to a duration.
func (c Config) WatchInterval() time.Duration {
	return time.Duration(c.Watch * float64(time.Second))
}

// Load reads path over the defaults. A missing file yields the defaults;
// unknown keys are rejected so typos do not pass silently.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolvePath picks the config file: the flag value, then MEMON_CONFIG, then
// $XDG_CONFIG_HOME/memon/config.yaml, then ~/.config/memon/config.yaml.
// It returns "" when no location can be determined.
func ResolvePath(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	if val := os.Getenv("MEMON_CONFIG"); val != "" {
		return val
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "memon", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "memon", "config.yaml")
}

// ApplyEnvOverrides copies MEMON_* and NO_COLOR settings into cfg. Values that
// do not parse are logged and ignored.
func ApplyEnvOverrides(cfg *Config, logger *zap.SugaredLogger) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if val := os.Getenv("MEMON_WATCH"); val != "" {
		if secs, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Watch = secs
			logger.Debugf("Env override: MEMON_WATCH = %s", val)
		} else {
			logger.Warnf("Invalid MEMON_WATCH format: %s", val)
		}
	}
	if val := os.Getenv("MEMON_SOURCE"); val != "" {
		cfg.Source = val
		logger.Debugf("Env override: MEMON_SOURCE = %s", val)
	}
	if val := os.Getenv("MEMON_OUTPUT"); val != "" {
		cfg.Output = val
		logger.Debugf("Env override: MEMON_OUTPUT = %s", val)
	}
	if val := os.Getenv("MEMON_NAME_WIDTH"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.NameWidth = n
			logger.Debugf("Env override: MEMON_NAME_WIDTH = %s", val)
		} else {
			logger.Warnf("Invalid MEMON_NAME_WIDTH format: %s", val)
		}
	}
	if val := os.Getenv("MEMON_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
		logger.Debugf("Env override: MEMON_LOG_LEVEL = %s", val)
	}
	if val := os.Getenv("NO_COLOR"); val != "" {
		cfg.NoColor = true
		logger.Debugf("Env override: NO_COLOR = %s", val)
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var err error
	switch strings.ToLower(c.Output) {
	case OutputText, OutputYAML:
	default:
		err = multierr.Append(err, fmt.Errorf("%w %q (want %s or %s)", ErrInvalidOutput, c.Output, OutputText, OutputYAML))
	}
	if _, perr := snapshot.ParseKind(c.Source); perr != nil {
		err = multierr.Append(err, fmt.Errorf("%w: %w", ErrInvalidSource, perr))
	}
	if c.NameWidth < MinNameWidth {
		err = multierr.Append(err, fmt.Errorf("%w %d (minimum %d)", ErrInvalidNameWidth, c.NameWidth, MinNameWidth))
	}
	if c.Watch < 0 {
		err = multierr.Append(err, fmt.Errorf("%w %g (must be positive)", ErrInvalidWatch, c.Watch))
	}
	if _, perr := zapcore.ParseLevel(c.LogLevel); perr != nil {
		err = multierr.Append(err, fmt.Errorf("%w %q", ErrInvalidLogLevel, c.LogLevel))
	}
	return err
}
