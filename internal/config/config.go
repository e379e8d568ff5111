// Package config provides the configuration schema and loader for the
// edgevox speech client.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for edgevox.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Speech SpeechConfig `yaml:"speech"`
	Player PlayerConfig `yaml:"player"`
	Server ServerConfig `yaml:"server"`
}

// SpeechConfig holds synthesis parameters sent to the speech service.
type SpeechConfig struct {
	// Voice is the voice short name (e.g., "en-US-AriaNeural").
	Voice string `yaml:"voice"`

	// Rate is the speaking rate as a signed percentage (e.g., "+10%").
	Rate string `yaml:"rate"`

	// Volume is the output volume as a signed percentage (e.g., "-20%").
	Volume string `yaml:"volume"`

	// Pitch is the pitch shift in signed Hz (e.g., "+5Hz").
	Pitch string `yaml:"pitch"`

	// OutputFormat selects the encoded audio container/codec.
	OutputFormat string `yaml:"output_format"`

	// ConnectTimeout bounds each connection attempt and the no-data window.
	// Zero disables both.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// PlayerConfig holds local playback settings.
type PlayerConfig struct {
	// VolumeDB adjusts playback gain in decibels; negative is quieter.
	VolumeDB float64 `yaml:"volume_db"`
}

// ServerConfig holds logging and observability settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr, when non-empty, serves Prometheus metrics on this address
	// (e.g., ":9091").
	MetricsAddr string `yaml:"metrics_addr"`
}

// Defaults returns a Config populated with working default values.
func Defaults() *Config {
	return &Config{
		Speech: SpeechConfig{
			Voice:          "en-US-AriaNeural",
			Rate:           "+0%",
			Volume:         "+0%",
			Pitch:          "+0Hz",
			OutputFormat:   "audio-24khz-48kbitrate-mono-mp3",
			ConnectTimeout: 10 * time.Second,
		},
		Server: ServerConfig{LogLevel: LogInfo},
	}
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Speech.Voice == "" {
		errs = append(errs, errors.New("speech.voice must not be empty"))
	}
	if err := validateSigned("speech.rate", cfg.Speech.Rate, "%"); err != nil {
		errs = append(errs, err)
	}
	if err := validateSigned("speech.volume", cfg.Speech.Volume, "%"); err != nil {
		errs = append(errs, err)
	}
	if err := validateSigned("speech.pitch", cfg.Speech.Pitch, "Hz"); err != nil {
		errs = append(errs, err)
	}
	if cfg.Speech.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("speech.connect_timeout must not be negative, got %s", cfg.Speech.ConnectTimeout))
	}

	return errors.Join(errs...)
}

// validateSigned checks prosody values of the form "+10%" / "-5Hz".
func validateSigned(field, value, unit string) error {
	if value == "" {
		return nil
	}
	if !strings.HasSuffix(value, unit) || (value[0] != '+' && value[0] != '-') {
		return fmt.Errorf("%s %q is invalid; expected a signed value ending in %q (e.g., \"+10%s\")", field, value, unit, unit)
	}
	return nil
}
