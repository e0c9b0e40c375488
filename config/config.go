// Package config holds the beanstore command configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
)

const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the configuration file structure. Sections left out of a file
// keep their defaults.
type Config struct {
	// Root is the name of the root branch.
	Root    string        `json:"root"`
	Color   string        `json:"color"`
	Log     LogConfig     `json:"log"`
	RPC     RPCConfig     `json:"rpc"`
	Metrics MetricsConfig `json:"metrics"`
	Debug   DebugConfig   `json:"debug"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`
}

type RPCConfig struct {
	// Addr is the TCP address to serve on. Empty means stdio.
	Addr string `json:"addr"`
}

type MetricsConfig struct {
	// Addr is where /metrics is served. Empty disables it.
	Addr string `json:"addr"`
}

type DebugConfig struct {
	// Gops starts a gops agent when serving.
	Gops bool `json:"gops"`
	// Trace turns on every debug trace.
	Trace bool `json:"trace"`
}

// Load reads the configuration at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration on top of the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Root:  "main",
		Color: ColorAuto,
		Log:   LogConfig{Level: "info"},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root branch name is empty")
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color must be one of %s, %s, %s: got %q", ColorAuto, ColorAlways, ColorNever, c.Color)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return l, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}
