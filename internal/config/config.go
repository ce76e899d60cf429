// Package config loads the engine process's YAML configuration, following
// the ecosystem convention (gopkg.in/yaml.v3) the rest of the retrieved
// corpus uses for process configuration rather than flags or environment
// variables alone.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration: bus ingestion, the downstream
// feed, metrics, and dispatcher tuning. Fields outside the core's scope
// (logging level, listen addresses) are the ambient concerns a real
// deployment of this engine would need.
type Config struct {
	Bus struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	} `yaml:"bus"`

	Feed struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		Path    string `yaml:"path"`
	} `yaml:"feed"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	} `yaml:"metrics"`

	Dispatcher struct {
		ChannelCapacity int `yaml:"channel_capacity"`
	} `yaml:"dispatcher"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration a bare `go run ./cmd/engine` boots with.
func Default() Config {
	c := Config{}
	c.Bus.Address = "0.0.0.0"
	c.Bus.Port = 9001
	c.Feed.Address = "0.0.0.0"
	c.Feed.Port = 9002
	c.Feed.Path = "/feed"
	c.Metrics.Enabled = true
	c.Metrics.Address = "0.0.0.0"
	c.Metrics.Port = 9090
	c.Dispatcher.ChannelCapacity = 1024
	c.LogLevel = "info"
	return c
}

// Load reads and parses a YAML config file at path, filling in defaults for
// anything the file omits.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
