// Package config provides configuration loading and management for the
// volume filter tool. It handles loading settings from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
// Command-line flags override whatever is set here.
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use when filtering
		// independent 3D volumes of a 4D image in parallel
		NumCores int `yaml:"numCores"`

		// Quiet suppresses progress logging
		Quiet bool `yaml:"quiet"`
	} `yaml:"processing"`

	// Filter parameter defaults
	Filters struct {
		// MedianExtent is the default median neighbourhood size in voxels
		MedianExtent int `yaml:"medianExtent"`
	} `yaml:"filters"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.Quiet = false

	cfg.Filters.MedianExtent = 3

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
