// Package config provides configuration loading and management for the
// trabecula3d analysis parameters. It handles loading configuration
// from YAML files and provides default values matching the ones the
// estimators use internally.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"trabecula3d/pkg/anisotropy"
	"trabecula3d/pkg/ellipsoidfit"
)

// Config represents the analysis configuration loaded from YAML.
type Config struct {
	// Sampling parameters for MIL anisotropy estimation
	Sampling struct {
		// Directions is the number of random sampling orientations
		Directions int `yaml:"directions"`

		// Lines is the number of parallel lines per orientation
		Lines int `yaml:"lines"`

		// Spacing is the sampling increment along each line in voxels
		Spacing float64 `yaml:"spacing"`

		// Seed drives all random draws; a fixed seed reproduces
		// identical results
		Seed int64 `yaml:"seed"`
	} `yaml:"sampling"`

	// EllipsoidFit parameters for the ray-based ellipsoid fitter
	EllipsoidFit struct {
		// Directions is the size of the spiral ray direction set
		Directions int `yaml:"directions"`

		// MaxIterations bounds the recentre-and-refit loop
		MaxIterations int `yaml:"maxIterations"`

		// Tolerance is the convergence threshold on the centre
		// displacement in voxels
		Tolerance float64 `yaml:"tolerance"`
	} `yaml:"ellipsoidFit"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel
		// sampling
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Sampling.Directions = 128
	cfg.Sampling.Lines = 100
	cfg.Sampling.Spacing = 1.0
	cfg.Sampling.Seed = 0

	cfg.EllipsoidFit.Directions = 200
	cfg.EllipsoidFit.MaxIterations = 50
	cfg.EllipsoidFit.Tolerance = 1e-3

	cfg.Processing.NumCores = runtime.NumCPU()

	return cfg
}

// SamplingParams converts the configuration into the parameter set the
// anisotropy estimator consumes.
func (c *Config) SamplingParams() anisotropy.Params {
	return anisotropy.Params{
		Directions: c.Sampling.Directions,
		Lines:      c.Sampling.Lines,
		Spacing:    c.Sampling.Spacing,
		Seed:       c.Sampling.Seed,
		Workers:    c.Processing.NumCores,
	}
}

// FitOptions converts the configuration into ellipsoid fitter options.
func (c *Config) FitOptions() ellipsoidfit.Options {
	return ellipsoidfit.Options{
		Directions:    c.EllipsoidFit.Directions,
		MaxIterations: c.EllipsoidFit.MaxIterations,
		Tolerance:     c.EllipsoidFit.Tolerance,
	}
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

// SaveConfig saves the configuration to a YAML file.
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

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
