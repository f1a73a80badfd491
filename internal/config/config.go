// Package config provides configuration loading and management for leafscan.
// It handles loading configuration from YAML files. Defaults resize to
// 256x256 with a 5x5 blur, treat brown and dark-yellow HSV as lesion color,
// drop spots of area 100 or less and train a 100-tree forest with seed 42.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by FromEnv.
const (
	EnvConfigPath = "LEAFSCAN_CONFIG"
	EnvLogLevel   = "LEAFSCAN_LOG_LEVEL"
)

// HSVBounds is an inclusive box in 8-bit HSV (H 0-179, S and V 0-255).
type HSVBounds struct {
	Lower [3]uint8 `yaml:"lower"`
	Upper [3]uint8 `yaml:"upper"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Preprocess controls resizing and smoothing of input images
	Preprocess struct {
		// Width and Height are the exact target dimensions after resize
		Width  int `yaml:"width"`
		Height int `yaml:"height"`

		// BlurKernel is the side of the square Gaussian kernel (odd)
		BlurKernel int `yaml:"blurKernel"`
	} `yaml:"preprocess"`

	// Spots controls lesion segmentation
	Spots struct {
		// Bounds is the lesion color box in analysis space
		Bounds HSVBounds `yaml:"bounds"`

		// MinArea discards regions whose area is <= this value
		MinArea float64 `yaml:"minArea"`
	} `yaml:"spots"`

	// Classifier controls the random forest used for health labels
	Classifier struct {
		Trees        int     `yaml:"trees"`
		MaxDepth     int     `yaml:"maxDepth"`
		MinLeaf      int     `yaml:"minLeaf"`
		TestFraction float64 `yaml:"testFraction"`
		Seed         int64   `yaml:"seed"`

		// Workers bounds concurrent feature extraction and tree fitting;
		// 0 uses every CPU
		Workers int `yaml:"workers"`
	} `yaml:"classifier"`

	Model struct {
		// Path is the well-known location of the model artifact
		Path string `yaml:"path"`
	} `yaml:"model"`

	Log struct {
		// Level is "info" or "debug"
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Preprocess.Width = 256
	cfg.Preprocess.Height = 256
	cfg.Preprocess.BlurKernel = 5

	// Brown and dark-yellow lesion coloration
	cfg.Spots.Bounds = HSVBounds{
		Lower: [3]uint8{0, 40, 20},
		Upper: [3]uint8{30, 255, 200},
	}
	cfg.Spots.MinArea = 100

	cfg.Classifier.Trees = 100
	cfg.Classifier.MaxDepth = 0
	cfg.Classifier.MinLeaf = 1
	cfg.Classifier.TestFraction = 0.2
	cfg.Classifier.Seed = 42
	cfg.Classifier.Workers = 0

	cfg.Model.Path = "model.json"
	cfg.Log.Level = "info"

	return cfg
}

// Validate reports the first setting that cannot drive the pipeline.
func (c *Config) Validate() error {
	if c.Preprocess.Width <= 0 || c.Preprocess.Height <= 0 {
		return fmt.Errorf("preprocess size must be positive, got %dx%d", c.Preprocess.Width, c.Preprocess.Height)
	}
	if c.Preprocess.BlurKernel < 1 || c.Preprocess.BlurKernel%2 == 0 {
		return fmt.Errorf("preprocess blurKernel must be a positive odd number, got %d", c.Preprocess.BlurKernel)
	}
	for i := 0; i < 3; i++ {
		if c.Spots.Bounds.Lower[i] > c.Spots.Bounds.Upper[i] {
			return fmt.Errorf("spots bounds channel %d: lower %d exceeds upper %d",
				i, c.Spots.Bounds.Lower[i], c.Spots.Bounds.Upper[i])
		}
	}
	if c.Spots.MinArea < 0 {
		return fmt.Errorf("spots minArea must not be negative, got %g", c.Spots.MinArea)
	}
	if c.Classifier.Trees <= 0 {
		return fmt.Errorf("classifier trees must be positive, got %d", c.Classifier.Trees)
	}
	if c.Classifier.TestFraction <= 0 || c.Classifier.TestFraction >= 1 {
		return fmt.Errorf("classifier testFraction must be in (0,1), got %g", c.Classifier.TestFraction)
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model path must not be empty")
	}
	return nil
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return c.Log.Level == "debug"
}

// Load loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func Load(configPath string) (*Config, error) {
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return cfg, nil
}

// FromEnv loads path, or the file named by LEAFSCAN_CONFIG when path is
// empty, and applies LEAFSCAN_LOG_LEVEL on top.
func FromEnv(path string) (*Config, error) {
	if p := os.Getenv(EnvConfigPath); p != "" && path == "" {
		path = p
	}

	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

// Save saves the configuration to a YAML file
func Save(cfg *Config, configPath string) error {
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
