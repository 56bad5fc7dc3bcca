package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/flatwire"
)

// Config represents the flatwire CLI configuration
type Config struct {
	DataDir string  `yaml:"data_dir"`
	Builder Builder `yaml:"builder"`
	Wire    Wire    `yaml:"wire"`
	Logging Logging `yaml:"logging"`
}

// Builder holds the options every encode starts from
type Builder struct {
	InitialSize    int    `yaml:"initial_size"`
	FileIdentifier string `yaml:"file_identifier"`
	SizePrefixed   bool   `yaml:"size_prefixed"`
	ForceDefaults  bool   `yaml:"force_defaults"`
}

// Wire controls transport framing
type Wire struct {
	Compress bool `yaml:"compress"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Builder: Builder{InitialSize: 1024},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// Options converts the builder section to facade options.
func (c *Config) Options() flatwire.Options {
	return flatwire.Options{
		InitialSize:    c.Builder.InitialSize,
		FileIdentifier: c.Builder.FileIdentifier,
		SizePrefixed:   c.Builder.SizePrefixed,
		ForceDefaults:  c.Builder.ForceDefaults,
	}
}

func (c *Config) Validate() error {
	if c.Builder.InitialSize < 0 {
		return fmt.Errorf("builder.initial_size must not be negative, got %d", c.Builder.InitialSize)
	}
	if n := len(c.Builder.FileIdentifier); n != 0 && n != 4 {
		return fmt.Errorf("builder.file_identifier must be 4 bytes, got %q", c.Builder.FileIdentifier)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// LoadConfig loads configuration from the specified path. Missing keys keep
// their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfigPath returns ~/.config/flatwire/config.yaml, or a file in the
// working directory when there is no home.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./flatwire.yaml"
	}
	return filepath.Join(homeDir, ".config", "flatwire", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !errors.Is(err, os.ErrNotExist)
}
