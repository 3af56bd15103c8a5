package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/wizzomafizzo/setdeck/internal/logging"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Catalog      string        `yaml:"catalog,omitempty"`
	DefaultPage  string        `yaml:"default_page"`
	UtilityTypes []string      `yaml:"utility_types"`
	Vault        VaultConfig   `yaml:"vault"`
	Logging      LoggingConfig `yaml:"logging"`
}

type VaultConfig struct {
	Dir      string `yaml:"dir,omitempty"`
	Backoff  string `yaml:"backoff"`
	Attempts int    `yaml:"attempts"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Load reads the YAML file at path on top of the defaults. A missing file
// yields the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return LoadFromYAML(data)
}

// LoadFromYAML parses config bytes on top of the defaults.
func LoadFromYAML(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks the values the rest of the program relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DefaultPage) == "" {
		return errors.New("default_page cannot be empty")
	}
	for i, t := range c.UtilityTypes {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("utility_types entry %d is empty", i+1)
		}
	}
	if c.Vault.Attempts < 1 {
		return fmt.Errorf("vault attempts must be at least 1, got %d", c.Vault.Attempts)
	}
	if _, err := c.Vault.BackoffDuration(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// BackoffDuration parses the first retry delay of a bundle replace.
func (v VaultConfig) BackoffDuration() (time.Duration, error) {
	d, err := time.ParseDuration(v.Backoff)
	if err != nil {
		return 0, fmt.Errorf("invalid vault backoff '%s': %w", v.Backoff, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("vault backoff must be positive, got %s", v.Backoff)
	}
	return d, nil
}
