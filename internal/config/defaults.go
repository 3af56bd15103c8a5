package config

import (
	"fmt"
	"slices"

	"github.com/wizzomafizzo/setdeck/internal/constants"
	"github.com/wizzomafizzo/setdeck/internal/controls"
	"gopkg.in/yaml.v3"
)

// DefaultConfig returns the default setdeck configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultPage:  constants.DefaultPage,
		UtilityTypes: slices.Clone(controls.DefaultUtilityTypes),
		Vault: VaultConfig{
			Attempts: 5,
			Backoff:  "100ms",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
		},
	}
}

// DefaultConfigYAML returns the default configuration as YAML bytes
func DefaultConfigYAML() ([]byte, error) {
	config := DefaultConfig()
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default config to YAML: %w", err)
	}
	return data, nil
}
