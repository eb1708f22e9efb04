package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ofie/server/internal/recommend"
)

// LoadScoring returns the default scoring constants overlaid with the YAML
// file at path. An empty path yields the defaults.
func LoadScoring(path string) (*recommend.Config, error) {
	cfg := recommend.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scoring config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	return cfg, nil
}
