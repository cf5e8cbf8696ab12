// Package config loads the checker's YAML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the CLI configuration. Flags override file values; the token
// budget in particular is always injected configuration, never a constant
// baked into the projection code.
type Config struct {
	ProfilesDir  string `yaml:"profiles_dir"`
	TokenBudget  int64  `yaml:"token_budget"`
	Offline      bool   `yaml:"offline"`
	OnParseError string `yaml:"on_parse_error"`
}

// configPath returns the path to the config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".claude-block-checker.yaml"), nil
}

// defaultProfilesDir is where profiles live unless configured otherwise.
func defaultProfilesDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "claude-profiles"), nil
}

// Load reads the configuration from disk. A missing file yields defaults.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, err
	}

	if cfg.ProfilesDir == "" {
		dir, err := defaultProfilesDir()
		if err != nil {
			return nil, err
		}
		cfg.ProfilesDir = dir
	}
	if cfg.OnParseError == "" {
		cfg.OnParseError = "skip"
	}

	return &cfg, nil
}

// Save writes the configuration to disk.
func Save(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
