package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ResolvePath returns the configuration file to read: the explicit path if
// set, else $ROSTER_CONFIG, else DefaultFileName in the working directory.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return filepath.Clean(explicit)
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return filepath.Clean(env)
	}
	return DefaultFileName
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg, found, err := Read(path)
	if err != nil {
		return nil, err
	}
	if !found {
		slog.Warn("config file not found, using defaults", "path", path)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that apply further
// overrides first. found reports whether the file existed.
func Read(path string) (cfg *Config, found bool, err error) {
	cfg = NewDefaultConfig()

	found, err = loadYAMLFile(path, cfg)
	if err != nil {
		return nil, false, err
	}
	applyEnv(cfg)
	return cfg, found, nil
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config) {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.Storage.DataDir = dir
	}
}

// loadYAMLFile unmarshals the file at path into target. Returns (true, nil)
// if the file was found and parsed, (false, nil) if it does not exist, or
// (false, error) on failure.
func loadYAMLFile(path string, target any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, ErrInvalidYAML)
	}

	return true, nil
}

// Write stores cfg as YAML at path, used by `config init`.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
