// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds engine limits and storage locations.
type Config struct {
	// MaxVersionsPerProject is the retention ceiling. Reaching it triggers
	// an autosave prune before the next version is created. A soft target:
	// creation proceeds even when pruning cannot free slots.
	MaxVersionsPerProject int `yaml:"max_versions_per_project"`

	// MaxAutoSaveVersions is the autosave count pruning aims for, minus
	// PruneMargin.
	MaxAutoSaveVersions int `yaml:"max_auto_save_versions"`

	// PruneMargin is subtracted from MaxAutoSaveVersions when pruning, so
	// consecutive creations don't re-trigger the prune immediately.
	PruneMargin int `yaml:"prune_margin"`

	// AutoSaveInterval is the default cadence for the autosave timer.
	AutoSaveInterval time.Duration `yaml:"auto_save_interval"`

	// DataDir is where the SQLite vault database lives.
	DataDir string `yaml:"data_dir"`

	// LogLevel controls engine logging: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		MaxVersionsPerProject: 50,
		MaxAutoSaveVersions:   20,
		PruneMargin:           10,
		AutoSaveInterval:      30 * time.Second,
		LogLevel:              "info",
	}
}

// Load reads a YAML config file, filling omitted fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the retention policy cannot work with.
func (c Config) Validate() error {
	if c.MaxVersionsPerProject < 1 {
		return fmt.Errorf("max_versions_per_project must be positive, got %d", c.MaxVersionsPerProject)
	}
	if c.MaxAutoSaveVersions < 1 {
		return fmt.Errorf("max_auto_save_versions must be positive, got %d", c.MaxAutoSaveVersions)
	}
	if c.PruneMargin < 0 || c.PruneMargin >= c.MaxAutoSaveVersions {
		return fmt.Errorf("prune_margin must be in [0, max_auto_save_versions), got %d", c.PruneMargin)
	}
	if c.AutoSaveInterval <= 0 {
		return fmt.Errorf("auto_save_interval must be positive, got %s", c.AutoSaveInterval)
	}
	return nil
}

// DatabasePath returns the vault database location under DataDir.
func (c Config) DatabasePath() string {
	dir := c.DataDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "vault.db")
}

// Save writes the config as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
