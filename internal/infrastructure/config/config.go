// Package config loads and persists engine settings from the data
// directory's YAML config file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/farazpawle/agent-flow-sub001/internal/storage"
)

// EngineConfig holds the tunable knobs of the engine.
type EngineConfig struct {
	// RetentionDays controls how long completed tasks stay in the hot
	// store before the archiver moves them out.
	RetentionDays int `yaml:"retention_days"`
	// FlushIntervalMS is the write batcher's quiet period in milliseconds.
	FlushIntervalMS int `yaml:"flush_interval_ms"`
	// PageSize is the default query page size.
	PageSize int `yaml:"page_size"`
	// ArchiveSchedule is a cron spec for background archival passes.
	ArchiveSchedule string `yaml:"archive_schedule"`
}

// Default returns the built-in settings used when no config file exists.
func Default() *EngineConfig {
	return &EngineConfig{
		RetentionDays:   30,
		FlushIntervalMS: 100,
		PageSize:        20,
		ArchiveSchedule: "@hourly",
	}
}

// Retention returns the archival retention window as a duration.
func (c *EngineConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// FlushInterval returns the batcher quiet period as a duration.
func (c *EngineConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMS) * time.Millisecond
}

// Load reads the engine config from the data directory under root. A
// missing file yields the defaults; unknown keys are ignored.
func Load(root string) (*EngineConfig, error) {
	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(storage.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// Save writes cfg to the data directory under root.
func Save(root string, cfg *EngineConfig) error {
	repo := storage.NewFilesystemRepository(root)
	if err := repo.Initialize(); err != nil {
		return err
	}
	path, err := repo.ResolvePath(storage.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil { // #nosec G306 -- config may hold local paths
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *EngineConfig) fillDefaults() {
	def := Default()
	if c.RetentionDays <= 0 {
		c.RetentionDays = def.RetentionDays
	}
	if c.FlushIntervalMS <= 0 {
		c.FlushIntervalMS = def.FlushIntervalMS
	}
	if c.PageSize <= 0 {
		c.PageSize = def.PageSize
	}
	if c.ArchiveSchedule == "" {
		c.ArchiveSchedule = def.ArchiveSchedule
	}
}
