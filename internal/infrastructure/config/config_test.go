package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/farazpawle/agent-flow-sub001/internal/storage"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RetentionDays != 30 || cfg.FlushIntervalMS != 100 || cfg.PageSize != 20 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ArchiveSchedule != "@hourly" {
		t.Errorf("unexpected default schedule %q", cfg.ArchiveSchedule)
	}
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, storage.DataDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "retention_days: 7\n"
	if err := os.WriteFile(filepath.Join(dir, storage.ConfigFile), []byte(content), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RetentionDays != 7 {
		t.Errorf("explicit value lost: %d", cfg.RetentionDays)
	}
	if cfg.FlushIntervalMS != 100 || cfg.PageSize != 20 {
		t.Errorf("missing keys must fall back to defaults: %+v", cfg)
	}
}

func TestLoad_MalformedFileFails(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, storage.DataDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, storage.ConfigFile), []byte("retention_days: [1, 2\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(root); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	want := &EngineConfig{RetentionDays: 14, FlushIntervalMS: 250, PageSize: 50, ArchiveSchedule: "@daily"}
	if err := Save(root, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip mismatch: %+v vs %+v", got, want)
	}
}

func TestEngineConfig_DurationHelpers(t *testing.T) {
	cfg := &EngineConfig{RetentionDays: 2, FlushIntervalMS: 150}
	if cfg.Retention() != 48*time.Hour {
		t.Errorf("Retention() = %v", cfg.Retention())
	}
	if cfg.FlushInterval() != 150*time.Millisecond {
		t.Errorf("FlushInterval() = %v", cfg.FlushInterval())
	}
}
