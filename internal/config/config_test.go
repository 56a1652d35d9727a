package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load with defaults failed: %v", err)
	}

	if cfg.Scheduler.Interval != 60*time.Second {
		t.Fatalf("expected 60s poll interval, got %s", cfg.Scheduler.Interval)
	}
	if cfg.Poller.FetchTimeout != 10*time.Second {
		t.Fatalf("expected 10s fetch timeout, got %s", cfg.Poller.FetchTimeout)
	}
	if cfg.Retention.KeepCount != 1440 {
		t.Fatalf("expected keep_count 1440, got %d", cfg.Retention.KeepCount)
	}
	if cfg.Retention.EveryInserts != 50 {
		t.Fatalf("expected every_inserts 50, got %d", cfg.Retention.EveryInserts)
	}
	if cfg.Query.WindowSize != 90 {
		t.Fatalf("expected window_size 90, got %d", cfg.Query.WindowSize)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := []byte("scheduler:\n  interval: 10m\nquery:\n  window_size: 1440\n")
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Scheduler.Interval != 10*time.Minute {
		t.Fatalf("file override lost: %s", cfg.Scheduler.Interval)
	}
	if cfg.Query.WindowSize != 1440 {
		t.Fatalf("file override lost: %d", cfg.Query.WindowSize)
	}
	// untouched keys keep their defaults
	if cfg.Poller.MaxConcurrency != 16 {
		t.Fatalf("default max_concurrency lost: %d", cfg.Poller.MaxConcurrency)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	cfg.Retention.KeepCount = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero keep_count should fail validation")
	}

	cfg, _ = Load("")
	cfg.Scheduler.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero interval should fail validation")
	}
}
