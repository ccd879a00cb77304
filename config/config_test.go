package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigHasSaneDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("expected metrics enabled by default")
	}
	if len(cfg.Metrics.HistogramBuckets) == 0 {
		t.Fatal("expected default histogram buckets")
	}
}

func TestLoadFromFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	body := []byte("logging:\n  level: debug\nstages:\n  - name: extract-orders\n    threads: 4\n    queue_capacity: 500\n")
	if err := os.WriteFile(path, body, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected overridden log level debug, got %q", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("expected default metrics.enabled to survive the overlay")
	}
	stage, ok := cfg.StageByName("extract-orders")
	if !ok {
		t.Fatal("expected extract-orders stage to be present")
	}
	if stage.Threads != 4 || stage.QueueCapacity != 500 {
		t.Fatalf("unexpected stage config: %+v", stage)
	}
}

func TestStageByNameMissingReturnsFalse(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok := cfg.StageByName("nope"); ok {
		t.Fatal("expected StageByName to report missing stage")
	}
}

func TestLoadFromEnvOverridesLoggingAndRedis(t *testing.T) {
	t.Setenv("POCKETETL_LOG_LEVEL", "warn")
	t.Setenv("POCKETETL_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("POCKETETL_REDIS_DB", "3")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected log level warn, got %q", cfg.Logging.Level)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Fatalf("expected overridden redis addr, got %q", cfg.Redis.Addr)
	}
	if cfg.Redis.DB != 3 {
		t.Fatalf("expected overridden redis db, got %d", cfg.Redis.DB)
	}
}
