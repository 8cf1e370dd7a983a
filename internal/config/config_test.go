package config

import (
	"os"
	"testing"
	"time"
)

// clearEnv unsets every config variable for the test's duration.
// t.Setenv registers the restore; Unsetenv then removes the value, so
// an ambient LISTEN_ADDR etc. cannot leak into the assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LISTEN_ADDR", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"RECORD_RETENTION_MIN", "DETECTION_THRESHOLD",
		"UPDATE_INTERVAL_SEC", "DASHBOARD_FILE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.ListenAddr != ":8888" {
		t.Errorf("expected listen addr :8888, got %s", cfg.ListenAddr)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected redis addr localhost:6379, got %s", cfg.RedisAddr)
	}
	if cfg.DefaultThreshold != 0.85 {
		t.Errorf("expected threshold 0.85, got %g", cfg.DefaultThreshold)
	}
	if cfg.DefaultInterval != 2 {
		t.Errorf("expected interval 2, got %d", cfg.DefaultInterval)
	}
	if cfg.RecordRetention != time.Hour {
		t.Errorf("expected retention 1h, got %s", cfg.RecordRetention)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DETECTION_THRESHOLD", "0.7")
	t.Setenv("UPDATE_INTERVAL_SEC", "5")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()

	if cfg.ListenAddr != ":9000" {
		t.Errorf("expected listen addr :9000, got %s", cfg.ListenAddr)
	}
	if cfg.DefaultThreshold != 0.7 {
		t.Errorf("expected threshold 0.7, got %g", cfg.DefaultThreshold)
	}
	if cfg.DefaultInterval != 5 {
		t.Errorf("expected interval 5, got %d", cfg.DefaultInterval)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("expected redis db 3, got %d", cfg.RedisDB)
	}
}

func TestBadEnvFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPDATE_INTERVAL_SEC", "not-a-number")
	t.Setenv("DETECTION_THRESHOLD", "nope")

	cfg := Load()

	if cfg.DefaultInterval != 2 {
		t.Errorf("expected fallback interval 2, got %d", cfg.DefaultInterval)
	}
	if cfg.DefaultThreshold != 0.85 {
		t.Errorf("expected fallback threshold 0.85, got %g", cfg.DefaultThreshold)
	}
}
