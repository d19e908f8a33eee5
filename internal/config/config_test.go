package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.SweepSchedule != "*/5 * * * *" {
		t.Errorf("sweep schedule = %q", cfg.SweepSchedule)
	}
	if cfg.DropThresholdPct != 10 {
		t.Errorf("drop threshold = %v", cfg.DropThresholdPct)
	}
	if cfg.LowWindowDays != 90 {
		t.Errorf("low window = %v", cfg.LowWindowDays)
	}
	if cfg.CompareTimeout != 10*time.Second {
		t.Errorf("compare timeout = %v", cfg.CompareTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PRICEINTEL_REDIS_ADDR", "localhost:6380")
	t.Setenv("PRICEINTEL_DROP_THRESHOLD_PCT", "25.5")
	t.Setenv("PRICEINTEL_ANOMALY_WINDOW", "20")
	t.Setenv("PRICEINTEL_COMPARE_TIMEOUT", "3s")
	t.Setenv("PRICEINTEL_DEBUG", "true")

	cfg := Load()
	if cfg.RedisAddr != "localhost:6380" {
		t.Errorf("redis addr = %q", cfg.RedisAddr)
	}
	if cfg.DropThresholdPct != 25.5 {
		t.Errorf("drop threshold = %v", cfg.DropThresholdPct)
	}
	if cfg.AnomalyWindow != 20 {
		t.Errorf("anomaly window = %v", cfg.AnomalyWindow)
	}
	if cfg.CompareTimeout != 3*time.Second {
		t.Errorf("compare timeout = %v", cfg.CompareTimeout)
	}
	if !cfg.Debug {
		t.Error("debug should be on")
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("PRICEINTEL_ANOMALY_WINDOW", "lots")
	t.Setenv("PRICEINTEL_COMPARE_TIMEOUT", "soon")

	cfg := Load()
	if cfg.AnomalyWindow != 10 {
		t.Errorf("anomaly window = %v, want default 10", cfg.AnomalyWindow)
	}
	if cfg.CompareTimeout != 10*time.Second {
		t.Errorf("compare timeout = %v, want default", cfg.CompareTimeout)
	}
}
