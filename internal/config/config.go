// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the settings shared by the batch binaries and any
// embedding service. Everything has a working default; only RedisAddr
// being empty changes behavior (in-memory caching).
type Config struct {
	// RedisAddr is the cache server address. Empty selects the
	// in-process cache.
	RedisAddr string

	// SweepSchedule is the cron expression for the alert sweep.
	SweepSchedule string

	// DropThresholdPct is the minimum discount treated as a drop event.
	DropThresholdPct float64

	// LowWindowDays is the look-back window for historical lows.
	LowWindowDays int

	// HistoryMaxPerProduct bounds in-memory history per product and
	// platform. Zero keeps everything.
	HistoryMaxPerProduct int

	// AnomalyWindow and AnomalyZThreshold tune the detector.
	AnomalyWindow     int
	AnomalyZThreshold float64

	// CompareTimeout caps a cross-platform comparison.
	CompareTimeout time.Duration

	// Debug switches logging to development output.
	Debug bool
}

// Load reads configuration from the environment. A .env file is loaded
// first when present; missing is fine.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		RedisAddr:            envString("PRICEINTEL_REDIS_ADDR", ""),
		SweepSchedule:        envString("PRICEINTEL_SWEEP_SCHEDULE", "*/5 * * * *"),
		DropThresholdPct:     envFloat("PRICEINTEL_DROP_THRESHOLD_PCT", 10),
		LowWindowDays:        envInt("PRICEINTEL_LOW_WINDOW_DAYS", 90),
		HistoryMaxPerProduct: envInt("PRICEINTEL_HISTORY_MAX_PER_PRODUCT", 0),
		AnomalyWindow:        envInt("PRICEINTEL_ANOMALY_WINDOW", 10),
		AnomalyZThreshold:    envFloat("PRICEINTEL_ANOMALY_Z_THRESHOLD", 2),
		CompareTimeout:       envDuration("PRICEINTEL_COMPARE_TIMEOUT", 10*time.Second),
		Debug:                envBool("PRICEINTEL_DEBUG", false),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
