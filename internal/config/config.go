// SPDX-License-Identifier: MIT

// Package config loads stepwatch configuration with precedence
// ENV > file > defaults, mirroring the environment-first operation
// of the daemon.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	// Probe
	ThresholdMS int           // verdict boundary in milliseconds
	Workload    time.Duration // fixed simulated routine duration
	Samples     int           // probe runs per measurement, verdict on max

	// Daemon
	Interval time.Duration // probe period in daemon mode

	// API
	ListenAddr   string
	APIToken     string
	RateLimitRPM int

	// Metrics
	MetricsEnabled bool
	MetricsAddr    string

	// Storage
	DataDir     string
	HistoryPath string // sqlite database with probe reports
	StatusPath  string // atomically rewritten JSON snapshot of the latest report

	// Logging
	LogLevel   string
	LogService string

	Version string
}

// Defaults returns the built-in configuration.
// Threshold and workload match the original single-shot probe values.
func Defaults() AppConfig {
	return AppConfig{
		ThresholdMS:    5000,
		Workload:       10 * time.Millisecond,
		Samples:        1,
		Interval:       30 * time.Second,
		ListenAddr:     ":8080",
		RateLimitRPM:   120,
		MetricsEnabled: true,
		MetricsAddr:    ":9090",
		DataDir:        "/tmp/stepwatch",
		LogLevel:       "info",
		LogService:     "stepwatch",
	}
}

// ResolvePaths fills derived file paths from DataDir when unset.
func (c *AppConfig) ResolvePaths() {
	if c.HistoryPath == "" {
		c.HistoryPath = filepath.Join(c.DataDir, "history.db")
	}
	if c.StatusPath == "" {
		c.StatusPath = filepath.Join(c.DataDir, "status.json")
	}
}

// Validate rejects configurations the probe or daemon cannot run with.
// Invalid values are errors rather than silent clamps so a bad deploy
// fails fast.
func Validate(c AppConfig) error {
	if c.ThresholdMS < 0 {
		return fmt.Errorf("threshold must be >= 0 ms (got %d)", c.ThresholdMS)
	}
	if c.Workload < 0 {
		return fmt.Errorf("workload must be >= 0 (got %s)", c.Workload)
	}
	if c.Samples < 1 {
		return fmt.Errorf("samples must be >= 1 (got %d)", c.Samples)
	}
	if c.Interval < time.Second {
		return fmt.Errorf("interval must be >= 1s (got %s)", c.Interval)
	}
	if c.RateLimitRPM < 1 {
		return fmt.Errorf("rate limit must be >= 1 rpm (got %d)", c.RateLimitRPM)
	}
	if c.MetricsEnabled && c.MetricsAddr == "" {
		return fmt.Errorf("metrics enabled but no metrics address configured")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	return nil
}
