// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
)

// Loader resolves the effective configuration with precedence
// ENV > file > defaults.
type Loader struct {
	path    string // optional YAML file; empty means ENV-only
	version string
}

// NewLoader creates a loader for the given config file path.
func NewLoader(path, version string) *Loader {
	return &Loader{path: path, version: version}
}

// Load builds the effective configuration. The returned config has
// already passed Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.path != "" {
		fc, err := loadFile(l.path)
		if err != nil {
			return AppConfig{}, err
		}
		if err := mergeFile(&cfg, fc); err != nil {
			return AppConfig{}, err
		}
	}

	mergeEnv(&cfg)
	cfg.ResolvePaths()

	if err := Validate(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// mergeEnv overrides cfg with any STEPWATCH_* environment variables that
// are set. The current value acts as the default, so unset vars are a
// no-op and precedence stays ENV > file > defaults.
func mergeEnv(cfg *AppConfig) {
	cfg.ThresholdMS = ParseInt("STEPWATCH_THRESHOLD_MS", cfg.ThresholdMS)
	cfg.Workload = ParseDuration("STEPWATCH_WORKLOAD", cfg.Workload)
	cfg.Samples = ParseInt("STEPWATCH_SAMPLES", cfg.Samples)
	cfg.Interval = ParseDuration("STEPWATCH_INTERVAL", cfg.Interval)

	cfg.ListenAddr = ParseString("STEPWATCH_LISTEN", cfg.ListenAddr)
	cfg.APIToken = ParseString("STEPWATCH_API_TOKEN", cfg.APIToken)
	cfg.RateLimitRPM = ParseInt("STEPWATCH_RATE_LIMIT_RPM", cfg.RateLimitRPM)

	cfg.MetricsEnabled = ParseBool("STEPWATCH_METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsAddr = ParseString("STEPWATCH_METRICS_ADDR", cfg.MetricsAddr)

	cfg.DataDir = ParseString("STEPWATCH_DATA", cfg.DataDir)
	cfg.HistoryPath = ParseString("STEPWATCH_HISTORY_PATH", cfg.HistoryPath)
	cfg.StatusPath = ParseString("STEPWATCH_STATUS_PATH", cfg.StatusPath)

	cfg.LogLevel = ParseString("STEPWATCH_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("STEPWATCH_LOG_SERVICE", cfg.LogService)
}
