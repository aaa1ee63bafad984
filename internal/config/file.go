// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML schema. Pointer fields distinguish "absent"
// from zero values so the file only overrides what it sets.
type fileConfig struct {
	ThresholdMS *int    `yaml:"threshold_ms"`
	Workload    *string `yaml:"workload"`
	Samples     *int    `yaml:"samples"`
	Interval    *string `yaml:"interval"`

	API *struct {
		ListenAddr   *string `yaml:"listenAddr"`
		Token        *string `yaml:"token"`
		RateLimitRPM *int    `yaml:"rateLimitRPM"`
	} `yaml:"api"`

	Metrics *struct {
		Enabled *bool   `yaml:"enabled"`
		Addr    *string `yaml:"addr"`
	} `yaml:"metrics"`

	DataDir     *string `yaml:"dataDir"`
	HistoryPath *string `yaml:"historyPath"`
	StatusPath  *string `yaml:"statusPath"`

	Logging *struct {
		Level   *string `yaml:"level"`
		Service *string `yaml:"service"`
	} `yaml:"logging"`
}

// loadFile reads and parses the YAML config file. A missing file is not
// an error (ENV-only operation); a malformed file is.
func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file is equivalent to no file.
			return nil, nil
		}
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// mergeFile applies file values over cfg. Durations are parsed in Go
// syntax ("10ms", "30s").
func mergeFile(cfg *AppConfig, fc *fileConfig) error {
	if fc == nil {
		return nil
	}
	if fc.ThresholdMS != nil {
		cfg.ThresholdMS = *fc.ThresholdMS
	}
	if fc.Workload != nil {
		d, err := time.ParseDuration(*fc.Workload)
		if err != nil {
			return fmt.Errorf("invalid workload duration %q: %w", *fc.Workload, err)
		}
		cfg.Workload = d
	}
	if fc.Samples != nil {
		cfg.Samples = *fc.Samples
	}
	if fc.Interval != nil {
		d, err := time.ParseDuration(*fc.Interval)
		if err != nil {
			return fmt.Errorf("invalid interval duration %q: %w", *fc.Interval, err)
		}
		cfg.Interval = d
	}
	if fc.API != nil {
		if fc.API.ListenAddr != nil {
			cfg.ListenAddr = *fc.API.ListenAddr
		}
		if fc.API.Token != nil {
			cfg.APIToken = *fc.API.Token
		}
		if fc.API.RateLimitRPM != nil {
			cfg.RateLimitRPM = *fc.API.RateLimitRPM
		}
	}
	if fc.Metrics != nil {
		if fc.Metrics.Enabled != nil {
			cfg.MetricsEnabled = *fc.Metrics.Enabled
		}
		if fc.Metrics.Addr != nil {
			cfg.MetricsAddr = *fc.Metrics.Addr
		}
	}
	if fc.DataDir != nil {
		cfg.DataDir = *fc.DataDir
	}
	if fc.HistoryPath != nil {
		cfg.HistoryPath = *fc.HistoryPath
	}
	if fc.StatusPath != nil {
		cfg.StatusPath = *fc.StatusPath
	}
	if fc.Logging != nil {
		if fc.Logging.Level != nil {
			cfg.LogLevel = *fc.Logging.Level
		}
		if fc.Logging.Service != nil {
			cfg.LogService = *fc.Logging.Service
		}
	}
	return nil
}
