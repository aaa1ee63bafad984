// SPDX-License-Identifier: MIT

package config

import "time"

// ServerConfig holds HTTP server timeouts shared by the API and metrics
// listeners.
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// ParseServerConfig reads server tuning from the environment with
// conservative defaults.
func ParseServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      ParseString("STEPWATCH_LISTEN", ":8080"),
		ReadTimeout:     ParseDuration("STEPWATCH_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    ParseDuration("STEPWATCH_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     ParseDuration("STEPWATCH_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout: ParseDuration("STEPWATCH_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}
