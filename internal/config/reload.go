// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/stepwatch/internal/log"
	"github.com/ManuGH/stepwatch/internal/metrics"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder holds configuration with atomic reloading capability.
// It provides thread-safe access and supports hot reloading from file
// changes (fsnotify) or a manual trigger (SIGHUP, API).
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	path    string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
}

// NewHolder creates a configuration holder with the initial config.
func NewHolder(initial AppConfig, loader *Loader, path string) *Holder {
	return &Holder{
		current: initial,
		loader:  loader,
		path:    path,
		logger:  log.WithComponent("config"),
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reloads configuration from file and validates it.
// If validation fails the old configuration is kept and an error is
// returned, so a reload is all-or-nothing. Every attempt is counted,
// whether it came from the file watcher, SIGHUP or a manual trigger.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		metrics.IncConfigReload(false)
		h.logger.Error().
			Err(err).
			Str("event", "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	metrics.IncConfigReload(true)
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str("event", "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher starts watching the config file for changes.
// If the holder has no file path, this is a no-op (ENV-only config).
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.path == "" {
		h.logger.Info().
			Str("event", "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	if err := watcher.Add(h.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config file: %w", err)
	}

	h.logger.Info().
		Str("event", "config.watcher_started").
		Str("path", h.path).
		Msg("watching config file for changes")

	go h.watchLoop(ctx)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context) {
	// Debounce to avoid multiple reloads for rapid successive writes
	var debounce *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			if h.watcher != nil {
				_ = h.watcher.Close()
			}
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			return

		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Warn().
						Err(err).
						Str("event", "config.reload_rejected").
						Msg("keeping previous configuration")
				}
			})

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}

func (h *Holder) logChanges(oldCfg, newCfg AppConfig) {
	if oldCfg.ThresholdMS != newCfg.ThresholdMS {
		h.logger.Info().
			Int("old", oldCfg.ThresholdMS).
			Int("new", newCfg.ThresholdMS).
			Msg("threshold changed")
	}
	if oldCfg.Workload != newCfg.Workload {
		h.logger.Info().
			Dur("old", oldCfg.Workload).
			Dur("new", newCfg.Workload).
			Msg("workload changed")
	}
	if oldCfg.Samples != newCfg.Samples {
		h.logger.Info().
			Int("old", oldCfg.Samples).
			Int("new", newCfg.Samples).
			Msg("samples changed")
	}
	if oldCfg.Interval != newCfg.Interval {
		h.logger.Info().
			Dur("old", oldCfg.Interval).
			Dur("new", newCfg.Interval).
			Msg("probe interval changed")
	}
}
