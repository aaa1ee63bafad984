// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/stepwatch/internal/api"
	"github.com/ManuGH/stepwatch/internal/config"
	"github.com/ManuGH/stepwatch/internal/daemon"
	"github.com/ManuGH/stepwatch/internal/health"
	"github.com/ManuGH/stepwatch/internal/history"
	swlog "github.com/ManuGH/stepwatch/internal/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// runDaemon wires the long-running mode: periodic probes, history
// persistence, HTTP API, metrics and config hot reload.
func runDaemon(ctx context.Context, cfg config.AppConfig, loader *config.Loader, configPath string) error {
	logger := swlog.WithComponent("daemon")

	logger.Info().
		Str("event", "startup").
		Str("version", cfg.Version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Msg("starting stepwatch")

	logger.Info().Msgf("→ Threshold: %d ms", cfg.ThresholdMS)
	logger.Info().Msgf("→ Workload: %s (%d samples)", cfg.Workload, cfg.Samples)
	logger.Info().Msgf("→ Probe interval: %s", cfg.Interval)
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	if cfg.APIToken != "" {
		logger.Info().Msg("→ API token: configured")
	} else {
		logger.Warn().
			Str("security", "weak").
			Msg("→ API token: NOT configured. Set STEPWATCH_API_TOKEN to protect the probe trigger.")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	store, err := history.NewStore(cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}

	// Hot reload support: watch config file and allow SIGHUP-triggered reload
	holder := config.NewHolder(cfg, loader, configPath)
	if err := holder.StartWatcher(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start config watcher: %w", err)
	}
	go reloadOnSIGHUP(ctx, holder)

	scheduler := daemon.NewScheduler(holder, store)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewStoreChecker(store))
	// Staleness limit tracks the current interval so an interval raise
	// via reload does not falsely degrade readiness.
	hm.RegisterChecker(health.NewSchedulerChecker(scheduler.LastRun, func() time.Duration {
		return 3 * holder.Get().Interval
	}))

	apiServer := api.New(holder, scheduler, store, hm)

	serverCfg := config.ParseServerConfig()
	serverCfg.ListenAddr = cfg.ListenAddr

	deps := daemon.Deps{
		Logger:     logger,
		APIHandler: apiServer.Handler(),
		Scheduler:  scheduler,
	}
	if cfg.MetricsEnabled {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.MetricsAddr
	}

	mgr, err := daemon.NewManager(serverCfg, deps)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon manager: %w", err)
	}
	mgr.RegisterShutdownHook("history-store", func(context.Context) error {
		return store.Close()
	})

	return mgr.Start(ctx)
}

// reloadOnSIGHUP triggers a config reload on SIGHUP, the classic daemon
// convention alongside the file watcher.
func reloadOnSIGHUP(ctx context.Context, holder *config.Holder) {
	logger := swlog.WithComponent("daemon")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			logger.Info().Str("event", "config.sighup").Msg("SIGHUP received, reloading configuration")
			reloadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := holder.Reload(reloadCtx)
			cancel()
			if err != nil {
				logger.Warn().Err(err).Msg("reload rejected, keeping previous configuration")
			}
		}
	}
}
