// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/stepwatch/internal/config"
	swlog "github.com/ManuGH/stepwatch/internal/log"
	"github.com/ManuGH/stepwatch/internal/probe"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	daemonMode := flag.Bool("daemon", false, "run as daemon with API and metrics servers")
	thresholdMS := flag.Int("threshold", -1, "override verdict threshold in ms (one-shot)")
	workload := flag.Duration("workload", 0, "override simulated workload duration (one-shot)")
	samples := flag.Int("samples", 0, "override sample count (one-shot)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	swlog.Configure(swlog.Config{
		Level:   "info",
		Service: "stepwatch",
		Version: version,
	})
	logger := swlog.WithComponent("main")

	// Determine config path:
	// - Explicit via --config
	// - Otherwise auto-load ${STEPWATCH_DATA}/config.yaml if it exists
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("STEPWATCH_DATA", config.Defaults().DataDir))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	// Load configuration with precedence: ENV > File > Defaults
	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	// Reconfigure logger with the loaded level and service name
	swlog.Configure(swlog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: version,
	})
	logger = swlog.WithComponent("main")

	// One-shot flag overrides
	if *thresholdMS >= 0 {
		cfg.ThresholdMS = *thresholdMS
	}
	if *workload > 0 {
		cfg.Workload = *workload
	}
	if *samples > 0 {
		cfg.Samples = *samples
	}

	if !*daemonMode {
		os.Exit(runOnce(context.Background(), os.Stdout, cfg))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runDaemon(ctx, cfg, loader, effectiveConfigPath); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon exited with error")
	}
	logger.Info().Msg("server exiting")
}

// runOnce executes a single probe and prints the verdict, preserving the
// original command-line behavior. Exit code 1 signals a detection so
// scripts can branch on it.
func runOnce(ctx context.Context, w io.Writer, cfg config.AppConfig) int {
	p := probe.New(probe.Options{
		Threshold: time.Duration(cfg.ThresholdMS) * time.Millisecond,
		Workload:  cfg.Workload,
		Samples:   cfg.Samples,
		Diag:      w,
	})

	rep, err := p.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe interrupted: %v\n", err)
		return 2
	}

	if rep.Debugged {
		fmt.Fprintln(w, "Debugging detected!")
		return 1
	}
	fmt.Fprintln(w, "No debugging detected.")
	return 0
}
