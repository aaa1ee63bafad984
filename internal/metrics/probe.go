// SPDX-License-Identifier: MIT

// Package metrics exposes prometheus collectors for probe runs and
// configuration reloads.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probeRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepwatch_probe_runs_total",
		Help: "Total probe runs by verdict",
	}, []string{"verdict"}) // verdict=clean|flagged

	probeElapsedSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stepwatch_probe_elapsed_seconds",
		Help:    "Slowest sample elapsed time per probe run",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms .. ~32s
	})

	probeOverrunMS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stepwatch_probe_overrun_ms",
		Help: "Last run's elapsed time above threshold in ms (0 when clean)",
	})

	probeThresholdMS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stepwatch_probe_threshold_ms",
		Help: "Currently configured verdict threshold in ms",
	})

	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepwatch_config_reloads_total",
		Help: "Configuration reload attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure
)

// RecordProbeRun records one completed probe measurement.
func RecordProbeRun(verdict string, maxElapsedMS, thresholdMS int64) {
	probeRunsTotal.WithLabelValues(verdict).Inc()
	probeElapsedSeconds.Observe(float64(maxElapsedMS) / 1000.0)
	probeThresholdMS.Set(float64(thresholdMS))

	overrun := maxElapsedMS - thresholdMS
	if overrun < 0 {
		overrun = 0
	}
	probeOverrunMS.Set(float64(overrun))
}

// IncConfigReload counts a configuration reload attempt.
func IncConfigReload(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	configReloadsTotal.WithLabelValues(outcome).Inc()
}
