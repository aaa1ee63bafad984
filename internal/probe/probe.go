// SPDX-License-Identifier: MIT

// Package probe implements the timing heuristic at the core of stepwatch:
// measure wall-clock elapsed time across a fixed routine and flag the run
// when it exceeds a threshold. Debuggers slow execution down through
// single-stepping and breakpoints, which shows up as elapsed time far above
// the routine's real cost.
package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ManuGH/stepwatch/internal/log"
	"github.com/rs/zerolog"
)

// Verdict labels for logs and metrics.
const (
	VerdictClean   = "clean"
	VerdictFlagged = "flagged"
)

// Options configures a Prober.
type Options struct {
	// Threshold is the verdict boundary. Elapsed time strictly above it
	// flags the run.
	Threshold time.Duration

	// Workload is the fixed simulated routine the probe times.
	Workload time.Duration

	// Samples is how many times the workload runs per measurement.
	// The verdict is taken on the slowest sample. Defaults to 1, which
	// reproduces single-shot semantics.
	Samples int

	// Diag receives the human-readable diagnostic line when the
	// threshold is exceeded. Defaults to os.Stdout; daemons pass
	// io.Discard and rely on structured logs instead.
	Diag io.Writer

	// Now and Sleep are injectable for tests. Defaults use the real
	// monotonic clock and a context-aware sleep.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Report is the outcome of one measurement.
type Report struct {
	Time        time.Time `json:"time"`
	ThresholdMS int64     `json:"threshold_ms"`
	Samples     int       `json:"samples"`
	ElapsedMS   []int64   `json:"elapsed_ms"`
	MinMS       int64     `json:"min_ms"`
	MaxMS       int64     `json:"max_ms"`
	MeanMS      float64   `json:"mean_ms"`
	Debugged    bool      `json:"debugged"`
}

// Verdict returns the report's verdict label.
func (r Report) Verdict() string {
	if r.Debugged {
		return VerdictFlagged
	}
	return VerdictClean
}

// Prober runs timing measurements.
type Prober struct {
	opts   Options
	logger zerolog.Logger
}

// New creates a Prober, filling unset options with defaults.
func New(opts Options) *Prober {
	if opts.Samples < 1 {
		opts.Samples = 1
	}
	if opts.Diag == nil {
		opts.Diag = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Prober{
		opts:   opts,
		logger: log.WithComponent("probe"),
	}
}

// Run executes the workload, measures elapsed wall time per sample and
// returns the report. The measurement itself cannot fail; the only error
// path is ctx cancellation mid-workload.
func (p *Prober) Run(ctx context.Context) (Report, error) {
	logger := log.WithContext(ctx, p.logger)

	rep := Report{
		Time:        time.Now().UTC(),
		ThresholdMS: p.opts.Threshold.Milliseconds(),
		Samples:     p.opts.Samples,
		ElapsedMS:   make([]int64, 0, p.opts.Samples),
	}

	var sum int64
	for i := 0; i < p.opts.Samples; i++ {
		start := p.opts.Now()
		if err := p.opts.Sleep(ctx, p.opts.Workload); err != nil {
			return Report{}, fmt.Errorf("workload interrupted: %w", err)
		}
		// Sub uses the monotonic reading when both stamps carry one,
		// so wall-clock adjustments cannot shrink the measurement.
		elapsed := p.opts.Now().Sub(start).Milliseconds()
		rep.ElapsedMS = append(rep.ElapsedMS, elapsed)

		sum += elapsed
		if i == 0 || elapsed < rep.MinMS {
			rep.MinMS = elapsed
		}
		if elapsed > rep.MaxMS {
			rep.MaxMS = elapsed
		}
	}
	rep.MeanMS = float64(sum) / float64(p.opts.Samples)

	// Strict comparison: elapsed equal to the threshold is clean.
	rep.Debugged = rep.MaxMS > rep.ThresholdMS

	if rep.Debugged {
		fmt.Fprintf(p.opts.Diag, "Routine took too long to execute: %d ms, possibly being debugged.\n", rep.MaxMS)
		logger.Warn().
			Str(log.FieldEvent, "probe.flagged").
			Str(log.FieldVerdict, rep.Verdict()).
			Int64(log.FieldElapsedMS, rep.MaxMS).
			Int64(log.FieldThresholdMS, rep.ThresholdMS).
			Int(log.FieldSamples, rep.Samples).
			Msg("elapsed time exceeded threshold")
	} else {
		logger.Debug().
			Str(log.FieldEvent, "probe.clean").
			Str(log.FieldVerdict, rep.Verdict()).
			Int64(log.FieldElapsedMS, rep.MaxMS).
			Int64(log.FieldThresholdMS, rep.ThresholdMS).
			Int(log.FieldSamples, rep.Samples).
			Msg("elapsed time within threshold")
	}

	return rep, nil
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
