// SPDX-License-Identifier: MIT

// Package daemon runs the periodic probe scheduler and owns the HTTP
// server lifecycle.
package daemon

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/ManuGH/stepwatch/internal/config"
	"github.com/ManuGH/stepwatch/internal/fsutil"
	"github.com/ManuGH/stepwatch/internal/history"
	"github.com/ManuGH/stepwatch/internal/log"
	"github.com/ManuGH/stepwatch/internal/metrics"
	"github.com/ManuGH/stepwatch/internal/probe"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// historyKeep bounds the probe_runs table; older rows are pruned after
// every run.
const historyKeep = 1000

// Scheduler executes the probe at the configured interval and fans the
// report out to history, metrics and the status file.
type Scheduler struct {
	holder *config.Holder
	store  *history.Store // nil disables persistence
	logger zerolog.Logger

	// runMu serializes probe executions (ticker vs API trigger).
	runMu sync.Mutex

	mu          sync.RWMutex
	latest      probe.Report
	hasRun      bool
	lastRun     time.Time
	prevVerdict string
}

// NewScheduler creates a scheduler reading its probe options from holder
// on every run, so config reloads take effect without restart.
func NewScheduler(holder *config.Holder, store *history.Store) *Scheduler {
	return &Scheduler{
		holder: holder,
		store:  store,
		logger: log.WithComponent("scheduler"),
	}
}

// Run blocks, probing every configured interval until ctx is cancelled.
// The first probe fires immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Str("event", "scheduler.started").
		Dur("interval", s.holder.Get().Interval).
		Msg("probe scheduler started")

	for {
		if _, err := s.RunNow(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Info().Str("event", "scheduler.stopped").Msg("probe scheduler stopped")
				return nil
			}
			s.logger.Error().Err(err).Str("event", "scheduler.run_failed").Msg("probe run failed")
		}

		// Interval is re-read per cycle so a config reload applies on
		// the next tick.
		timer := time.NewTimer(s.holder.Get().Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Str("event", "scheduler.stopped").Msg("probe scheduler stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunNow executes one probe immediately and returns its report.
// Concurrent callers are serialized.
func (s *Scheduler) RunNow(ctx context.Context) (probe.Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	cfg := s.holder.Get()
	runID := uuid.NewString()
	ctx = log.ContextWithRunID(ctx, runID)

	p := probe.New(probe.Options{
		Threshold: time.Duration(cfg.ThresholdMS) * time.Millisecond,
		Workload:  cfg.Workload,
		Samples:   cfg.Samples,
		Diag:      io.Discard, // daemons log instead of printing
	})

	rep, err := p.Run(ctx)
	if err != nil {
		return probe.Report{}, err
	}

	s.publish(ctx, cfg, rep)
	return rep, nil
}

// Latest returns the most recent report, if any run has completed.
func (s *Scheduler) Latest() (probe.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasRun
}

// LastRun returns the time of the most recent run, for staleness checks.
func (s *Scheduler) LastRun() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun, s.hasRun
}

func (s *Scheduler) publish(ctx context.Context, cfg config.AppConfig, rep probe.Report) {
	logger := log.WithContext(ctx, s.logger)

	s.mu.Lock()
	prev := s.prevVerdict
	s.latest = rep
	s.hasRun = true
	s.lastRun = time.Now()
	s.prevVerdict = rep.Verdict()
	s.mu.Unlock()

	metrics.RecordProbeRun(rep.Verdict(), rep.MaxMS, rep.ThresholdMS)

	if prev != "" && prev != rep.Verdict() {
		logger.Warn().
			Str("event", "scheduler.verdict_changed").
			Str("old_verdict", prev).
			Str("new_verdict", rep.Verdict()).
			Msg("probe verdict changed")
	}

	if s.store != nil {
		if err := s.store.Insert(ctx, rep); err != nil {
			logger.Error().Err(err).Str("event", "scheduler.history_write_failed").Msg("failed to persist probe report")
		} else if err := s.store.Prune(ctx, historyKeep); err != nil {
			logger.Warn().Err(err).Str("event", "scheduler.history_prune_failed").Msg("failed to prune probe history")
		}
	}

	if cfg.StatusPath != "" {
		if err := fsutil.WriteJSONAtomic(cfg.StatusPath, rep); err != nil {
			logger.Error().
				Err(err).
				Str("event", "scheduler.status_write_failed").
				Str(log.FieldPath, cfg.StatusPath).
				Msg("failed to write status file")
		}
	}
}
