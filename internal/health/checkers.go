// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"time"
)

// Pinger is satisfied by stores that can verify connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker reports readiness of the history store.
type StoreChecker struct {
	store Pinger
}

// NewStoreChecker wraps a store for readiness checks.
func NewStoreChecker(store Pinger) *StoreChecker {
	return &StoreChecker{store: store}
}

func (c *StoreChecker) Name() string { return "history" }

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// SchedulerChecker reports degraded when the scheduler has not produced
// a report for more than the staleness limit. The limit is read on every
// check so that interval changes from a config reload apply immediately.
type SchedulerChecker struct {
	lastRun    func() (time.Time, bool)
	staleAfter func() time.Duration
}

// NewSchedulerChecker builds a staleness checker over the scheduler's
// last run timestamp.
func NewSchedulerChecker(lastRun func() (time.Time, bool), staleAfter func() time.Duration) *SchedulerChecker {
	return &SchedulerChecker{lastRun: lastRun, staleAfter: staleAfter}
}

func (c *SchedulerChecker) Name() string { return "scheduler" }

func (c *SchedulerChecker) Check(_ context.Context) CheckResult {
	last, ok := c.lastRun()
	if !ok {
		// No run yet; normal right after startup.
		return CheckResult{Status: StatusHealthy, Message: "no probe run yet"}
	}
	limit := c.staleAfter()
	age := time.Since(last)
	if age > limit {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("last probe run %s ago (limit %s)", age.Round(time.Second), limit),
		}
	}
	return CheckResult{Status: StatusHealthy}
}
