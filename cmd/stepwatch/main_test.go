// SPDX-License-Identifier: MIT
package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ManuGH/stepwatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnceDefaultsAreClean(t *testing.T) {
	// The original defaults: 10ms workload against a 5000ms threshold.
	cfg := config.Defaults()
	cfg.ResolvePaths()

	var out bytes.Buffer
	code := runOnce(context.Background(), &out, cfg)

	assert.Equal(t, 0, code)
	assert.Equal(t, "No debugging detected.\n", out.String())
}

func TestRunOnceDetectsSlowRun(t *testing.T) {
	// A 5ms threshold against a 10ms workload must flag the run and
	// print the diagnostic line before the verdict.
	cfg := config.Defaults()
	cfg.ResolvePaths()
	cfg.ThresholdMS = 5
	cfg.Workload = 10 * time.Millisecond

	var out bytes.Buffer
	code := runOnce(context.Background(), &out, cfg)

	assert.Equal(t, 1, code)
	lines := bytes.Split(bytes.TrimRight(out.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "possibly being debugged")
	assert.Equal(t, "Debugging detected!", string(lines[1]))
}

func TestRunOnceCancelled(t *testing.T) {
	cfg := config.Defaults()
	cfg.ResolvePaths()
	cfg.Workload = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	code := runOnce(ctx, &out, cfg)
	assert.Equal(t, 2, code)
	assert.Empty(t, out.String())
}
