// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ManuGH/stepwatch/internal/config"
	"github.com/ManuGH/stepwatch/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		ListenAddr:      "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		IdleTimeout:     5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewManagerValidatesDeps(t *testing.T) {
	_, err := NewManager(testServerConfig(), Deps{Logger: log.Base()})
	require.Error(t, err, "missing API handler must be rejected")

	_, err = NewManager(testServerConfig(), Deps{
		Logger:     log.Base(),
		APIHandler: okHandler(),
	})
	require.Error(t, err, "missing scheduler must be rejected")

	_, err = NewManager(testServerConfig(), Deps{
		Logger:         log.Base(),
		APIHandler:     okHandler(),
		Scheduler:      NewScheduler(testHolder(t, nil), nil),
		MetricsHandler: okHandler(),
	})
	require.Error(t, err, "metrics handler without address must be rejected")
}

func TestManagerStartShutdown_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr, err := NewManager(testServerConfig(), Deps{
		Logger:     log.Base(),
		APIHandler: okHandler(),
		Scheduler:  NewScheduler(testHolder(t, nil), nil),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("manager did not shut down")
	}
}

func TestManagerRunsShutdownHooksLIFO(t *testing.T) {
	mgr, err := NewManager(testServerConfig(), Deps{
		Logger:     log.Base(),
		APIHandler: okHandler(),
		Scheduler:  NewScheduler(testHolder(t, nil), nil),
	})
	require.NoError(t, err)

	var order []string
	mgr.RegisterShutdownHook("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	mgr.RegisterShutdownHook("second", func(context.Context) error {
		order = append(order, "second")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"second", "first"}, order, "hooks run in reverse registration order")
}

func TestManagerRejectsDoubleStart(t *testing.T) {
	mgr, err := NewManager(testServerConfig(), Deps{
		Logger:     log.Base(),
		APIHandler: okHandler(),
		Scheduler:  NewScheduler(testHolder(t, nil), nil),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)

	assert.Error(t, mgr.Start(ctx), "second Start must fail")

	cancel()
	require.NoError(t, <-done)
}
