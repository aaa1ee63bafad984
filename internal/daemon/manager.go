// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/ManuGH/stepwatch/internal/config"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// Manager manages the daemon lifecycle: starting servers and the
// scheduler, handling graceful shutdown.
type Manager struct {
	serverCfg config.ServerConfig
	deps      Deps

	mu            sync.Mutex
	started       bool
	shutdownHooks []namedHook

	logger zerolog.Logger
}

// NewManager creates a new daemon manager with the given configuration
// and dependencies.
func NewManager(serverCfg config.ServerConfig, deps Deps) (*Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &Manager{
		serverCfg: serverCfg,
		deps:      deps,
		logger:    deps.Logger.With().Str("component", "manager").Logger(),
	}, nil
}

// RegisterShutdownHook registers a function to be called during shutdown.
func (m *Manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
}

// Start starts the API server, optional metrics server and the probe
// scheduler, then blocks until ctx is cancelled or a server fails.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("manager already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("listen", m.serverCfg.ListenAddr).
		Dur("read_timeout", m.serverCfg.ReadTimeout).
		Dur("write_timeout", m.serverCfg.WriteTimeout).
		Dur("shutdown_timeout", m.serverCfg.ShutdownTimeout).
		Msg("starting daemon manager")

	apiServer := &http.Server{
		Addr:         m.serverCfg.ListenAddr,
		Handler:      m.deps.APIHandler,
		ReadTimeout:  m.serverCfg.ReadTimeout,
		WriteTimeout: m.serverCfg.WriteTimeout,
		IdleTimeout:  m.serverCfg.IdleTimeout,
	}

	var metricsServer *http.Server
	if m.deps.MetricsHandler != nil {
		metricsServer = &http.Server{
			Addr:         m.deps.MetricsAddr,
			Handler:      m.deps.MetricsHandler,
			ReadTimeout:  m.serverCfg.ReadTimeout,
			WriteTimeout: m.serverCfg.WriteTimeout,
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m.logger.Info().Str("addr", apiServer.Addr).Msg("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			m.logger.Info().Str("addr", metricsServer.Addr).Msg("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return m.deps.Scheduler.Run(gctx)
	})

	// Shutdown trigger: context cancellation or first server error
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), m.serverCfg.ShutdownTimeout)
		defer cancel()

		m.logger.Info().Msg("shutting down servers")
		var errs []error
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("api shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
			}
		}
		m.runShutdownHooks(shutdownCtx)
		return errors.Join(errs...)
	})

	err := g.Wait()
	m.logger.Info().Msg("daemon manager stopped")
	return err
}

func (m *Manager) runShutdownHooks(ctx context.Context) {
	m.mu.Lock()
	hooks := make([]namedHook, len(m.shutdownHooks))
	copy(hooks, m.shutdownHooks)
	m.mu.Unlock()

	// LIFO
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.hook(ctx); err != nil {
			m.logger.Warn().Err(err).Str("hook", h.name).Msg("shutdown hook failed")
		} else {
			m.logger.Debug().Str("hook", h.name).Msg("shutdown hook completed")
		}
	}
}
