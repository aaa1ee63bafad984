// SPDX-License-Identifier: MIT

// Package api exposes the daemon's HTTP surface: health probes, the
// latest verdict, probe history and a manual trigger.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/stepwatch/internal/config"
	"github.com/ManuGH/stepwatch/internal/health"
	"github.com/ManuGH/stepwatch/internal/log"
	"github.com/ManuGH/stepwatch/internal/probe"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Runner triggers probe runs and reports the latest result.
// Satisfied by daemon.Scheduler.
type Runner interface {
	RunNow(ctx context.Context) (probe.Report, error)
	Latest() (probe.Report, bool)
}

// HistoryReader reads persisted probe reports.
// Satisfied by history.Store; nil disables the history endpoint.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]probe.Report, error)
}

// Server is the API handler factory. It reads configuration through the
// holder so that hot reloads (notably the API token) apply to in-flight
// traffic without a restart. The rate limit and listen address are fixed
// at Handler construction.
type Server struct {
	holder    *config.Holder
	runner    Runner
	store     HistoryReader
	healthMgr *health.Manager
	logger    zerolog.Logger
}

// New creates an API server.
func New(holder *config.Holder, runner Runner, store HistoryReader, hm *health.Manager) *Server {
	return &Server{
		holder:    holder,
		runner:    runner,
		store:     store,
		healthMgr: hm,
		logger:    log.WithComponent("api"),
	}
}

// Handler builds the chi router with the full middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(rateLimit(s.holder.Get().RateLimitRPM, time.Minute))

	// Public probes, no auth
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)

		// Triggering a probe is the only mutating operation; it sits
		// behind the token when one is configured.
		r.With(s.auth).Post("/probe", s.handleProbe)
	})

	return r
}
