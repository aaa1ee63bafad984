// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ManuGH/stepwatch/internal/log"
	"github.com/ManuGH/stepwatch/internal/probe"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	resp := s.healthMgr.Health(r.Context(), verbose)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	resp := s.healthMgr.Ready(r.Context())
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleStatus returns the latest probe report.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	rep, ok := s.runner.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no probe run yet")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleHistory returns recent probe reports, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history persistence disabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	reports, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		logger := log.WithContext(r.Context(), s.logger)
		logger.Error().Err(err).Msg("history query failed")
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	if reports == nil {
		// Keep JSON as [] instead of null
		reports = []probe.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// handleProbe triggers an immediate probe run and returns its report.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	rep, err := s.runner.RunNow(r.Context())
	if err != nil {
		logger := log.WithContext(r.Context(), s.logger)
		logger.Error().Err(err).Msg("triggered probe run failed")
		writeError(w, http.StatusInternalServerError, "probe run failed")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
