// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/stepwatch/internal/config"
	"github.com/ManuGH/stepwatch/internal/health"
	"github.com/ManuGH/stepwatch/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	latest probe.Report
	hasRun bool
	runErr error
	runs   int
}

func (s *stubRunner) RunNow(context.Context) (probe.Report, error) {
	s.runs++
	if s.runErr != nil {
		return probe.Report{}, s.runErr
	}
	s.latest = probe.Report{Time: time.Now().UTC(), ThresholdMS: 5000, Samples: 1, ElapsedMS: []int64{10}, MinMS: 10, MaxMS: 10, MeanMS: 10}
	s.hasRun = true
	return s.latest, nil
}

func (s *stubRunner) Latest() (probe.Report, bool) { return s.latest, s.hasRun }

type stubHistory struct {
	reports []probe.Report
	err     error
	gotLim  int
}

func (s *stubHistory) Recent(_ context.Context, limit int) ([]probe.Report, error) {
	s.gotLim = limit
	return s.reports, s.err
}

func testHolder(t *testing.T, mutate func(*config.AppConfig)) *config.Holder {
	t.Helper()
	cfg := config.Defaults()
	cfg.ResolvePaths()
	if mutate != nil {
		mutate(&cfg)
	}
	return config.NewHolder(cfg, config.NewLoader("", "test"), "")
}

func newTestServer(t *testing.T, mutate func(*config.AppConfig), runner *stubRunner, store HistoryReader) http.Handler {
	t.Helper()
	if runner == nil {
		runner = &stubRunner{}
	}
	return New(testHolder(t, mutate), runner, store, health.NewManager("test")).Handler()
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp health.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyzUnhealthyStore(t *testing.T) {
	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewStoreChecker(failingPinger{}))

	h := New(testHolder(t, nil), &stubRunner{}, nil, hm).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestStatusBeforeFirstRun(t *testing.T) {
	h := newTestServer(t, nil, &stubRunner{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusReturnsLatest(t *testing.T) {
	runner := &stubRunner{}
	_, err := runner.RunNow(context.Background())
	require.NoError(t, err)

	h := newTestServer(t, nil, runner, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var rep probe.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, int64(10), rep.MaxMS)
	assert.False(t, rep.Debugged)
}

func TestHistoryEndpoint(t *testing.T) {
	store := &stubHistory{reports: []probe.Report{{MaxMS: 42}}}
	h := newTestServer(t, nil, nil, store)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, store.gotLim)

	var reports []probe.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, int64(42), reports[0].MaxMS)
}

func TestHistoryLimitValidation(t *testing.T) {
	store := &stubHistory{}
	h := newTestServer(t, nil, nil, store)

	tests := []struct {
		query string
		code  int
	}{
		{query: "?limit=0", code: http.StatusBadRequest},
		{query: "?limit=-2", code: http.StatusBadRequest},
		{query: "?limit=abc", code: http.StatusBadRequest},
		{query: "", code: http.StatusOK},
		{query: "?limit=100000", code: http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history"+tt.query, nil))
		assert.Equal(t, tt.code, rec.Code, "query %q", tt.query)
	}

	// Oversized limits are capped, not rejected
	assert.Equal(t, maxHistoryLimit, store.gotLim)
}

func TestHistoryDisabled(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProbeTriggerWithoutTokenConfigured(t *testing.T) {
	runner := &stubRunner{}
	h := newTestServer(t, nil, runner, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/probe", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.runs)
}

func TestProbeTriggerAuth(t *testing.T) {
	runner := &stubRunner{}
	h := newTestServer(t, func(c *config.AppConfig) { c.APIToken = "secret" }, runner, nil)

	// Missing token
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/probe", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong token
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/probe", nil)
	req.Header.Set("Authorization", "Bearer nope")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct token
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/probe", nil)
	req.Header.Set("Authorization", "Bearer secret")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, runner.runs, "only the authorized request runs the probe")
}

func TestProbeTriggerAuthAppliesReload(t *testing.T) {
	// Rotating the token via config reload must be enforced by the
	// already-built handler without a restart.
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\n"), 0o600))

	loader := config.NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	holder := config.NewHolder(cfg, loader, path)

	runner := &stubRunner{}
	h := New(holder, runner, nil, health.NewManager("test")).Handler()

	// No token configured yet: the trigger is open.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/probe", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\napi:\n  token: rotated\n"), 0o600))
	require.NoError(t, holder.Reload(context.Background()))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/probe", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/probe", nil)
	req.Header.Set("Authorization", "Bearer rotated")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, runner.runs)
}

func TestProbeTriggerFailure(t *testing.T) {
	runner := &stubRunner{runErr: errors.New("cancelled")}
	h := newTestServer(t, nil, runner, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/probe", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "caller-supplied", rec.Header().Get("X-Request-ID"))
}

func TestRateLimitExceeded(t *testing.T) {
	h := newTestServer(t, func(c *config.AppConfig) { c.RateLimitRPM = 2 }, nil, nil)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "198.51.100.7:1234"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])
}
