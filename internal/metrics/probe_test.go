// SPDX-License-Identifier: MIT

package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ManuGH/stepwatch/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecordProbeRunExposure(t *testing.T) {
	metrics.RecordProbeRun("flagged", 120, 50)
	metrics.RecordProbeRun("clean", 10, 50)

	body := scrape(t)
	assert.True(t, strings.Contains(body, `stepwatch_probe_runs_total{verdict="flagged"}`), "flagged counter missing")
	assert.True(t, strings.Contains(body, `stepwatch_probe_runs_total{verdict="clean"}`), "clean counter missing")
	assert.True(t, strings.Contains(body, "stepwatch_probe_threshold_ms 50"), "threshold gauge missing")
	// Last recorded run is clean: overrun snaps back to zero.
	assert.True(t, strings.Contains(body, "stepwatch_probe_overrun_ms 0"), "overrun gauge missing")
}

func TestIncConfigReload(t *testing.T) {
	metrics.IncConfigReload(true)
	metrics.IncConfigReload(false)

	body := scrape(t)
	assert.True(t, strings.Contains(body, `stepwatch_config_reloads_total{outcome="success"}`))
	assert.True(t, strings.Contains(body, `stepwatch_config_reloads_total{outcome="failure"}`))
}
