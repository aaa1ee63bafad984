// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLevel(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		Configure(Config{Level: "info"})
	})
}

func TestConfigureAppliesLevel(t *testing.T) {
	resetLevel(t)

	var buf bytes.Buffer
	Configure(Config{Level: "warn", Output: &buf, Service: "stepwatch-test"})

	require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	logger := WithComponent("test")
	logger.Info().Msg("filtered")
	logger.Warn().Msg("kept")

	out := buf.String()
	assert.NotContains(t, out, "filtered")
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, `"service":"stepwatch-test"`)
}

func TestConfigureLastCallWins(t *testing.T) {
	// The daemon configures twice: safe defaults first, then the loaded
	// level once the config file and environment have been read.
	resetLevel(t)

	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf})
	Configure(Config{Level: "debug", Output: &buf})

	require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	logger := WithComponent("test")
	logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestConfigureInvalidLevelFallsBack(t *testing.T) {
	resetLevel(t)

	var buf bytes.Buffer
	Configure(Config{Level: "nonsense", Output: &buf})

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
