package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harvestguard/harvestguard-go/internal/config"
	"github.com/harvestguard/harvestguard-go/internal/risk"
)

func TestBuildLogger_FlagPrecedence(t *testing.T) {
	origCfg, origVerbose, origQuiet := resolvedCfg, flagVerbose, flagQuiet
	t.Cleanup(func() {
		resolvedCfg, flagVerbose, flagQuiet = origCfg, origVerbose, origQuiet
	})

	resolvedCfg = config.DefaultConfig()
	resolvedCfg.Logging.Level = "warn"
	flagVerbose = false
	flagQuiet = false

	logger := buildLogger()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo), "config warn level suppresses info")

	flagVerbose = true
	logger = buildLogger()
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug), "--verbose overrides config level")

	flagVerbose = false
	flagQuiet = true
	logger = buildLogger()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelWarn), "--quiet suppresses warnings")
}

func TestProbeURL_FallsBackToWeatherService(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	assert.Equal(t, cfg.Services.WeatherURL, probeURL(cfg))

	cfg.Services.ProbeURL = "http://probe.example.com/healthz"
	assert.Equal(t, "http://probe.example.com/healthz", probeURL(cfg))
}

func TestRedactKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", redactKey(""))
	assert.Equal(t, "****", redactKey("ab"))
	assert.Equal(t, "abcd****", redactKey("abcdefgh"))
}

func TestBatchDisplayHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1234abcd", shortID("1234abcd-0000-0000-0000-000000000000"))
	assert.Equal(t, "short", shortID("short"))

	assert.Equal(t, "-", etclString(nil))
	hours := 36.5
	assert.Equal(t, "36.5h", etclString(&hours))

	assert.Equal(t, "-", riskString(nil))
	tier := risk.TierHigh
	assert.Equal(t, "high", riskString(&tier))
}
