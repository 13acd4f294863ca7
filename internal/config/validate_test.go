package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DefaultsAreValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(DefaultConfig()))
}

func TestValidate_NegativeDurationRejected(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Engine.PollInterval = "-1m"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.poll_interval")
}

func TestValidate_RelativeURLRejected(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Services.AdvisoryURL = "/advisory"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "services.advisory_url")
}

func TestValidate_EmptyURLAccepted(t *testing.T) {
	t.Parallel()

	// An empty gateway URL selects simulation mode, never an error.
	cfg := DefaultConfig()
	cfg.Gateway.BaseURL = ""

	require.NoError(t, Validate(cfg))
}

func TestValidate_UnknownLogLevelRejected(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Logging.Level = "trace"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidate_EmptyDefaultDistrictRejected(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Engine.DefaultDistrict = ""

	require.Error(t, Validate(cfg))
}
