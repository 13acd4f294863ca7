package config

import (
	"fmt"
	"net/url"
	"time"
)

// validLogLevels enumerates accepted logging.level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks semantic constraints on a parsed Config. A partially set
// gateway (URL without key or vice versa) is accepted and treated as
// unconfigured; the dispatcher falls back to simulation in that case.
func Validate(cfg *Config) error {
	durations := []struct {
		field string
		value string
	}{
		{"engine.poll_interval", cfg.Engine.PollInterval},
		{"engine.pacing_delay", cfg.Engine.PacingDelay},
		{"engine.cooldown_window", cfg.Engine.CooldownWindow},
		{"engine.toast_duration", cfg.Engine.ToastDuration},
		{"engine.probe_interval", cfg.Engine.ProbeInterval},
	}

	for _, d := range durations {
		dur, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", d.field, d.value, err)
		}

		if dur <= 0 {
			return fmt.Errorf("%s: duration must be positive, got %q", d.field, d.value)
		}
	}

	urls := []struct {
		field string
		value string
	}{
		{"gateway.base_url", cfg.Gateway.BaseURL},
		{"services.weather_url", cfg.Services.WeatherURL},
		{"services.advisory_url", cfg.Services.AdvisoryURL},
		{"services.probe_url", cfg.Services.ProbeURL},
	}

	for _, u := range urls {
		if u.value == "" {
			continue
		}

		parsed, err := url.Parse(u.value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s: not an absolute URL: %q", u.field, u.value)
		}
	}

	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level: unknown level %q (want debug, info, warn, or error)", cfg.Logging.Level)
	}

	if cfg.Engine.DefaultDistrict == "" {
		return fmt.Errorf("engine.default_district: must not be empty")
	}

	return nil
}
