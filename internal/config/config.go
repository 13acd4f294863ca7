// Package config implements TOML configuration loading, validation, and
// path resolution for harvestguard-go. Resolution follows a three-layer
// override chain: defaults -> config file -> environment variables. CLI
// flags that override config values apply them on top at the command layer.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Gateway  GatewayConfig  `toml:"gateway"`
	Services ServicesConfig `toml:"services"`
	Engine   EngineConfig   `toml:"engine"`
	Storage  StorageConfig  `toml:"storage"`
	UI       UIConfig       `toml:"ui"`
	Logging  LoggingConfig  `toml:"logging"`
}

// GatewayConfig holds the outbound SMS gateway settings. When base_url or
// api_key is empty the dispatcher runs in simulation mode; that is the
// supported unconfigured state, not an error.
type GatewayConfig struct {
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
	SenderID string `toml:"sender_id"`
}

// Configured reports whether a real gateway endpoint is usable.
func (g GatewayConfig) Configured() bool {
	return g.BaseURL != "" && g.APIKey != ""
}

// ServicesConfig holds the base URLs of the external collaborators: the
// weather/shelf-life service and the storage-advisory classifier. ProbeURL
// is the endpoint the connectivity monitor pings; it defaults to the
// weather service when empty.
type ServicesConfig struct {
	WeatherURL  string `toml:"weather_url"`
	AdvisoryURL string `toml:"advisory_url"`
	ProbeURL    string `toml:"probe_url"`
}

// EngineConfig controls the monitoring engine's timing. Durations are TOML
// strings ("60s", "2s") validated by Validate.
type EngineConfig struct {
	PollInterval    string `toml:"poll_interval"`
	PacingDelay     string `toml:"pacing_delay"`
	CooldownWindow  string `toml:"cooldown_window"`
	ToastDuration   string `toml:"toast_duration"`
	ProbeInterval   string `toml:"probe_interval"`
	DefaultDistrict string `toml:"default_district"`
}

// StorageConfig controls where the state database lives. An empty db_path
// resolves to the default data directory at startup.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// UIConfig controls the local HTTP surface the rendering layer consumes.
type UIConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// mustDuration parses a duration string that Validate has already accepted,
// falling back to def if the field somehow bypassed validation.
func mustDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}

	return d
}

// PollIntervalDuration returns the scheduler cycle period.
func (e EngineConfig) PollIntervalDuration() time.Duration {
	return mustDuration(e.PollInterval, defaultPollIntervalDur)
}

// PacingDelayDuration returns the pause between per-batch advisory calls.
func (e EngineConfig) PacingDelayDuration() time.Duration {
	return mustDuration(e.PacingDelay, defaultPacingDelayDur)
}

// CooldownWindowDuration returns the minimum gap between identical alerts.
func (e EngineConfig) CooldownWindowDuration() time.Duration {
	return mustDuration(e.CooldownWindow, defaultCooldownWindowDur)
}

// ToastDurationDuration returns the toast auto-clear delay.
func (e EngineConfig) ToastDurationDuration() time.Duration {
	return mustDuration(e.ToastDuration, defaultToastDurationDur)
}

// ProbeIntervalDuration returns the connectivity probe period.
func (e EngineConfig) ProbeIntervalDuration() time.Duration {
	return mustDuration(e.ProbeInterval, defaultProbeIntervalDur)
}
