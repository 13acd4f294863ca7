package config

import "time"

// Default values for configuration options. The engine timing defaults are
// behavioral constants of the monitoring engine; changing them changes
// alert cadence for every installation, so they are set here once.
const (
	defaultSenderID        = "8809601001329"
	defaultWeatherURL      = "http://127.0.0.1:8791"
	defaultAdvisoryURL     = "http://127.0.0.1:8792"
	defaultPollInterval    = "60s"
	defaultPacingDelay     = "2s"
	defaultCooldownWindow  = "10m"
	defaultToastDuration   = "3s"
	defaultProbeInterval   = "30s"
	defaultDefaultDistrict = "Dhaka"
	defaultListenAddr      = "127.0.0.1:8790"
	defaultLogLevel        = "info"
)

// Parsed fallbacks for the duration accessors.
const (
	defaultPollIntervalDur   = 60 * time.Second
	defaultPacingDelayDur    = 2 * time.Second
	defaultCooldownWindowDur = 10 * time.Minute
	defaultToastDurationDur  = 3 * time.Second
	defaultProbeIntervalDur  = 30 * time.Second
)

// DefaultConfig returns a Config populated with all default values. Used
// both as the starting point for TOML decoding (so unset fields retain
// defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			SenderID: defaultSenderID,
		},
		Services: ServicesConfig{
			WeatherURL:  defaultWeatherURL,
			AdvisoryURL: defaultAdvisoryURL,
		},
		Engine: EngineConfig{
			PollInterval:    defaultPollInterval,
			PacingDelay:     defaultPacingDelay,
			CooldownWindow:  defaultCooldownWindow,
			ToastDuration:   defaultToastDuration,
			ProbeInterval:   defaultProbeInterval,
			DefaultDistrict: defaultDefaultDistrict,
		},
		UI: UIConfig{
			ListenAddr: defaultListenAddr,
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
	}
}
