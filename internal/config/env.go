package config

import "os"

// Environment variable names for overrides. The gateway pair exists so an
// operator can configure SMS delivery without writing credentials to disk.
const (
	EnvConfig     = "HARVESTGUARD_CONFIG"
	EnvGatewayURL = "HARVESTGUARD_GATEWAY_URL"
	EnvGatewayKey = "HARVESTGUARD_GATEWAY_KEY"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // HARVESTGUARD_CONFIG: override config file path
	GatewayURL string // HARVESTGUARD_GATEWAY_URL: SMS gateway base URL
	GatewayKey string // HARVESTGUARD_GATEWAY_KEY: SMS gateway API key
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		GatewayURL: os.Getenv(EnvGatewayURL),
		GatewayKey: os.Getenv(EnvGatewayKey),
	}
}
