package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

// configView is the redacted display shape: the gateway key never leaves
// the process in full.
type configView struct {
	ConfigPath string `json:"config_path"`

	Gateway struct {
		BaseURL    string `json:"base_url"`
		APIKey     string `json:"api_key"`
		SenderID   string `json:"sender_id"`
		Configured bool   `json:"configured"`
	} `json:"gateway"`

	Services struct {
		WeatherURL  string `json:"weather_url"`
		AdvisoryURL string `json:"advisory_url"`
		ProbeURL    string `json:"probe_url,omitempty"`
	} `json:"services"`

	Engine struct {
		PollInterval    string `json:"poll_interval"`
		PacingDelay     string `json:"pacing_delay"`
		CooldownWindow  string `json:"cooldown_window"`
		ToastDuration   string `json:"toast_duration"`
		ProbeInterval   string `json:"probe_interval"`
		DefaultDistrict string `json:"default_district"`
	} `json:"engine"`

	Storage struct {
		DBPath string `json:"db_path"`
	} `json:"storage"`

	UI struct {
		ListenAddr string `json:"listen_addr"`
	} `json:"ui"`

	Logging struct {
		Level string `json:"level"`
	} `json:"logging"`
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg := resolvedCfg

	var v configView
	v.ConfigPath = resolvedCfgPath
	v.Gateway.BaseURL = cfg.Gateway.BaseURL
	v.Gateway.APIKey = redactKey(cfg.Gateway.APIKey)
	v.Gateway.SenderID = cfg.Gateway.SenderID
	v.Gateway.Configured = cfg.Gateway.Configured()
	v.Services.WeatherURL = cfg.Services.WeatherURL
	v.Services.AdvisoryURL = cfg.Services.AdvisoryURL
	v.Services.ProbeURL = cfg.Services.ProbeURL
	v.Engine.PollInterval = cfg.Engine.PollInterval
	v.Engine.PacingDelay = cfg.Engine.PacingDelay
	v.Engine.CooldownWindow = cfg.Engine.CooldownWindow
	v.Engine.ToastDuration = cfg.Engine.ToastDuration
	v.Engine.ProbeInterval = cfg.Engine.ProbeInterval
	v.Engine.DefaultDistrict = cfg.Engine.DefaultDistrict
	v.Storage.DBPath = cfg.Storage.DBPath
	v.UI.ListenAddr = cfg.UI.ListenAddr
	v.Logging.Level = cfg.Logging.Level

	if flagJSON {
		return printJSON(v)
	}

	fmt.Printf("Config file:      %s\n", v.ConfigPath)
	fmt.Printf("Gateway:          %s (configured: %t)\n", displayOrUnset(v.Gateway.BaseURL), v.Gateway.Configured)
	fmt.Printf("Gateway key:      %s\n", displayOrUnset(v.Gateway.APIKey))
	fmt.Printf("Sender ID:        %s\n", v.Gateway.SenderID)
	fmt.Printf("Weather service:  %s\n", v.Services.WeatherURL)
	fmt.Printf("Advisory service: %s\n", v.Services.AdvisoryURL)
	fmt.Printf("Poll interval:    %s\n", v.Engine.PollInterval)
	fmt.Printf("Pacing delay:     %s\n", v.Engine.PacingDelay)
	fmt.Printf("Cooldown window:  %s\n", v.Engine.CooldownWindow)
	fmt.Printf("Default district: %s\n", v.Engine.DefaultDistrict)
	fmt.Printf("Listen address:   %s\n", v.UI.ListenAddr)
	fmt.Printf("Log level:        %s\n", v.Logging.Level)

	return nil
}

// redactKey keeps enough of the key to identify it, nothing more.
func redactKey(key string) string {
	if key == "" {
		return ""
	}

	if len(key) <= 4 {
		return "****"
	}

	return key[:4] + "****"
}

func displayOrUnset(s string) string {
	if s == "" {
		return "(not set)"
	}

	return s
}
