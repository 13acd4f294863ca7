package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harvestguard/harvestguard-go/internal/advisor"
	"github.com/harvestguard/harvestguard-go/internal/alert"
	"github.com/harvestguard/harvestguard-go/internal/config"
	"github.com/harvestguard/harvestguard-go/internal/engine"
	"github.com/harvestguard/harvestguard-go/internal/notify"
	"github.com/harvestguard/harvestguard-go/internal/session"
	"github.com/harvestguard/harvestguard-go/internal/ui"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitoring engine and local UI server",
		Long: `Start the background engine: the connectivity monitor, the risk
monitoring scheduler, and the local HTTP/websocket surface for the UI layer.

Runs until SIGINT or SIGTERM. The config file is watched while serving, so
SMS gateway credentials can be rotated without a restart.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	cfg := resolvedCfg

	ctx := shutdownContext(cmd.Context(), logger)

	st, err := openStore(logger)
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer st.Close()

	httpClient := defaultHTTPClient()
	bus := notify.New(logger, cfg.Engine.ToastDurationDuration())
	weather := advisor.NewWeatherClient(cfg.Services.WeatherURL, httpClient, logger)
	advisory := advisor.NewAdvisoryClient(cfg.Services.AdvisoryURL, httpClient, logger)

	dispatcher := alert.NewDispatcher(alert.GatewayConfig{
		BaseURL:  cfg.Gateway.BaseURL,
		APIKey:   cfg.Gateway.APIKey,
		SenderID: cfg.Gateway.SenderID,
	}, st, bus, httpClient, cfg.Engine.CooldownWindowDuration(), logger)

	if !dispatcher.Gateway().Configured() {
		logger.Info("sms gateway not configured, alerts run in simulation mode")
	}

	g, gctx := errgroup.WithContext(ctx)

	// One mutex serializes the two sweeps that rewrite the batch table.
	sweepMu := &sync.Mutex{}
	resync := engine.NewResynchronizer(st, weather, bus, sweepMu, logger)

	monitor := engine.NewMonitor(engine.MonitorConfig{
		ProbeURL:   probeURL(cfg),
		HTTPClient: httpClient,
		Interval:   cfg.Engine.ProbeIntervalDuration(),
		Bus:        bus,
		Logger:     logger,
		// Resync on the serve context, not the caller's: a reconnect
		// reported over a UI request must outlive that request.
		OnOnline: func(context.Context) {
			go func() {
				if _, err := resync.Resync(gctx); err != nil {
					logger.Warn("reconnect resync failed", slog.String("error", err.Error()))
				}
			}()
		},
	})

	// The guard is constructed after the scheduler but the scheduler needs
	// its auth state, so the closure reads the variable captured here.
	var guard *session.Guard

	scheduler := engine.NewScheduler(engine.SchedulerConfig{
		Batches:         st,
		Profiles:        st,
		Weather:         weather,
		Classifier:      advisory,
		Alerts:          dispatcher,
		Authenticated:   func() bool { return guard.Authenticated() },
		Offline:         monitor.Offline,
		DefaultDistrict: cfg.Engine.DefaultDistrict,
		PollInterval:    cfg.Engine.PollIntervalDuration(),
		PacingDelay:     cfg.Engine.PacingDelayDuration(),
		SweepMu:         sweepMu,
		Logger:          logger,
	})

	guard = session.NewGuard(gctx, st, session.Hooks{
		Arm:    func() { scheduler.Arm(gctx) },
		Disarm: scheduler.Disarm,
	}, logger)

	uiServer := ui.NewServer(ui.Config{
		Addr:           cfg.UI.ListenAddr,
		Guard:          guard,
		Batches:        st,
		Bus:            bus,
		SchedulerState: scheduler.State,
		Offline:        monitor.Offline,
		ReportOffline:  monitor.SetOffline,
		Version:        version,
		Logger:         logger,
	})

	logger.Info("engine starting",
		slog.String("listen", cfg.UI.ListenAddr),
		slog.String("config", resolvedCfgPath),
	)

	g.Go(func() error { return monitor.Run(gctx) })
	g.Go(func() error { return uiServer.Run(gctx) })
	g.Go(func() error { return watchConfig(gctx, resolvedCfgPath, dispatcher, logger) })

	return g.Wait()
}

// probeURL picks the connectivity probe target: the configured one, or the
// weather service as the collaborator whose reachability actually matters.
func probeURL(cfg *config.Config) string {
	if cfg.Services.ProbeURL != "" {
		return cfg.Services.ProbeURL
	}

	return cfg.Services.WeatherURL
}

// watchConfig watches the config file and hot-reloads the SMS gateway
// settings on change. Only the gateway section applies live; everything
// else needs a restart. The parent directory is watched because editors
// replace files instead of writing in place.
func watchConfig(ctx context.Context, path string, dispatcher *alert.Dispatcher, logger *slog.Logger) error {
	if path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching config directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Name != path || !event.Op.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			reloadGateway(path, dispatcher, logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watcher error", slog.String("error", err.Error()))
		}
	}
}

func reloadGateway(path string, dispatcher *alert.Dispatcher, logger *slog.Logger) {
	env := config.ReadEnvOverrides()
	env.ConfigPath = path

	cfg, _, err := config.Resolve(env)
	if err != nil {
		logger.Warn("config reload failed, keeping previous gateway settings",
			slog.String("error", err.Error()),
		)

		return
	}

	dispatcher.SetGateway(alert.GatewayConfig{
		BaseURL:  cfg.Gateway.BaseURL,
		APIKey:   cfg.Gateway.APIKey,
		SenderID: cfg.Gateway.SenderID,
	})

	logger.Info("sms gateway settings reloaded",
		slog.Bool("configured", cfg.Gateway.Configured()),
	)
}
