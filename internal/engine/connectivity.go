package engine

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Toast texts for connectivity transitions.
const (
	toastBackOnline  = "You are back online! Syncing data..."
	toastWentOffline = "You are offline. Using cached data."
)

// MonitorConfig holds the inputs for NewMonitor.
type MonitorConfig struct {
	ProbeURL   string
	HTTPClient *http.Client
	Interval   time.Duration
	Bus        Toaster
	Logger     *slog.Logger

	// OnOnline runs on each offline-to-online edge, after the toast. The
	// monitor uses it to trigger the reconnect resync sweep.
	OnOnline func(ctx context.Context)
}

// Monitor observes network reachability and fires side effects exactly once
// per state edge. Reachability comes from two sources: a periodic HTTP
// probe, and transitions reported by the UI layer via SetOffline. Repeated
// reports of an unchanged state are ignored.
type Monitor struct {
	probeURL   string
	httpClient *http.Client
	interval   time.Duration
	bus        Toaster
	onOnline   func(ctx context.Context)
	logger     *slog.Logger

	mu      sync.Mutex
	offline bool

	// probeFunc reports current reachability. Injectable for tests.
	probeFunc func(ctx context.Context) bool
}

// NewMonitor creates a Monitor. The initial state is online; the first
// probe corrects it if the device starts disconnected.
func NewMonitor(cfg MonitorConfig) *Monitor {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		probeURL:   cfg.ProbeURL,
		httpClient: httpClient,
		interval:   cfg.Interval,
		bus:        cfg.Bus,
		onOnline:   cfg.OnOnline,
		logger:     logger,
	}
	m.probeFunc = m.httpProbe

	return m
}

// Offline returns the current reachability state.
func (m *Monitor) Offline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.offline
}

// Run probes reachability until the context is cancelled. Returns nil on
// clean cancellation.
func (m *Monitor) Run(ctx context.Context) error {
	m.SetOffline(ctx, !m.probeFunc(ctx))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.SetOffline(ctx, !m.probeFunc(ctx))
		}
	}
}

// SetOffline records a reachability observation, firing edge side effects
// when the state actually changes. Safe to call from the probe loop and
// the UI layer concurrently.
func (m *Monitor) SetOffline(ctx context.Context, offline bool) {
	m.mu.Lock()
	if m.offline == offline {
		m.mu.Unlock()
		return
	}

	m.offline = offline
	m.mu.Unlock()

	if offline {
		m.logger.Info("connectivity lost")
		m.bus.Post(toastWentOffline)

		return
	}

	m.logger.Info("connectivity restored")
	m.bus.Post(toastBackOnline)

	// One corrective sweep per reconnect edge, not a retry queue.
	if m.onOnline != nil {
		m.onOnline(ctx)
	}
}

// httpProbe reports whether the probe endpoint answers at all. Any HTTP
// status counts as reachable; only transport failure means offline.
func (m *Monitor) httpProbe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return true
}
