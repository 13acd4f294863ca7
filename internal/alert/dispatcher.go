// Package alert implements the SMS alert dispatcher: deduplication by
// message prefix, persisted cooldown throttling, a single fire-and-forget
// gateway request, and a simulated channel when no gateway is configured.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Throttling and identity constants. The dedup key deliberately truncates
// the message to its first 10 characters: two distinct alerts sharing a
// prefix suppress each other. Shipped behavior; do not widen the key
// without revisiting the cooldown table contents.
const (
	DefaultCooldownWindow = 10 * time.Minute
	cooldownKeyPrefix     = "last_sms_"
	dedupPrefixLen        = 10
	sentToastPrefixLen    = 20
)

// Outcome reports what a Dispatch call did. Every branch is observable so
// callers and tests never have to infer behavior from side effects.
type Outcome int

// Dispatch outcomes.
const (
	// OutcomeSkipped: no recipient phone, nothing attempted.
	OutcomeSkipped Outcome = iota
	// OutcomeSuppressed: a send for this dedup key is within the cooldown
	// window. Pure no-op: no log, no toast.
	OutcomeSuppressed
	// OutcomeSent: gateway request succeeded at the transport level.
	OutcomeSent
	// OutcomeSimulated: no gateway configured; delivery was simulated and
	// the cooldown recorded as if sent.
	OutcomeSimulated
	// OutcomeFailed: gateway request failed in transport. The cooldown is
	// NOT recorded; leaving the gate open is the only retry mechanism.
	OutcomeFailed
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeSent:
		return "sent"
	case OutcomeSimulated:
		return "simulated"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// GatewayConfig holds the outbound SMS gateway settings. Injected explicitly
// at construction; the dispatcher performs no ambient settings lookup.
type GatewayConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
}

// Configured reports whether a real gateway is usable.
func (g GatewayConfig) Configured() bool {
	return g.BaseURL != "" && g.APIKey != ""
}

// CooldownStore persists last-sent timestamps so throttling survives
// process restarts. Satisfied by *store.SQLiteStore.
type CooldownStore interface {
	LastSent(ctx context.Context, key string) (time.Time, bool, error)
	RecordSent(ctx context.Context, key string, at time.Time) error
}

// Toaster posts a toast message. Satisfied by *notify.Bus.
type Toaster interface {
	Post(msg string)
}

// Dispatcher turns a harmful classification into at most one outbound SMS
// attempt, throttled per dedup key.
type Dispatcher struct {
	mu      sync.RWMutex
	gateway GatewayConfig

	cooldowns  CooldownStore
	bus        Toaster
	httpClient *http.Client
	window     time.Duration
	logger     *slog.Logger

	// nowFunc supplies the cooldown clock. Injectable for tests.
	nowFunc func() time.Time
}

// NewDispatcher creates a Dispatcher. window is the minimum gap between
// alerts sharing a dedup key; pass DefaultCooldownWindow outside tests.
func NewDispatcher(gateway GatewayConfig, cooldowns CooldownStore, bus Toaster, httpClient *http.Client, window time.Duration, logger *slog.Logger) *Dispatcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		gateway:    gateway,
		cooldowns:  cooldowns,
		bus:        bus,
		httpClient: httpClient,
		window:     window,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// SetGateway replaces the gateway settings. Called by the serve-mode config
// watcher so operators can configure SMS delivery without a restart.
func (d *Dispatcher) SetGateway(gateway GatewayConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gateway = gateway
}

// Gateway returns the current gateway settings snapshot.
func (d *Dispatcher) Gateway() GatewayConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.gateway
}

// Dispatch attempts one alert to phone with the given message. It never
// returns an error: every failure degrades to a logged outcome, and a
// transport failure leaves the cooldown gate open so the next cycle whose
// guards pass attempts the same send again.
func (d *Dispatcher) Dispatch(ctx context.Context, phone, message string) Outcome {
	if phone == "" {
		return OutcomeSkipped
	}

	key := dedupKey(message)
	now := d.nowFunc()

	last, ok, err := d.cooldowns.LastSent(ctx, key)
	if err != nil {
		// Treat an unreadable record as absent; worst case one extra send.
		d.logger.Warn("cooldown lookup failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	if ok && now.Sub(last) < d.window {
		return OutcomeSuppressed
	}

	if gw := d.Gateway(); gw.Configured() {
		return d.sendViaGateway(ctx, gw, phone, message, key, now)
	}

	return d.simulate(ctx, phone, message, key, now)
}

// sendViaGateway issues the single outbound GET. Only transport-level
// success or failure is distinguished; the response body is ignored.
func (d *Dispatcher) sendViaGateway(ctx context.Context, gw GatewayConfig, phone, message, key string, now time.Time) Outcome {
	reqURL := fmt.Sprintf("%s?api_key=%s&type=text&contacts=%s&senderid=%s&msg=%s",
		gw.BaseURL, url.QueryEscape(gw.APIKey), url.QueryEscape(phone),
		url.QueryEscape(gw.SenderID), url.QueryEscape(message))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		d.logger.Error("building gateway request failed", slog.String("error", err.Error()))
		return OutcomeFailed
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Warn("sms gateway request failed",
			slog.String("phone", phone),
			slog.String("error", err.Error()),
		)

		return OutcomeFailed
	}
	resp.Body.Close()

	d.recordCooldown(ctx, key, now)
	d.bus.Post(fmt.Sprintf("SMS Sent: %s...", prefix(message, sentToastPrefixLen)))

	d.logger.Info("sms alert sent",
		slog.String("phone", phone),
		slog.String("key", key),
	)

	return OutcomeSent
}

// simulate emits a distinguishable log line instead of a network call. The
// cooldown is recorded: a simulated send counts as delivered for throttling,
// unlike a real transport failure.
func (d *Dispatcher) simulate(ctx context.Context, phone, message, key string, now time.Time) Outcome {
	d.logger.Info("[SIMULATED SMS] no gateway configured",
		slog.String("phone", phone),
		slog.String("message", message),
	)

	d.bus.Post(fmt.Sprintf("⚠️ SMS Alert Sent to %s", phone))
	d.recordCooldown(ctx, key, now)

	return OutcomeSimulated
}

// recordCooldown persists the send timestamp. A write failure only weakens
// throttling, so it is logged and swallowed.
func (d *Dispatcher) recordCooldown(ctx context.Context, key string, now time.Time) {
	if err := d.cooldowns.RecordSent(ctx, key, now); err != nil {
		d.logger.Warn("recording cooldown failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// dedupKey builds the namespaced cooldown key from the message prefix.
func dedupKey(message string) string {
	return cooldownKeyPrefix + prefix(message, dedupPrefixLen)
}

// prefix returns the first n characters of s without splitting a rune.
func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n])
}
