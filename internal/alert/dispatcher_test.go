package alert

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memCooldowns is an in-memory CooldownStore.
type memCooldowns struct {
	mu      sync.Mutex
	records map[string]time.Time
}

func newMemCooldowns() *memCooldowns {
	return &memCooldowns{records: make(map[string]time.Time)}
}

func (m *memCooldowns) LastSent(_ context.Context, key string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.records[key]

	return t, ok, nil
}

func (m *memCooldowns) RecordSent(_ context.Context, key string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[key] = at

	return nil
}

// memToaster records posted toasts.
type memToaster struct {
	mu    sync.Mutex
	posts []string
}

func (m *memToaster) Post(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.posts = append(m.posts, msg)
}

func (m *memToaster) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.posts...)
}

func TestDispatch_NoPhoneIsSkipped(t *testing.T) {
	t.Parallel()

	bus := &memToaster{}
	d := NewDispatcher(GatewayConfig{}, newMemCooldowns(), bus, nil, DefaultCooldownWindow, testLogger())

	got := d.Dispatch(context.Background(), "", "Critical risk for your potatoes")

	assert.Equal(t, OutcomeSkipped, got)
	assert.Empty(t, bus.all())
}

func TestDispatch_GatewaySendRecordsCooldownAndToasts(t *testing.T) {
	t.Parallel()

	var gotURL string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cooldowns := newMemCooldowns()
	bus := &memToaster{}
	d := NewDispatcher(GatewayConfig{
		BaseURL:  srv.URL + "/sendsms",
		APIKey:   "key-1",
		SenderID: "8809601001329",
	}, cooldowns, bus, srv.Client(), DefaultCooldownWindow, testLogger())

	got := d.Dispatch(context.Background(), "01712345678", "Critical risk for your potatoes")
	require.Equal(t, OutcomeSent, got)

	assert.Contains(t, gotURL, "/sendsms?api_key=key-1")
	assert.Contains(t, gotURL, "type=text")
	assert.Contains(t, gotURL, "contacts=01712345678")
	assert.Contains(t, gotURL, "senderid=8809601001329")
	assert.Contains(t, gotURL, "msg=Critical+risk+for+your+potatoes")

	_, ok, err := cooldowns.LastSent(context.Background(), "last_sms_Critical r")
	require.NoError(t, err)
	assert.True(t, ok, "successful send must record the cooldown")

	toasts := bus.all()
	require.Len(t, toasts, 1)
	assert.Equal(t, "SMS Sent: Critical risk for yo...", toasts[0])
}

func TestDispatch_SamePrefixWithinWindowIsSuppressed(t *testing.T) {
	t.Parallel()

	var requests int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	bus := &memToaster{}
	d := NewDispatcher(GatewayConfig{BaseURL: srv.URL, APIKey: "k", SenderID: "s"},
		newMemCooldowns(), bus, srv.Client(), DefaultCooldownWindow, testLogger())

	now := time.Now()
	d.nowFunc = func() time.Time { return now }

	first := d.Dispatch(context.Background(), "01712345678", "Critical risk for your potatoes")
	require.Equal(t, OutcomeSent, first)

	// Different message, same 10-character prefix: still suppressed.
	d.nowFunc = func() time.Time { return now.Add(time.Minute) }
	second := d.Dispatch(context.Background(), "01712345678", "Critical rot detected in storage")
	assert.Equal(t, OutcomeSuppressed, second)

	assert.Equal(t, 1, requests, "exactly one outbound attempt expected")
	assert.Len(t, bus.all(), 1, "suppression posts no toast")
}

func TestDispatch_CooldownExpiryAllowsResend(t *testing.T) {
	t.Parallel()

	var requests int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(GatewayConfig{BaseURL: srv.URL, APIKey: "k", SenderID: "s"},
		newMemCooldowns(), &memToaster{}, srv.Client(), DefaultCooldownWindow, testLogger())

	now := time.Now()
	d.nowFunc = func() time.Time { return now }
	require.Equal(t, OutcomeSent, d.Dispatch(context.Background(), "017", "Heavy rain warning issued"))

	d.nowFunc = func() time.Time { return now.Add(DefaultCooldownWindow + time.Second) }
	require.Equal(t, OutcomeSent, d.Dispatch(context.Background(), "017", "Heavy rain warning issued"))

	assert.Equal(t, 2, requests)
}

func TestDispatch_TransportFailureLeavesCooldownOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	// Closed immediately: every request fails in transport.
	srv.Close()

	cooldowns := newMemCooldowns()
	bus := &memToaster{}
	d := NewDispatcher(GatewayConfig{BaseURL: srv.URL, APIKey: "k", SenderID: "s"},
		cooldowns, bus, &http.Client{Timeout: time.Second}, DefaultCooldownWindow, testLogger())

	got := d.Dispatch(context.Background(), "01712345678", "Storage humidity critical")
	assert.Equal(t, OutcomeFailed, got)

	_, ok, err := cooldowns.LastSent(context.Background(), dedupKey("Storage humidity critical"))
	require.NoError(t, err)
	assert.False(t, ok, "transport failure must not record the cooldown")
	assert.Empty(t, bus.all())
}

func TestDispatch_SimulationRecordsCooldown(t *testing.T) {
	t.Parallel()

	cooldowns := newMemCooldowns()
	bus := &memToaster{}
	d := NewDispatcher(GatewayConfig{}, cooldowns, bus, nil, DefaultCooldownWindow, testLogger())

	got := d.Dispatch(context.Background(), "01712345678", "Critical risk for your potatoes")
	require.Equal(t, OutcomeSimulated, got)

	_, ok, err := cooldowns.LastSent(context.Background(), dedupKey("Critical risk for your potatoes"))
	require.NoError(t, err)
	assert.True(t, ok, "a simulated send counts as delivered for throttling")

	toasts := bus.all()
	require.Len(t, toasts, 1)
	assert.Equal(t, "⚠️ SMS Alert Sent to 01712345678", toasts[0])

	// Second simulated dispatch within the window is suppressed too.
	got = d.Dispatch(context.Background(), "01712345678", "Critical risk for your potatoes")
	assert.Equal(t, OutcomeSuppressed, got)
}

func TestDispatch_PartialGatewayConfigSimulates(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(GatewayConfig{BaseURL: "https://sms.example.com"},
		newMemCooldowns(), &memToaster{}, nil, DefaultCooldownWindow, testLogger())

	got := d.Dispatch(context.Background(), "017", "Pest outbreak alert nearby")
	assert.Equal(t, OutcomeSimulated, got)
}

func TestDedupKey_TruncatesByRune(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "last_sms_Critical r", dedupKey("Critical risk for your potatoes"))
	assert.Equal(t, "last_sms_short", dedupKey("short"))

	// Bengali text must not be split mid-rune.
	key := dedupKey("আপনার আলুর জন্য সতর্কতা")
	assert.Equal(t, "last_sms_"+"আপনার আলুর", key)
}

func TestSetGateway_HotReload(t *testing.T) {
	t.Parallel()

	var requests int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(GatewayConfig{}, newMemCooldowns(), &memToaster{}, srv.Client(),
		DefaultCooldownWindow, testLogger())

	require.Equal(t, OutcomeSimulated, d.Dispatch(context.Background(), "017", "First alert message here"))

	d.SetGateway(GatewayConfig{BaseURL: srv.URL, APIKey: "k", SenderID: "s"})

	require.Equal(t, OutcomeSent, d.Dispatch(context.Background(), "017", "Second alert message here"))
	assert.Equal(t, 1, requests)
}
