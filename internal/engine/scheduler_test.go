package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestguard/harvestguard-go/internal/advisor"
	"github.com/harvestguard/harvestguard-go/internal/alert"
	"github.com/harvestguard/harvestguard-go/internal/store"
)

type schedulerHarness struct {
	batches    *fakeBatches
	profiles   *fakeProfiles
	weather    *fakeWeather
	classifier *fakeClassifier
	alerts     *fakeAlerts
	scheduler  *Scheduler

	authenticated bool
	offline       bool
}

func newSchedulerHarness(batches []store.HarvestBatch) *schedulerHarness {
	h := &schedulerHarness{
		batches:  &fakeBatches{batches: batches},
		profiles: &fakeProfiles{profile: &store.FarmerProfile{Phone: "01712345678", District: "Rangpur"}},
		weather: &fakeWeather{snapshot: &advisor.Snapshot{
			Condition: "Rainy",
			Temp:      31,
		}},
		classifier:    &fakeClassifier{advisories: map[string]*advisor.Advisory{}},
		alerts:        &fakeAlerts{outcome: alert.OutcomeSent},
		authenticated: true,
	}

	h.scheduler = NewScheduler(SchedulerConfig{
		Batches:         h.batches,
		Profiles:        h.profiles,
		Weather:         h.weather,
		Classifier:      h.classifier,
		Alerts:          h.alerts,
		Authenticated:   func() bool { return h.authenticated },
		Offline:         func() bool { return h.offline },
		DefaultDistrict: "Dhaka",
		PollInterval:    time.Hour,
		PacingDelay:     2 * time.Second,
		SweepMu:         &sync.Mutex{},
		Logger:          testLogger(),
	})
	h.scheduler.sleepFunc = noSleep

	return h
}

func TestRunCycle_DispatchesAlertForHarmfulAdvisory(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness([]store.HarvestBatch{
		active("b1", "potato"),
		active("b2", "tomato"),
	})
	h.classifier.advisories["potato"] = &advisor.Advisory{
		Status:       advisor.StatusHarmful,
		AlertMessage: "Critical risk for your potatoes",
	}
	h.classifier.advisories["tomato"] = &advisor.Advisory{Status: "caution"}

	h.scheduler.runCycle(context.Background())

	assert.Equal(t, 1, h.weather.calls, "one snapshot per cycle")
	assert.Equal(t, []string{"Rangpur"}, h.weather.locations, "profile district wins over default")
	assert.Equal(t, []string{"potato", "tomato"}, h.classifier.cropCalls())
	assert.Equal(t, []string{"Critical risk for your potatoes"}, h.alerts.sent())
	assert.Equal(t, []string{"01712345678"}, h.alerts.phones)
}

func TestRunCycle_SkipsWhileUnauthenticated(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness([]store.HarvestBatch{active("b1", "potato")})
	h.authenticated = false

	h.scheduler.runCycle(context.Background())

	assert.Zero(t, h.weather.calls)
	assert.Empty(t, h.classifier.cropCalls())
}

func TestRunCycle_SkipsWhileOffline(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness([]store.HarvestBatch{active("b1", "potato")})
	h.offline = true

	h.scheduler.runCycle(context.Background())

	assert.Zero(t, h.weather.calls)
	assert.Empty(t, h.alerts.sent())
}

func TestRunCycle_SkipsWithoutActiveBatches(t *testing.T) {
	t.Parallel()

	sold := active("b1", "potato")
	sold.Status = store.StatusSold

	h := newSchedulerHarness([]store.HarvestBatch{sold})

	h.scheduler.runCycle(context.Background())

	assert.Zero(t, h.weather.calls, "no snapshot fetch without active batches")
}

func TestRunCycle_WeatherFailureAbortsSilently(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness([]store.HarvestBatch{active("b1", "potato")})
	h.weather.err = errors.New("service down")

	h.scheduler.runCycle(context.Background())

	assert.Empty(t, h.classifier.cropCalls())
	assert.Empty(t, h.alerts.sent())
}

func TestRunCycle_ClassifierFailureAbandonsRemainder(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness([]store.HarvestBatch{
		active("b1", "potato"),
		active("b2", "tomato"),
		active("b3", "rice"),
	})
	h.classifier.errs = map[string]error{"tomato": errors.New("bad gateway")}
	h.classifier.advisories["rice"] = &advisor.Advisory{
		Status:       advisor.StatusHarmful,
		AlertMessage: "Rice storage at risk",
	}

	h.scheduler.runCycle(context.Background())

	// Rice is never reached once tomato fails.
	assert.Equal(t, []string{"potato", "tomato"}, h.classifier.cropCalls())
	assert.Empty(t, h.alerts.sent())
}

func TestRunCycle_NullAdvisoryMeansNoDispatch(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness([]store.HarvestBatch{active("b1", "potato")})

	h.scheduler.runCycle(context.Background())

	assert.Equal(t, []string{"potato"}, h.classifier.cropCalls())
	assert.Empty(t, h.alerts.sent())
}

func TestRunCycle_DefaultDistrictWithoutProfile(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness([]store.HarvestBatch{active("b1", "potato")})
	h.profiles.profile = nil

	h.scheduler.runCycle(context.Background())

	assert.Equal(t, []string{"Dhaka"}, h.weather.locations)
}

func TestRunCycle_ProfileReadFailureFallsBackToDefault(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness([]store.HarvestBatch{active("b1", "potato")})
	h.profiles.profile = nil
	h.profiles.err = errors.New("database locked")
	h.classifier.advisories["potato"] = &advisor.Advisory{
		Status:       advisor.StatusHarmful,
		AlertMessage: "Critical risk for your potatoes",
	}

	h.scheduler.runCycle(context.Background())

	assert.Equal(t, []string{"Dhaka"}, h.weather.locations)
	assert.Equal(t, []string{""}, h.alerts.phones, "no profile means no phone")
}

func TestScheduler_ArmRunsImmediateCycle(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness([]store.HarvestBatch{active("b1", "potato")})

	h.scheduler.Arm(context.Background())
	defer h.scheduler.Disarm()

	require.Eventually(t, func() bool {
		h.weather.mu.Lock()
		defer h.weather.mu.Unlock()

		return h.weather.calls == 1
	}, 2*time.Second, 10*time.Millisecond, "arming must trigger a cycle without waiting for a tick")

	require.Eventually(t, func() bool {
		return h.scheduler.State() == StateArmedIdle
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_ArmIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(nil)

	ctx := context.Background()
	h.scheduler.Arm(ctx)
	h.scheduler.Arm(ctx)
	defer h.scheduler.Disarm()

	assert.NotEqual(t, StateDisarmed, h.scheduler.State())
}

func TestScheduler_DisarmStopsScheduling(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(nil)

	h.scheduler.Arm(context.Background())
	h.scheduler.Disarm()
	h.scheduler.Disarm()

	assert.Equal(t, StateDisarmed, h.scheduler.State())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "disarmed", StateDisarmed.String())
	assert.Equal(t, "armed-idle", StateArmedIdle.String())
	assert.Equal(t, "armed-running", StateArmedRunning.String())
}
