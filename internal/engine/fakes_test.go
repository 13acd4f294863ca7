package engine

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/harvestguard/harvestguard-go/internal/advisor"
	"github.com/harvestguard/harvestguard-go/internal/alert"
	"github.com/harvestguard/harvestguard-go/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// noSleep replaces the pacing delay in tests.
func noSleep(context.Context, time.Duration) error { return nil }

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

// fakeBatches is an in-memory BatchStore.
type fakeBatches struct {
	mu       sync.Mutex
	batches  []store.HarvestBatch
	listErr  error
	saveErr  error
	replaces int
}

func (f *fakeBatches) ListBatches(context.Context) ([]store.HarvestBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	return append([]store.HarvestBatch(nil), f.batches...), nil
}

func (f *fakeBatches) ReplaceBatches(_ context.Context, batches []store.HarvestBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}

	f.batches = append([]store.HarvestBatch(nil), batches...)
	f.replaces++

	return nil
}

func (f *fakeBatches) snapshot() []store.HarvestBatch {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]store.HarvestBatch(nil), f.batches...)
}

// fakeEstimator returns per-crop shelf-life hours.
type fakeEstimator struct {
	mu    sync.Mutex
	hours map[string]float64
	errs  map[string]error
	calls []string
}

func (f *fakeEstimator) ShelfLife(_ context.Context, cropType, _, _ string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, cropType)

	if err := f.errs[cropType]; err != nil {
		return 0, err
	}

	return f.hours[cropType], nil
}

// fakeProfiles is an in-memory ProfileSource.
type fakeProfiles struct {
	profile *store.FarmerProfile
	err     error
}

func (f *fakeProfiles) Profile(context.Context) (*store.FarmerProfile, error) {
	return f.profile, f.err
}

// fakeWeather serves one snapshot or one error.
type fakeWeather struct {
	mu        sync.Mutex
	snapshot  *advisor.Snapshot
	err       error
	calls     int
	locations []string
}

func (f *fakeWeather) Weather(_ context.Context, location string) (*advisor.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.locations = append(f.locations, location)

	if f.err != nil {
		return nil, f.err
	}

	return f.snapshot, nil
}

// fakeClassifier returns per-crop advisories.
type fakeClassifier struct {
	mu         sync.Mutex
	advisories map[string]*advisor.Advisory
	errs       map[string]error
	calls      []string
}

func (f *fakeClassifier) StorageAdvisory(_ context.Context, _, cropType, _, _ string) (*advisor.Advisory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, cropType)

	if err := f.errs[cropType]; err != nil {
		return nil, err
	}

	return f.advisories[cropType], nil
}

func (f *fakeClassifier) cropCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

// fakeAlerts records dispatch attempts.
type fakeAlerts struct {
	mu       sync.Mutex
	outcome  alert.Outcome
	phones   []string
	messages []string
}

func (f *fakeAlerts) Dispatch(_ context.Context, phone, message string) alert.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.phones = append(f.phones, phone)
	f.messages = append(f.messages, message)

	return f.outcome
}

func (f *fakeAlerts) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.messages...)
}

func active(id, crop string) store.HarvestBatch {
	return store.HarvestBatch{
		ID:          id,
		CropType:    crop,
		Division:    "Rajshahi",
		HarvestDate: "2026-08-20",
		StorageType: "open",
		Status:      store.StatusActive,
	}
}
