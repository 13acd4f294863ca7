package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State describes the scheduler lifecycle.
type State int

const (
	// StateDisarmed means no monitoring cycles are scheduled.
	StateDisarmed State = iota
	// StateArmedIdle means the scheduler is waiting for the next tick.
	StateArmedIdle
	// StateArmedRunning means a monitoring cycle is in progress.
	StateArmedRunning
)

func (s State) String() string {
	switch s {
	case StateDisarmed:
		return "disarmed"
	case StateArmedIdle:
		return "armed-idle"
	case StateArmedRunning:
		return "armed-running"
	default:
		return "unknown"
	}
}

// SchedulerConfig holds the collaborators and tuning for NewScheduler.
type SchedulerConfig struct {
	Batches    BatchStore
	Profiles   ProfileSource
	Weather    WeatherProvider
	Classifier AdvisoryClassifier
	Alerts     AlertSender

	// Authenticated and Offline guard each cycle. Both must be non-nil.
	Authenticated func() bool
	Offline       func() bool

	// DefaultDistrict is the weather location used when no profile exists
	// or the profile has no district.
	DefaultDistrict string

	PollInterval time.Duration
	PacingDelay  time.Duration

	// SweepMu is shared with the Resynchronizer.
	SweepMu *sync.Mutex

	Logger *slog.Logger
}

// Scheduler runs the recurring risk monitoring cycle: one cycle immediately
// on arm, then one per poll interval until disarmed. Each cycle fetches a
// single weather snapshot and classifies every active batch sequentially
// with a pacing delay between batches.
type Scheduler struct {
	batches         BatchStore
	profiles        ProfileSource
	weather         WeatherProvider
	classifier      AdvisoryClassifier
	alerts          AlertSender
	authenticated   func() bool
	offline         func() bool
	defaultDistrict string
	pollInterval    time.Duration
	pacingDelay     time.Duration
	sweepMu         *sync.Mutex
	logger          *slog.Logger

	mu      sync.Mutex
	armed   bool
	running bool
	stop    chan struct{}

	// sleepFunc implements the pacing delay. Injectable for tests.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewScheduler creates a disarmed Scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		batches:         cfg.Batches,
		profiles:        cfg.Profiles,
		weather:         cfg.Weather,
		classifier:      cfg.Classifier,
		alerts:          cfg.Alerts,
		authenticated:   cfg.Authenticated,
		offline:         cfg.Offline,
		defaultDistrict: cfg.DefaultDistrict,
		pollInterval:    cfg.PollInterval,
		pacingDelay:     cfg.PacingDelay,
		sweepMu:         cfg.SweepMu,
		logger:          logger,
		sleepFunc:       timeSleep,
	}
}

// State returns the current lifecycle state. A cycle still draining after
// Disarm reports Disarmed.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.armed:
		return StateDisarmed
	case s.running:
		return StateArmedRunning
	default:
		return StateArmedIdle
	}
}

// Arm starts the monitoring loop: an immediate cycle, then one per poll
// interval. Arming an armed scheduler is a no-op.
func (s *Scheduler) Arm(ctx context.Context) {
	s.mu.Lock()
	if s.armed {
		s.mu.Unlock()
		return
	}

	s.armed = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.logger.Info("risk monitoring armed", slog.Duration("interval", s.pollInterval))

	go s.run(ctx, stop)
}

// Disarm cancels future cycles. An in-flight cycle finishes on its own; it
// just schedules nothing afterwards. Disarming a disarmed scheduler is a
// no-op.
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return
	}

	s.armed = false
	close(s.stop)
	s.stop = nil
	s.mu.Unlock()

	s.logger.Info("risk monitoring disarmed")
}

func (s *Scheduler) run(ctx context.Context, stop chan struct{}) {
	s.runCycle(ctx)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A tick racing a concurrent Disarm must not start a cycle.
			select {
			case <-stop:
				return
			default:
			}

			s.runCycle(ctx)
		}
	}
}

// runCycle executes one monitoring cycle. Guard checks come first and
// short-circuit before any store read or network call beyond the batch
// list. A weather failure aborts the whole cycle; a classification failure
// abandons the remaining batches of this cycle. Both wait for the next tick.
func (s *Scheduler) runCycle(ctx context.Context) {
	s.setRunning(true)
	defer s.setRunning(false)

	if !s.authenticated() {
		s.logger.Debug("cycle skipped, not authenticated")
		return
	}

	if s.offline() {
		s.logger.Debug("cycle skipped, offline")
		return
	}

	batches, err := s.batches.ListBatches(ctx)
	if err != nil {
		s.logger.Warn("cycle aborted, batch list unavailable", slog.String("error", err.Error()))
		return
	}

	active := filterActive(batches)
	if len(active) == 0 {
		s.logger.Debug("cycle skipped, no active batches")
		return
	}

	location := s.defaultDistrict
	phone := ""

	profile, err := s.profiles.Profile(ctx)
	if err != nil {
		s.logger.Warn("profile read failed, using default district", slog.String("error", err.Error()))
	} else if profile != nil {
		phone = profile.Phone
		if profile.District != "" {
			location = profile.District
		}
	}

	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	snapshot, err := s.weather.Weather(ctx, location)
	if err != nil {
		s.logger.Warn("cycle aborted, weather unavailable",
			slog.String("location", location),
			slog.String("error", err.Error()),
		)

		return
	}

	weatherDesc := snapshot.Description()

	s.logger.Debug("monitoring cycle started",
		slog.Int("active_batches", len(active)),
		slog.String("location", location),
		slog.String("weather", weatherDesc),
	)

	for _, b := range active {
		advisory, err := s.classifier.StorageAdvisory(ctx, b.StorageType, b.CropType, location, weatherDesc)
		if err != nil {
			s.logger.Warn("cycle abandoned, advisory unavailable",
				slog.String("batch", b.ID),
				slog.String("crop", b.CropType),
				slog.String("error", err.Error()),
			)

			return
		}

		if advisory != nil && advisory.Harmful() {
			outcome := s.alerts.Dispatch(ctx, phone, advisory.AlertMessage)
			s.logger.Info("harmful storage conditions",
				slog.String("batch", b.ID),
				slog.String("crop", b.CropType),
				slog.String("dispatch", outcome.String()),
			)
		}

		if err := s.sleepFunc(ctx, s.pacingDelay); err != nil {
			return
		}
	}
}

func (s *Scheduler) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}
