// Package engine implements the background risk-monitoring engine: the
// connectivity monitor, the reconnect batch resynchronizer, and the
// recurring risk monitoring scheduler. Every sweep processes its batch list
// strictly sequentially, so collaborator rate limits are respected by
// construction rather than by a limiter.
package engine

import (
	"context"
	"time"

	"github.com/harvestguard/harvestguard-go/internal/advisor"
	"github.com/harvestguard/harvestguard-go/internal/alert"
	"github.com/harvestguard/harvestguard-go/internal/store"
)

// BatchStore is the persisted batch collection. Satisfied by
// *store.SQLiteStore. Writes replace the whole collection (last write wins);
// the shared sweep mutex keeps the two sweeps from interleaving.
type BatchStore interface {
	ListBatches(ctx context.Context) ([]store.HarvestBatch, error)
	ReplaceBatches(ctx context.Context, batches []store.HarvestBatch) error
}

// ProfileSource reads the farmer profile. Satisfied by *store.SQLiteStore.
type ProfileSource interface {
	Profile(ctx context.Context) (*store.FarmerProfile, error)
}

// ShelfLifeEstimator requests fresh hours-to-critical-loss estimates.
// Satisfied by *advisor.WeatherClient.
type ShelfLifeEstimator interface {
	ShelfLife(ctx context.Context, cropType, division, harvestDate string) (float64, error)
}

// WeatherProvider fetches the shared per-cycle weather snapshot.
// Satisfied by *advisor.WeatherClient.
type WeatherProvider interface {
	Weather(ctx context.Context, location string) (*advisor.Snapshot, error)
}

// AdvisoryClassifier classifies one batch's storage situation.
// Satisfied by *advisor.AdvisoryClient.
type AdvisoryClassifier interface {
	StorageAdvisory(ctx context.Context, storageType, cropType, location, weatherDesc string) (*advisor.Advisory, error)
}

// AlertSender dispatches one alert attempt. Satisfied by *alert.Dispatcher.
type AlertSender interface {
	Dispatch(ctx context.Context, phone, message string) alert.Outcome
}

// Toaster posts a toast message. Satisfied by *notify.Bus.
type Toaster interface {
	Post(msg string)
}

// timeSleep waits for d or until the context is cancelled. The schedulers'
// sleepFunc default; tests override to avoid real waits.
func timeSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// filterActive returns the batches with active status, preserving order.
func filterActive(batches []store.HarvestBatch) []store.HarvestBatch {
	var active []store.HarvestBatch

	for _, b := range batches {
		if b.Status == store.StatusActive {
			active = append(active, b)
		}
	}

	return active
}
