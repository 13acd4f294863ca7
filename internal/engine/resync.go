package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harvestguard/harvestguard-go/internal/risk"
	"github.com/harvestguard/harvestguard-go/internal/store"
)

// Resynchronizer refreshes shelf-life estimates for active batches after a
// reconnect. Estimate failures are isolated per batch; one bad crop type
// never blocks the rest of the sweep.
type Resynchronizer struct {
	batches   BatchStore
	estimator ShelfLifeEstimator
	bus       Toaster
	sweepMu   *sync.Mutex
	logger    *slog.Logger
}

// NewResynchronizer creates a Resynchronizer. sweepMu is shared with the
// risk monitoring scheduler so the two sweeps never interleave batch writes.
func NewResynchronizer(batches BatchStore, estimator ShelfLifeEstimator, bus Toaster, sweepMu *sync.Mutex, logger *slog.Logger) *Resynchronizer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resynchronizer{
		batches:   batches,
		estimator: estimator,
		bus:       bus,
		sweepMu:   sweepMu,
		logger:    logger,
	}
}

// Resync re-estimates shelf life for every active batch sequentially,
// persists the full collection once at the end, and returns how many
// batches changed. No active batches or no changes means no write and no
// toast.
func (r *Resynchronizer) Resync(ctx context.Context) (int, error) {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()

	batches, err := r.batches.ListBatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing batches: %w", err)
	}

	if len(filterActive(batches)) == 0 {
		r.logger.Debug("resync skipped, no active batches")
		return 0, nil
	}

	changed := 0

	for i := range batches {
		b := &batches[i]
		if b.Status != store.StatusActive {
			continue
		}

		if err := ctx.Err(); err != nil {
			return 0, err
		}

		hours, err := r.estimator.ShelfLife(ctx, b.CropType, b.Division, b.HarvestDate)
		if err != nil {
			r.logger.Warn("shelf-life refresh failed",
				slog.String("batch", b.ID),
				slog.String("crop", b.CropType),
				slog.String("error", err.Error()),
			)

			continue
		}

		tier := risk.FromHours(hours)
		if b.EtclHours != nil && *b.EtclHours == hours && b.RiskLevel != nil && *b.RiskLevel == tier {
			continue
		}

		b.EtclHours = &hours
		b.RiskLevel = &tier
		changed++
	}

	if changed == 0 {
		r.logger.Debug("resync found no changes")
		return 0, nil
	}

	if err := r.batches.ReplaceBatches(ctx, batches); err != nil {
		return 0, fmt.Errorf("persisting resynced batches: %w", err)
	}

	r.logger.Info("batches resynced", slog.Int("updated", changed))
	r.bus.Post(fmt.Sprintf("Synced %d crops with live weather.", changed))

	return changed, nil
}
