// Package risk maps shelf-life estimates to risk tiers. The tier is a pure
// function of the estimated hours to critical loss; callers must always
// update the two fields together.
package risk

// Tier thresholds in hours. A batch under 48 hours from critical loss is
// high risk; under a week, medium; otherwise low.
const (
	highThresholdHours   = 48
	mediumThresholdHours = 168
)

// Tier is the spoilage risk classification for a harvest batch.
type Tier string

// Risk tiers as stored in the batches risk_level column.
const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// FromHours returns the tier for the given hours-to-critical-loss estimate.
func FromHours(hours float64) Tier {
	switch {
	case hours < highThresholdHours:
		return TierHigh
	case hours < mediumThresholdHours:
		return TierMedium
	default:
		return TierLow
	}
}

// Valid reports whether t is one of the three known tiers.
func Valid(t Tier) bool {
	return t == TierLow || t == TierMedium || t == TierHigh
}
