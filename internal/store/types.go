// Package store implements SQLite persistence for the HarvestGuard engine:
// the harvest batch collection, the farmer profile, SMS cooldown records,
// and small app flags (tutorial state). All engine state that must survive
// a process restart lives here.
package store

import "github.com/harvestguard/harvestguard-go/internal/risk"

// BatchStatus is the lifecycle state of a harvest batch.
type BatchStatus string

// Batch statuses as stored in the batches status column. The engine only
// ever reads active batches; sold/loss transitions come from external flows.
const (
	StatusActive BatchStatus = "active"
	StatusSold   BatchStatus = "sold"
	StatusLoss   BatchStatus = "loss"
)

// HarvestBatch is one tracked crop batch. EtclHours (estimated time to
// critical loss) and RiskLevel are nullable and always updated together:
// RiskLevel is the deterministic function of EtclHours from the risk package.
type HarvestBatch struct {
	ID          string
	CropType    string
	WeightKg    float64
	HarvestDate string // calendar date, ISO 8601 (2006-01-02)
	Division    string
	Upazila     string
	Union       string
	StorageType string
	Status      BatchStatus
	EtclHours   *float64
	RiskLevel   *risk.Tier

	CreatedAt int64 // row creation (Unix milliseconds)
	UpdatedAt int64 // row last update (Unix milliseconds)
}

// FarmerProfile is the single stored farmer identity. Read-only input to
// the engine: SMS recipient and default location.
type FarmerProfile struct {
	Name     string
	Phone    string
	NID      string
	Division string
	District string
	Upazila  string
	Village  string
	Image    string // base64 profile picture, opaque to the engine
	PIN      string
}

// Well-known app flag keys.
const (
	FlagTutorialSeen = "tutorial_seen"
)
