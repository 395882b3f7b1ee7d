package domain

import "time"

// UnrankedPosition is the distribution position assigned to a participation
// before the draw has run.
const UnrankedPosition = 100000

// Participation is one wallet's stake in one campaign. At most one row exists
// per (CampaignID, Wallet) pair; the storage layer enforces the uniqueness.
type Participation struct {
	ParticipationID string
	CampaignID      string
	Wallet          string

	// SolSpent and TokenAllocation are decimal strings scaled down from the
	// on-chain fixed-point amounts.
	SolSpent        string
	TokenAllocation string

	// LastProcessedSlot is the ledger position at which the participation
	// event was observed. The maximum across all rows is the replay
	// checkpoint after a restart.
	LastProcessedSlot int64

	// DistributionPosition is the draw rank; UnrankedPosition until the
	// distribution assigner has run.
	DistributionPosition uint64

	CreatedAt time.Time
}
