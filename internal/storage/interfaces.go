package storage

import (
	"context"

	"github.com/inc4/meme-land-backend/internal/domain"
)

// CampaignStore provides access to campaign storage.
type CampaignStore interface {
	// Insert adds a new campaign. Returns ErrDuplicateKey if campaign_id exists.
	Insert(ctx context.Context, c *domain.Campaign) error

	// GetByID retrieves a campaign by its id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, campaignID string) (*domain.Campaign, error)

	// GetByToken retrieves the single campaign for (tokenName, tokenSymbol).
	// Returns ErrNotFound if not exists.
	GetByToken(ctx context.Context, tokenName, tokenSymbol string) (*domain.Campaign, error)

	// ListByStatusNot pages through campaigns whose status differs from
	// status, ordered by created_at ASC.
	ListByStatusNot(ctx context.Context, status domain.CampaignStatus, offset, limit int) ([]*domain.Campaign, error)

	// UpdateStatus sets the lifecycle status of a campaign.
	UpdateStatus(ctx context.Context, campaignID string, status domain.CampaignStatus) error

	// UpdateFields applies a partial update of mutable business fields.
	// Keys are campaign field names; the caller validates mutability.
	UpdateFields(ctx context.Context, campaignID string, fields map[string]any) error

	// Delete removes a campaign. Only used to roll back a local record whose
	// on-chain creation failed.
	Delete(ctx context.Context, campaignID string) error
}

// ParticipationFilter narrows participation queries. Zero values mean "any".
type ParticipationFilter struct {
	CampaignID string
	Wallet     string
}

// ParticipationStore provides access to participation storage.
type ParticipationStore interface {
	// Insert adds a participation row. Returns ErrDuplicateKey if a row for
	// (campaign_id, wallet) already exists.
	Insert(ctx context.Context, p *domain.Participation) error

	// MaxProcessedSlot returns the highest last_processed_slot across all
	// rows; ok is false when the table is empty.
	MaxProcessedSlot(ctx context.Context) (slot int64, ok bool, err error)

	// ListByCampaign pages rows for one campaign ordered by wallet ASC.
	ListByCampaign(ctx context.Context, campaignID string, offset, limit int) ([]*domain.Participation, error)

	// List pages rows matching filter ordered by created_at DESC, returning
	// the page and the total match count.
	List(ctx context.Context, filter ParticipationFilter, offset, limit int) ([]*domain.Participation, int64, error)

	// UpdatePositions bulk-updates distribution positions keyed by wallet
	// for one campaign.
	UpdatePositions(ctx context.Context, campaignID string, positions map[string]uint64) error
}

// WalletStore provides access to wallet storage.
type WalletStore interface {
	// Insert adds a wallet. Returns ErrDuplicateKey if the address or the
	// invite code already exists.
	Insert(ctx context.Context, w *domain.Wallet) error

	// GetByWallet retrieves a wallet by address. Returns ErrNotFound if not exists.
	GetByWallet(ctx context.Context, wallet string) (*domain.Wallet, error)

	// GetByInviteCode retrieves a wallet by invite code. Returns ErrNotFound if not exists.
	GetByInviteCode(ctx context.Context, inviteCode string) (*domain.Wallet, error)

	// UpdateInviteCode replaces the invite code for a wallet.
	UpdateInviteCode(ctx context.Context, wallet, inviteCode string) error

	// Delete removes a wallet. Only used to roll back a local record whose
	// on-chain registration failed.
	Delete(ctx context.Context, wallet string) error
}
