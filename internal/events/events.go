package events

import (
	"context"

	"github.com/inc4/meme-land-backend/internal/domain"
)

// Meta carries the ledger position of the transaction an event was emitted in.
type Meta struct {
	Slot      int64
	Signature string
}

// Event is a decoded program event. Dispatch routes the event to the matching
// handler method.
type Event interface {
	Name() string
	EventMeta() Meta
	Dispatch(ctx context.Context, h Handler) error
}

// Handler receives decoded events, one method per event type.
type Handler interface {
	HandleParticipate(ctx context.Context, ev *ParticipateEvent) error
	HandleStatusChanged(ctx context.Context, ev *StatusChangedEvent) error
	HandleCalculateDistribution(ctx context.Context, ev *CalculateDistributionEvent) error
}

// ParticipateEvent is emitted when a wallet joins a presale. Amounts are
// decimal strings already scaled down from the on-chain fixed-point encoding.
type ParticipateEvent struct {
	Meta
	TokenName   string
	TokenSymbol string
	SolAmount   string
	TokenAmount string
	MintAccount string
	Campaign    string
	Participant string
}

func (e *ParticipateEvent) Name() string { return "ParticipateEvent" }
func (e *ParticipateEvent) EventMeta() Meta { return e.Meta }
func (e *ParticipateEvent) Dispatch(ctx context.Context, h Handler) error {
	return h.HandleParticipate(ctx, e)
}

// StatusChangedEvent is emitted when the program advances a campaign's
// lifecycle status. DistributeAt is the draw-start unix timestamp and is set
// only for the distributionOpened variant.
type StatusChangedEvent struct {
	Meta
	TokenName    string
	TokenSymbol  string
	Status       domain.CampaignStatus
	DistributeAt int64
}

func (e *StatusChangedEvent) Name() string { return "StatusChangedEvent" }
func (e *StatusChangedEvent) EventMeta() Meta { return e.Meta }
func (e *StatusChangedEvent) Dispatch(ctx context.Context, h Handler) error {
	return h.HandleStatusChanged(ctx, e)
}

// CalculateDistributionEvent is emitted when the program requests position
// assignment for a finished presale.
type CalculateDistributionEvent struct {
	Meta
	TokenName   string
	TokenSymbol string
	Campaign    string
}

func (e *CalculateDistributionEvent) Name() string { return "CalculateDistributionEvent" }
func (e *CalculateDistributionEvent) EventMeta() Meta { return e.Meta }
func (e *CalculateDistributionEvent) Dispatch(ctx context.Context, h Handler) error {
	return h.HandleCalculateDistribution(ctx, e)
}
