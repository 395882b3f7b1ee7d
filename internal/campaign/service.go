package campaign

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inc4/meme-land-backend/internal/codec"
	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/events"
	"github.com/inc4/meme-land-backend/internal/presale"
	"github.com/inc4/meme-land-backend/internal/profit"
	"github.com/inc4/meme-land-backend/internal/storage"
)

var (
	// ErrInvalidInput rejects campaign input before any external call.
	ErrInvalidInput = errors.New("invalid campaign input")

	// ErrImmutableField rejects updates touching immutable campaign fields.
	ErrImmutableField = errors.New("immutable campaign field")
)

// Durations derive the lifecycle timestamps from the presale start.
type Durations struct {
	// PresaleDuration separates presale start from presale end.
	PresaleDuration time.Duration
	// DistributionDelay separates presale end from the distribution
	// calculation instant.
	DistributionDelay time.Duration
	// DrawStartDelay separates presale start from the draw start.
	DrawStartDelay time.Duration
	// DrawDuration separates draw start from draw end.
	DrawDuration time.Duration
}

// PresaleClient is the slice of the resilient client the campaign flow uses.
type PresaleClient interface {
	CreateToken(ctx context.Context, p presale.TokenParams) (*codec.Addresses, error)
	CreateCampaign(ctx context.Context, p presale.CampaignParams) (*codec.Addresses, error)
	SetStatus(ctx context.Context, tokenName, tokenSymbol string, status domain.CampaignStatus, distributeAt int64) error
	CalculateDistribution(ctx context.Context, tokenName, tokenSymbol string) error
}

// Service owns campaign creation, mutation, and status reconciliation.
type Service struct {
	store     storage.CampaignStore
	client    PresaleClient
	scheduler *Scheduler
	durations Durations
	tokenURI  string
	log       *zap.Logger

	now func() time.Time
}

// NewService builds the campaign service. tokenURI is the metadata URI base
// used for token creation.
func NewService(store storage.CampaignStore, client PresaleClient, scheduler *Scheduler, durations Durations, tokenURI string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     store,
		client:    client,
		scheduler: scheduler,
		durations: durations,
		tokenURI:  tokenURI,
		log:       log,
		now:       time.Now,
	}
}

// AddCampaign validates the input, computes derived fields, persists the
// record, creates the token and campaign on chain, and arms the lifecycle
// timers, in that order. Creation blocks until the scheduler's startup
// recovery pass has completed. An on-chain creation failure rolls back the
// local record; timers are armed strictly last, so no timer can exist for a
// record that is not in the database.
func (s *Service) AddCampaign(ctx context.Context, c *domain.Campaign) (*domain.Campaign, error) {
	if err := s.scheduler.WaitReady(ctx); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.validate(c, now); err != nil {
		return nil, err
	}

	c.CampaignID = uuid.NewString()
	c.CurrentStatus = domain.StatusUpcoming
	c.CreatedAt = now
	s.computeTimestamps(c)
	s.computeProfitChance(c)

	addrs, err := codec.DeriveAddresses(c.TokenName, c.TokenSymbol, s.scheduler.programID, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	c.MintAddress = addrs.Mint
	c.CampaignAddress = addrs.Campaign
	c.StatsAddress = addrs.Stats
	c.TokenAccount = addrs.Vault

	if c.OnChainTokenDescriptor == "" {
		c.OnChainTokenDescriptor = "Default Token Descriptor"
	}
	if c.OnChainCampaignDescriptor == "" {
		c.OnChainCampaignDescriptor = "Default Campaign Descriptor"
	}

	if err := s.store.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("persist campaign: %w", err)
	}

	if err := s.createOnChain(ctx, c); err != nil {
		if delErr := s.store.Delete(ctx, c.CampaignID); delErr != nil {
			s.log.Error("campaign rollback failed",
				zap.String("campaignId", c.CampaignID),
				zap.Error(delErr))
		}
		return nil, err
	}

	s.scheduler.ScheduleCampaignEvents(c, s.now())

	s.log.Info("campaign created",
		zap.String("campaignId", c.CampaignID),
		zap.String("token", c.TokenName),
		zap.Time("presaleStart", c.PresaleStartUTC))
	return c, nil
}

func (s *Service) validate(c *domain.Campaign, now time.Time) error {
	switch {
	case c.TokenName == "" || c.TokenSymbol == "":
		return fmt.Errorf("%w: token name and symbol are required", ErrInvalidInput)
	case c.WalletAddress == "":
		return fmt.Errorf("%w: wallet address is required", ErrInvalidInput)
	case !c.PresaleStartUTC.After(now):
		return fmt.Errorf("%w: presale start must be in the future", ErrInvalidInput)
	}
	return nil
}

// computeTimestamps derives the remaining lifecycle instants from the
// presale start. The configured durations keep them strictly increasing.
func (s *Service) computeTimestamps(c *domain.Campaign) {
	start := c.PresaleStartUTC
	c.PresaleEndUTC = start.Add(s.durations.PresaleDuration)
	c.DistributionUTC = c.PresaleEndUTC.Add(s.durations.DistributionDelay)
	c.PresaleDrawStartUTC = start.Add(s.durations.DrawStartDelay)
	c.PresaleDrawEndUTC = c.PresaleDrawStartUTC.Add(s.durations.DrawDuration)
}

// computeProfitChance fills ProfitChance from the presale economics when the
// caller did not supply one. Unparseable inputs leave the field empty.
func (s *Service) computeProfitChance(c *domain.Campaign) {
	if c.ProfitChance != "" {
		return
	}

	supply, err1 := strconv.ParseFloat(c.TokenSupply, 64)
	lp, err2 := strconv.ParseFloat(c.FundsToLP, 64)
	buyback, err3 := strconv.ParseFloat(c.BuybackReserve, 64)
	price, err4 := strconv.ParseFloat(c.PresalePrice, 64)
	mult, err5 := strconv.ParseFloat(c.ListingMultiplier, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || price == 0 {
		return
	}

	r := profit.Calculate(profit.Input{
		TotalTokenSupply:  supply,
		LPUsdFraction:     lp,
		BuybackFraction:   buyback,
		PresalePrice:      price,
		ListingMultiplier: mult,
		BuybackPrice:      price,
	})
	c.ProfitChance = strconv.FormatFloat(r.ProfitableUserShare, 'f', 4, 64)
}

func (s *Service) createOnChain(ctx context.Context, c *domain.Campaign) error {
	if _, err := s.client.CreateToken(ctx, presale.TokenParams{
		Name:     c.TokenName,
		Symbol:   c.TokenSymbol,
		URI:      s.tokenURI,
		Amount:   c.TokenSupply,
		Receiver: c.WalletAddress,
	}); err != nil {
		return fmt.Errorf("create token: %w", err)
	}

	if _, err := s.client.CreateCampaign(ctx, presale.CampaignParams{
		TokenName:       c.TokenName,
		TokenSymbol:     c.TokenSymbol,
		StepMS:          uint64(c.TokenUnlockIntervalSec) * 1000,
		Price:           c.PresalePrice,
		MinAmount:       c.MinInvestmentSize,
		MaxAmount:       c.MaxInvestmentSize,
		TokenSupply:     c.TokenSupply,
		ListingPrice:    c.ListingPrice,
		NumberOfWallets: uint64(c.AmountOfWallet),
		SolTreasury:     c.WalletAddress,
	}); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// mutableFields is the allowlist for partial updates. Everything else is
// identity or lifecycle state and may not be touched through UpdateCampaign.
var mutableFields = map[string]struct{}{
	"tokenImage":         {},
	"projectName":        {},
	"shortDescription1":  {},
	"shortDescription2":  {},
	"bigDescription":     {},
	"coverImage":         {},
	"presalePrice":       {},
	"listingMultiplier":  {},
	"listingPrice":       {},
	"profitChance":       {},
	"solscan":            {},
	"dexscreener":        {},
	"raydium":            {},
	"jupiter":            {},
	"fundsToLP":          {},
	"buybackReserve":     {},
	"team":               {},
	"liquidityAtListing": {},
	"tokensSentToLP":     {},
	"priceLevelSupport":  {},
	"publicProvision":    {},
	"liquidity":          {},
	"pieChartTeam":       {},
	"marketing":          {},
	"tokenomics":         {},
	"twitter":            {},
	"website":            {},
	"telegram":           {},
}

// UpdateCampaign applies a partial update after checking every key against
// the mutable-field allowlist.
func (s *Service) UpdateCampaign(ctx context.Context, campaignID string, fields map[string]any) error {
	for key := range fields {
		if _, ok := mutableFields[key]; !ok {
			return fmt.Errorf("%w: %s", ErrImmutableField, key)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return s.store.UpdateFields(ctx, campaignID, fields)
}

// GetByID retrieves one campaign.
func (s *Service) GetByID(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	return s.store.GetByID(ctx, campaignID)
}

// ReconcileStatus applies an on-chain status change. The event is
// authoritative: it unconditionally overwrites the local status, overriding
// scheduler-driven writes on divergence.
func (s *Service) ReconcileStatus(ctx context.Context, ev *events.StatusChangedEvent) error {
	c, err := s.store.GetByToken(ctx, ev.TokenName, ev.TokenSymbol)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Debug("status event for unknown campaign",
				zap.String("token", ev.TokenName),
				zap.String("symbol", ev.TokenSymbol))
			return nil
		}
		return err
	}

	if err := s.store.UpdateStatus(ctx, c.CampaignID, ev.Status); err != nil {
		return fmt.Errorf("reconcile status: %w", err)
	}

	s.log.Info("campaign status reconciled from chain",
		zap.String("campaignId", c.CampaignID),
		zap.String("status", string(ev.Status)),
		zap.Int64("slot", ev.Slot))
	return nil
}
