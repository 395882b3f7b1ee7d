// Package memory holds in-memory store implementations used by unit tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/storage"
)

// CampaignStore is an in-memory storage.CampaignStore.
type CampaignStore struct {
	mu        sync.RWMutex
	campaigns map[string]*domain.Campaign
}

// NewCampaignStore creates an empty in-memory campaign store.
func NewCampaignStore() *CampaignStore {
	return &CampaignStore{campaigns: make(map[string]*domain.Campaign)}
}

func (s *CampaignStore) Insert(_ context.Context, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[c.CampaignID]; ok {
		return storage.ErrDuplicateKey
	}
	for _, existing := range s.campaigns {
		if existing.TokenName == c.TokenName && existing.TokenSymbol == c.TokenSymbol {
			return storage.ErrDuplicateKey
		}
	}

	clone := *c
	s.campaigns[c.CampaignID] = &clone
	return nil
}

func (s *CampaignStore) GetByID(_ context.Context, campaignID string) (*domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.campaigns[campaignID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *CampaignStore) GetByToken(_ context.Context, tokenName, tokenSymbol string) (*domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.campaigns {
		if c.TokenName == tokenName && c.TokenSymbol == tokenSymbol {
			clone := *c
			return &clone, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *CampaignStore) ListByStatusNot(_ context.Context, status domain.CampaignStatus, offset, limit int) ([]*domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Campaign
	for _, c := range s.campaigns {
		if c.CurrentStatus != status {
			clone := *c
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (s *CampaignStore) UpdateStatus(_ context.Context, campaignID string, status domain.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[campaignID]
	if !ok {
		return storage.ErrNotFound
	}
	c.CurrentStatus = status
	return nil
}

func (s *CampaignStore) UpdateFields(_ context.Context, campaignID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[campaignID]
	if !ok {
		return storage.ErrNotFound
	}

	for key, value := range fields {
		switch key {
		case "tokenImage":
			c.TokenImage, _ = value.(string)
		case "projectName":
			c.ProjectName, _ = value.(string)
		case "shortDescription1":
			c.ShortDescription1, _ = value.(string)
		case "shortDescription2":
			c.ShortDescription2, _ = value.(string)
		case "bigDescription":
			c.BigDescription, _ = value.([]domain.DescriptionSection)
		case "coverImage":
			c.CoverImage, _ = value.(string)
		case "presalePrice":
			c.PresalePrice, _ = value.(string)
		case "listingMultiplier":
			c.ListingMultiplier, _ = value.(string)
		case "listingPrice":
			c.ListingPrice, _ = value.(string)
		case "profitChance":
			c.ProfitChance, _ = value.(string)
		case "solscan":
			c.Solscan, _ = value.(string)
		case "dexscreener":
			c.Dexscreener, _ = value.(string)
		case "raydium":
			c.Raydium, _ = value.(string)
		case "jupiter":
			c.Jupiter, _ = value.(string)
		case "twitter":
			c.Twitter, _ = value.(string)
		case "website":
			c.Website, _ = value.(string)
		case "telegram":
			c.Telegram, _ = value.(string)
		case "tokenomics":
			c.Tokenomics, _ = value.([]domain.TokenomicsItem)
		case "fundsToLP":
			c.FundsToLP, _ = value.(string)
		case "buybackReserve":
			c.BuybackReserve, _ = value.(string)
		case "team":
			c.Team, _ = value.(string)
		case "liquidityAtListing":
			c.LiquidityAtListing, _ = value.(string)
		case "tokensSentToLP":
			c.TokensSentToLP, _ = value.(string)
		case "priceLevelSupport":
			c.PriceLevelSupport, _ = value.(string)
		case "publicProvision":
			c.PublicProvision, _ = value.(string)
		case "liquidity":
			c.Liquidity, _ = value.(string)
		case "pieChartTeam":
			c.PieChartTeam, _ = value.(string)
		case "marketing":
			c.Marketing, _ = value.(string)
		}
	}
	return nil
}

func (s *CampaignStore) Delete(_ context.Context, campaignID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[campaignID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.campaigns, campaignID)
	return nil
}

var _ storage.CampaignStore = (*CampaignStore)(nil)
