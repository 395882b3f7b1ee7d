// Package distribution assigns deterministic claim positions to presale
// participants once a campaign's VRF randomness is fulfilled.
package distribution

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/inc4/meme-land-backend/internal/events"
	"github.com/inc4/meme-land-backend/internal/observability"
	"github.com/inc4/meme-land-backend/internal/presale"
	"github.com/inc4/meme-land-backend/internal/storage"
)

// pageSize is how many participation rows one assignment task covers.
const pageSize = 100

// ChainReader is the slice of the presale client the assigner needs.
type ChainReader interface {
	FetchCampaignStats(ctx context.Context, tokenName, tokenSymbol string) (*presale.CampaignStats, error)
	FetchVrfRandomness(ctx context.Context, campaignAddr string) ([]byte, error)
}

// Assigner reacts to calculate-distribution events by ranking every
// participant of the campaign.
type Assigner struct {
	parts     storage.ParticipationStore
	campaigns storage.CampaignStore
	chain     ChainReader
	log       *zap.Logger
}

// NewAssigner builds a distribution assigner.
func NewAssigner(parts storage.ParticipationStore, campaigns storage.CampaignStore, chain ChainReader, log *zap.Logger) *Assigner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assigner{parts: parts, campaigns: campaigns, chain: chain, log: log}
}

// Position derives the deterministic rank for a wallet: the first 8 bytes of
// sha256(randomness ‖ wallet), read big-endian, reduced modulo
// max(totalParticipants, 1). Stable across reruns for fixed inputs.
func Position(randomness, walletRaw []byte, totalParticipants uint64) uint64 {
	if totalParticipants == 0 {
		totalParticipants = 1
	}
	h := sha256.New()
	h.Write(randomness)
	h.Write(walletRaw)
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]) % totalParticipants
}

// HandleCalculateDistribution fetches the campaign's randomness and
// participant count, then pages through its participation rows assigning
// positions. Page processing does not block fetching the next page; all
// pages complete before the handler returns.
func (a *Assigner) HandleCalculateDistribution(ctx context.Context, ev *events.CalculateDistributionEvent) error {
	c, err := a.campaigns.GetByToken(ctx, ev.TokenName, ev.TokenSymbol)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.log.Debug("distribution event for unknown campaign",
				zap.String("token", ev.TokenName),
				zap.String("symbol", ev.TokenSymbol))
			return nil
		}
		return err
	}

	randomness, err := a.chain.FetchVrfRandomness(ctx, c.CampaignAddress)
	if err != nil {
		return fmt.Errorf("fetch randomness: %w", err)
	}
	stats, err := a.chain.FetchCampaignStats(ctx, ev.TokenName, ev.TokenSymbol)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}

	var wg sync.WaitGroup
	for offset := 0; ; offset += pageSize {
		rows, err := a.parts.ListByCampaign(ctx, c.CampaignID, offset, pageSize)
		if err != nil {
			wg.Wait()
			return fmt.Errorf("page participations at %d: %w", offset, err)
		}
		if len(rows) == 0 {
			break
		}

		wallets := make([]string, len(rows))
		for i, row := range rows {
			wallets[i] = row.Wallet
		}

		wg.Add(1)
		go func(wallets []string) {
			defer wg.Done()
			a.assignPage(ctx, c.CampaignID, wallets, randomness, stats.TotalParticipants)
		}(wallets)

		if len(rows) < pageSize {
			break
		}
	}
	wg.Wait()

	observability.RecordDrawCompleted()
	a.log.Info("distribution positions assigned",
		zap.String("campaignId", c.CampaignID),
		zap.Uint64("totalParticipants", stats.TotalParticipants))
	return nil
}

func (a *Assigner) assignPage(ctx context.Context, campaignID string, wallets []string, randomness []byte, total uint64) {
	positions := make(map[string]uint64, len(wallets))
	for _, wallet := range wallets {
		raw, err := base58.Decode(wallet)
		if err != nil {
			a.log.Warn("skipping wallet with invalid encoding",
				zap.String("wallet", wallet), zap.Error(err))
			continue
		}
		positions[wallet] = Position(randomness, raw, total)
	}

	if err := a.parts.UpdatePositions(ctx, campaignID, positions); err != nil {
		a.log.Error("position update failed",
			zap.String("campaignId", campaignID),
			zap.Int("wallets", len(positions)),
			zap.Error(err))
		return
	}
	observability.RecordPositionsAssigned(len(positions))
}
