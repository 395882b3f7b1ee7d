package participation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/events"
	"github.com/inc4/meme-land-backend/internal/observability"
	"github.com/inc4/meme-land-backend/internal/storage"
)

// defaultCacheCap bounds the campaign lookup cache. On overflow the cache is
// reset; entries repopulate on demand.
const defaultCacheCap = 10000

// Replayer walks historic events since a ledger position.
type Replayer interface {
	Replay(ctx context.Context, sinceSlot int64, onBatch func(ctx context.Context, batch []events.Event) error) error
}

// ArchiveSink mirrors applied participation events append-only for
// analytics. Archive failures never affect ingestion.
type ArchiveSink interface {
	ArchiveParticipations(ctx context.Context, evs []*events.ParticipateEvent) error
}

type tokenKey struct {
	name   string
	symbol string
}

// cacheEntry caches a campaign lookup, including the not-found outcome so a
// campaign that never existed is queried once, not per event.
type cacheEntry struct {
	campaignID string
	found      bool
}

// Ingestor turns participation events into idempotent Participation rows.
// Live events are blocked until the startup recovery replay has completed,
// preventing ordering inversions between replayed and live records.
type Ingestor struct {
	parts     storage.ParticipationStore
	campaigns storage.CampaignStore
	replayer  Replayer
	archive   ArchiveSink
	log       *zap.Logger

	cacheMu  sync.Mutex
	cache    map[tokenKey]cacheEntry
	cacheCap int

	// recovered is closed once the recovery replay has completed.
	recovered chan struct{}

	now func() time.Time
}

// NewIngestor builds an ingestor. archive may be nil.
func NewIngestor(parts storage.ParticipationStore, campaigns storage.CampaignStore, replayer Replayer, archive ArchiveSink, log *zap.Logger) *Ingestor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingestor{
		parts:     parts,
		campaigns: campaigns,
		replayer:  replayer,
		archive:   archive,
		log:       log,
		cache:     make(map[tokenKey]cacheEntry),
		cacheCap:  defaultCacheCap,
		recovered: make(chan struct{}),
		now:       time.Now,
	}
}

// Start runs recovery: it reads the highest processed ledger position and,
// when one exists, replays history since it with the same idempotent-insert
// contract. Live events are admitted only after Start returns nil.
func (i *Ingestor) Start(ctx context.Context) error {
	slot, ok, err := i.parts.MaxProcessedSlot(ctx)
	if err != nil {
		return fmt.Errorf("read recovery checkpoint: %w", err)
	}

	if ok {
		if err := i.replayer.Replay(ctx, slot, i.applyBatch); err != nil {
			return fmt.Errorf("recovery replay since %d: %w", slot, err)
		}
	} else {
		i.log.Info("no participation rows, skipping recovery replay")
	}

	close(i.recovered)
	return nil
}

// HandleParticipate ingests one live event, waiting out recovery first.
func (i *Ingestor) HandleParticipate(ctx context.Context, ev *events.ParticipateEvent) error {
	select {
	case <-i.recovered:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := i.apply(ctx, ev); err != nil {
		return err
	}
	i.archiveBatch(ctx, []*events.ParticipateEvent{ev})
	return nil
}

// applyBatch is the recovery-path insert, bypassing the live gate.
func (i *Ingestor) applyBatch(ctx context.Context, batch []events.Event) error {
	applied := make([]*events.ParticipateEvent, 0, len(batch))
	for _, ev := range batch {
		pev, ok := ev.(*events.ParticipateEvent)
		if !ok {
			continue
		}
		if err := i.apply(ctx, pev); err != nil {
			return err
		}
		applied = append(applied, pev)
	}
	i.archiveBatch(ctx, applied)
	return nil
}

// apply resolves the campaign and inserts the row. Duplicate rows from
// replay overlap are swallowed; an unknown campaign drops the event at
// debug level.
func (i *Ingestor) apply(ctx context.Context, ev *events.ParticipateEvent) error {
	entry, err := i.resolveCampaign(ctx, ev.TokenName, ev.TokenSymbol)
	if err != nil {
		return err
	}
	if !entry.found {
		observability.RecordParticipationSkipped("unknown_campaign")
		i.log.Debug("participation event for unknown campaign",
			zap.String("token", ev.TokenName),
			zap.String("symbol", ev.TokenSymbol),
			zap.String("signature", ev.Signature))
		return nil
	}

	p := &domain.Participation{
		ParticipationID:      uuid.NewString(),
		CampaignID:           entry.campaignID,
		Wallet:               ev.Participant,
		SolSpent:             ev.SolAmount,
		TokenAllocation:      ev.TokenAmount,
		LastProcessedSlot:    ev.Slot,
		DistributionPosition: domain.UnrankedPosition,
		CreatedAt:            i.now(),
	}

	if err := i.parts.Insert(ctx, p); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordParticipationSkipped("duplicate")
			i.log.Debug("duplicate participation swallowed",
				zap.String("campaignId", entry.campaignID),
				zap.String("wallet", ev.Participant))
			return nil
		}
		return fmt.Errorf("insert participation: %w", err)
	}
	observability.RecordParticipationStored()
	return nil
}

func (i *Ingestor) resolveCampaign(ctx context.Context, tokenName, tokenSymbol string) (cacheEntry, error) {
	key := tokenKey{name: tokenName, symbol: tokenSymbol}

	i.cacheMu.Lock()
	entry, ok := i.cache[key]
	i.cacheMu.Unlock()
	if ok {
		return entry, nil
	}

	c, err := i.campaigns.GetByToken(ctx, tokenName, tokenSymbol)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		entry = cacheEntry{}
	case err != nil:
		return cacheEntry{}, fmt.Errorf("resolve campaign: %w", err)
	default:
		entry = cacheEntry{campaignID: c.CampaignID, found: true}
	}

	i.cacheMu.Lock()
	if len(i.cache) >= i.cacheCap {
		i.cache = make(map[tokenKey]cacheEntry)
	}
	i.cache[key] = entry
	i.cacheMu.Unlock()

	return entry, nil
}

func (i *Ingestor) archiveBatch(ctx context.Context, evs []*events.ParticipateEvent) {
	if i.archive == nil || len(evs) == 0 {
		return
	}
	if err := i.archive.ArchiveParticipations(ctx, evs); err != nil {
		i.log.Warn("participation archive failed", zap.Int("events", len(evs)), zap.Error(err))
	}
}
