package campaign

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/observability"
	"github.com/inc4/meme-land-backend/internal/storage"
)

// recoveryPageSize bounds the startup recovery query.
const recoveryPageSize = 100

// readyPollInterval is how often campaign creation polls for recovery
// completion.
const readyPollInterval = 100 * time.Millisecond

// Scheduler arms one-shot timers for campaign lifecycle transitions. Timers
// are in-memory; restart recovery re-arms them from persisted timestamps.
// Armed timers are not individually cancelled; a transition that became
// moot re-applies the same status, which is an idempotent enum write.
type Scheduler struct {
	store     storage.CampaignStore
	client    PresaleClient
	programID string
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
}

// NewScheduler builds a lifecycle scheduler. Start must be called before
// campaigns can be created.
func NewScheduler(store storage.CampaignStore, client PresaleClient, programID string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:     store,
		client:    client,
		programID: programID,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start runs the startup recovery pass: every persisted campaign that has
// not reached its terminal status gets its timers re-armed, using the
// current instant as reference. Only after the full pass completes does the
// scheduler accept new campaigns.
func (s *Scheduler) Start(ctx context.Context) error {
	now := time.Now()
	recovered := 0

	for offset := 0; ; offset += recoveryPageSize {
		page, err := s.store.ListByStatusNot(ctx, domain.StatusDistributionFinished, offset, recoveryPageSize)
		if err != nil {
			return fmt.Errorf("recovery page at %d: %w", offset, err)
		}
		for _, c := range page {
			s.ScheduleCampaignEvents(c, now)
			recovered++
		}
		if len(page) < recoveryPageSize {
			break
		}
	}

	s.ready.Store(true)
	s.log.Info("scheduler recovery complete", zap.Int("campaigns", recovered))
	return nil
}

// WaitReady blocks until the recovery pass has completed, polling at a short
// interval.
func (s *Scheduler) WaitReady(ctx context.Context) error {
	for !s.ready.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}
	return nil
}

// Stop cancels all pending timer callbacks.
func (s *Scheduler) Stop() {
	s.cancel()
}

// ScheduleCampaignEvents arms a one-shot timer for every lifecycle instant
// still in the future relative to now. Past deadlines are skipped; a missed
// transition is caught by the on-chain status event, not by a timer.
func (s *Scheduler) ScheduleCampaignEvents(c *domain.Campaign, now time.Time) {
	transitions := []struct {
		at     time.Time
		status domain.CampaignStatus
	}{
		{c.PresaleStartUTC, domain.StatusPresaleOpened},
		{c.PresaleEndUTC, domain.StatusPresaleFinished},
		{c.PresaleDrawStartUTC, domain.StatusDistributionOpened},
		{c.PresaleDrawEndUTC, domain.StatusDistributionFinished},
	}

	armed := 0
	for _, tr := range transitions {
		if !tr.at.After(now) {
			continue
		}
		s.armStatusTimer(c, tr.status, tr.at)
		armed++
	}

	if c.DistributionUTC.After(now) {
		s.armDistributionTimer(c, c.DistributionUTC)
		armed++
	}

	s.log.Info("campaign timers armed",
		zap.String("campaignId", c.CampaignID),
		zap.Int("timers", armed))
}

func (s *Scheduler) armStatusTimer(c *domain.Campaign, status domain.CampaignStatus, at time.Time) {
	campaignID := c.CampaignID
	tokenName, tokenSymbol := c.TokenName, c.TokenSymbol
	drawStart := c.PresaleDrawStartUTC

	observability.RecordTimerArmed()
	time.AfterFunc(time.Until(at), func() {
		observability.RecordTimerDone()
		if s.ctx.Err() != nil {
			return
		}

		// The draw-start timestamp rides along only on the
		// distributionOpened transition.
		var distributeAt int64
		if status == domain.StatusDistributionOpened {
			distributeAt = drawStart.Unix()
		}

		if err := s.client.SetStatus(s.ctx, tokenName, tokenSymbol, status, distributeAt); err != nil {
			s.log.Error("status transition failed",
				zap.String("campaignId", campaignID),
				zap.String("status", string(status)),
				zap.Error(err))
			return
		}

		if err := s.store.UpdateStatus(s.ctx, campaignID, status); err != nil {
			s.log.Error("status persist failed",
				zap.String("campaignId", campaignID),
				zap.String("status", string(status)),
				zap.Error(err))
			return
		}

		s.log.Info("campaign status advanced",
			zap.String("campaignId", campaignID),
			zap.String("status", string(status)))
	})
}

func (s *Scheduler) armDistributionTimer(c *domain.Campaign, at time.Time) {
	campaignID := c.CampaignID
	tokenName, tokenSymbol := c.TokenName, c.TokenSymbol

	observability.RecordTimerArmed()
	time.AfterFunc(time.Until(at), func() {
		observability.RecordTimerDone()
		if s.ctx.Err() != nil {
			return
		}

		if err := s.client.CalculateDistribution(s.ctx, tokenName, tokenSymbol); err != nil {
			s.log.Error("distribution calculation failed",
				zap.String("campaignId", campaignID),
				zap.Error(err))
			return
		}

		s.log.Info("distribution calculation requested",
			zap.String("campaignId", campaignID))
	})
}
