package campaign

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inc4/meme-land-backend/internal/codec"
	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/events"
	"github.com/inc4/meme-land-backend/internal/presale"
	"github.com/inc4/meme-land-backend/internal/storage"
	"github.com/inc4/meme-land-backend/internal/storage/memory"
)

const testProgramID = "4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM"

type statusCall struct {
	token        string
	status       domain.CampaignStatus
	distributeAt int64
}

// mockChain is a PresaleClient double recording calls.
type mockChain struct {
	mu sync.Mutex

	failCreateToken    error
	failCreateCampaign error

	tokensCreated    int
	campaignsCreated int
	statusCalls      []statusCall
	calcCalls        []string
}

func (m *mockChain) CreateToken(_ context.Context, p presale.TokenParams) (*codec.Addresses, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateToken != nil {
		return nil, m.failCreateToken
	}
	m.tokensCreated++
	return codec.DeriveAddresses(p.Name, p.Symbol, testProgramID, "")
}

func (m *mockChain) CreateCampaign(_ context.Context, p presale.CampaignParams) (*codec.Addresses, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateCampaign != nil {
		return nil, m.failCreateCampaign
	}
	m.campaignsCreated++
	return codec.DeriveAddresses(p.TokenName, p.TokenSymbol, testProgramID, "")
}

func (m *mockChain) SetStatus(_ context.Context, tokenName, _ string, status domain.CampaignStatus, distributeAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls = append(m.statusCalls, statusCall{token: tokenName, status: status, distributeAt: distributeAt})
	return nil
}

func (m *mockChain) CalculateDistribution(_ context.Context, tokenName, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calcCalls = append(m.calcCalls, tokenName)
	return nil
}

func (m *mockChain) statuses() []statusCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]statusCall(nil), m.statusCalls...)
}

func (m *mockChain) calculations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calcCalls...)
}

func testDurations() Durations {
	return Durations{
		PresaleDuration:   24 * time.Hour,
		DistributionDelay: 1 * time.Hour,
		DrawStartDelay:    48 * time.Hour,
		DrawDuration:      24 * time.Hour,
	}
}

func newTestService(t *testing.T, chain *mockChain) (*Service, *memory.CampaignStore, *Scheduler) {
	t.Helper()
	store := memory.NewCampaignStore()
	sched := NewScheduler(store, chain, testProgramID, nil)
	require.NoError(t, sched.Start(context.Background()))
	t.Cleanup(sched.Stop)

	svc := NewService(store, chain, sched, testDurations(), "https://example.com/meta.json", nil)
	return svc, store, sched
}

func validInput(start time.Time) *domain.Campaign {
	return &domain.Campaign{
		TokenName:         "Doge",
		TokenSymbol:       "DOGE",
		WalletAddress:     testProgramID,
		PresaleStartUTC:   start,
		TokenSupply:       "1000000",
		PresalePrice:      "0.002",
		ListingMultiplier: "3",
		FundsToLP:         "0.75",
		BuybackReserve:    "0.15",
		MinInvestmentSize: "0.1",
		MaxInvestmentSize: "10",
		AmountOfWallet:    5000,
	}
}

func TestService_AddCampaign(t *testing.T) {
	chain := &mockChain{}
	svc, store, _ := newTestService(t, chain)

	start := time.Now().Add(time.Hour)
	c, err := svc.AddCampaign(context.Background(), validInput(start))
	require.NoError(t, err)

	assert.NotEmpty(t, c.CampaignID)
	assert.Equal(t, domain.StatusUpcoming, c.CurrentStatus)

	// Timestamps strictly increasing in lifecycle order.
	assert.True(t, c.PresaleStartUTC.Before(c.PresaleEndUTC))
	assert.True(t, c.PresaleEndUTC.Before(c.DistributionUTC))
	assert.True(t, c.DistributionUTC.Before(c.PresaleDrawStartUTC))
	assert.True(t, c.PresaleDrawStartUTC.Before(c.PresaleDrawEndUTC))

	// Derived addresses are filled and deterministic.
	addrs, err := codec.DeriveAddresses("Doge", "DOGE", testProgramID, "")
	require.NoError(t, err)
	assert.Equal(t, addrs.Mint, c.MintAddress)
	assert.Equal(t, addrs.Campaign, c.CampaignAddress)
	assert.Equal(t, addrs.Stats, c.StatsAddress)

	assert.NotEmpty(t, c.ProfitChance)
	assert.Equal(t, 1, chain.tokensCreated)
	assert.Equal(t, 1, chain.campaignsCreated)

	stored, err := store.GetByID(context.Background(), c.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, c.CampaignID, stored.CampaignID)
}

func TestService_AddCampaignRejectsPastStart(t *testing.T) {
	chain := &mockChain{}
	svc, _, _ := newTestService(t, chain)

	_, err := svc.AddCampaign(context.Background(), validInput(time.Now().Add(-time.Minute)))
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, chain.tokensCreated, "no external call before validation passes")
}

func TestService_AddCampaignRollsBackOnChainFailure(t *testing.T) {
	chain := &mockChain{failCreateCampaign: errors.New("chain down")}
	svc, store, _ := newTestService(t, chain)

	_, err := svc.AddCampaign(context.Background(), validInput(time.Now().Add(time.Hour)))
	require.Error(t, err)

	// The local record is rolled back.
	list, err := store.ListByStatusNot(context.Background(), domain.StatusDistributionFinished, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_AddCampaignBlocksUntilSchedulerReady(t *testing.T) {
	store := memory.NewCampaignStore()
	chain := &mockChain{}
	sched := NewScheduler(store, chain, testProgramID, nil)
	t.Cleanup(sched.Stop)
	svc := NewService(store, chain, sched, testDurations(), "", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err := svc.AddCampaign(ctx, validInput(time.Now().Add(time.Hour)))
	require.ErrorIs(t, err, context.DeadlineExceeded, "creation blocks while recovery has not completed")
}

func TestService_UpdateCampaignImmutableGuard(t *testing.T) {
	chain := &mockChain{}
	svc, _, _ := newTestService(t, chain)

	c, err := svc.AddCampaign(context.Background(), validInput(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	err = svc.UpdateCampaign(context.Background(), c.CampaignID, map[string]any{"tokenName": "Evil"})
	require.ErrorIs(t, err, ErrImmutableField)

	err = svc.UpdateCampaign(context.Background(), c.CampaignID, map[string]any{"minInvestmentSize": "0"})
	require.ErrorIs(t, err, ErrImmutableField)

	require.NoError(t, svc.UpdateCampaign(context.Background(), c.CampaignID, map[string]any{"twitter": "https://x.com/doge"}))

	got, err := svc.GetByID(context.Background(), c.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/doge", got.Twitter)
}

func TestService_ReconcileStatusIsAuthoritative(t *testing.T) {
	chain := &mockChain{}
	svc, store, _ := newTestService(t, chain)

	c, err := svc.AddCampaign(context.Background(), validInput(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(context.Background(), c.CampaignID, domain.StatusDistributionOpened))

	// The on-chain event overwrites even a "backward" divergence.
	err = svc.ReconcileStatus(context.Background(), &events.StatusChangedEvent{
		TokenName:   "Doge",
		TokenSymbol: "DOGE",
		Status:      domain.StatusPresaleFinished,
	})
	require.NoError(t, err)

	got, err := store.GetByID(context.Background(), c.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPresaleFinished, got.CurrentStatus)
}

func TestService_ReconcileStatusUnknownCampaignDropped(t *testing.T) {
	chain := &mockChain{}
	svc, _, _ := newTestService(t, chain)

	err := svc.ReconcileStatus(context.Background(), &events.StatusChangedEvent{
		TokenName:   "Ghost",
		TokenSymbol: "GST",
		Status:      domain.StatusPresaleOpened,
	})
	require.NoError(t, err)
}

func TestService_AddCampaignDuplicateToken(t *testing.T) {
	chain := &mockChain{}
	svc, _, _ := newTestService(t, chain)

	_, err := svc.AddCampaign(context.Background(), validInput(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = svc.AddCampaign(context.Background(), validInput(time.Now().Add(time.Hour)))
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
}
