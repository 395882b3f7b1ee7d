package participation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/events"
	"github.com/inc4/meme-land-backend/internal/storage"
	"github.com/inc4/meme-land-backend/internal/storage/memory"
)

// stubReplayer serves canned batches and records the requested position.
type stubReplayer struct {
	batches   [][]events.Event
	sinceSlot int64
	called    bool
}

func (r *stubReplayer) Replay(ctx context.Context, sinceSlot int64, onBatch func(context.Context, []events.Event) error) error {
	r.called = true
	r.sinceSlot = sinceSlot
	for _, b := range r.batches {
		if err := onBatch(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// recordingArchive captures archived events.
type recordingArchive struct {
	mu  sync.Mutex
	evs []*events.ParticipateEvent
}

func (a *recordingArchive) ArchiveParticipations(_ context.Context, evs []*events.ParticipateEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.evs = append(a.evs, evs...)
	return nil
}

func (a *recordingArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.evs)
}

func participateEvent(wallet string, slot int64) *events.ParticipateEvent {
	return &events.ParticipateEvent{
		Meta:        events.Meta{Slot: slot, Signature: "sig-" + wallet},
		TokenName:   "Doge",
		TokenSymbol: "DOGE",
		SolAmount:   "1.5",
		TokenAmount: "750",
		Participant: wallet,
	}
}

func seedCampaign(t *testing.T, store *memory.CampaignStore) string {
	t.Helper()
	c := &domain.Campaign{
		CampaignID:  "camp-1",
		TokenName:   "Doge",
		TokenSymbol: "DOGE",
	}
	require.NoError(t, store.Insert(context.Background(), c))
	return c.CampaignID
}

func TestIngestor_ApplyIsIdempotent(t *testing.T) {
	campaigns := memory.NewCampaignStore()
	parts := memory.NewParticipationStore()
	campaignID := seedCampaign(t, campaigns)

	ing := NewIngestor(parts, campaigns, &stubReplayer{}, nil, nil)
	require.NoError(t, ing.Start(context.Background()))

	// Same wallet and campaign at two slots: exactly one row, no error.
	require.NoError(t, ing.HandleParticipate(context.Background(), participateEvent("W1", 10)))
	require.NoError(t, ing.HandleParticipate(context.Background(), participateEvent("W1", 12)))

	rows, _, err := parts.List(context.Background(), storage.ParticipationFilter{CampaignID: campaignID}, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "W1", rows[0].Wallet)
	assert.Equal(t, "1.5", rows[0].SolSpent)
	assert.Equal(t, uint64(domain.UnrankedPosition), rows[0].DistributionPosition)
}

func TestIngestor_UnknownCampaignDropped(t *testing.T) {
	campaigns := memory.NewCampaignStore()
	parts := memory.NewParticipationStore()

	ing := NewIngestor(parts, campaigns, &stubReplayer{}, nil, nil)
	require.NoError(t, ing.Start(context.Background()))

	require.NoError(t, ing.HandleParticipate(context.Background(), participateEvent("W1", 10)))

	_, total, err := parts.List(context.Background(), storage.ParticipationFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestIngestor_NegativeLookupCached(t *testing.T) {
	campaigns := memory.NewCampaignStore()
	parts := memory.NewParticipationStore()

	ing := NewIngestor(parts, campaigns, &stubReplayer{}, nil, nil)
	require.NoError(t, ing.Start(context.Background()))

	require.NoError(t, ing.HandleParticipate(context.Background(), participateEvent("W1", 10)))

	// The not-found entry is cached: a campaign created afterwards is not
	// seen until the cache resets.
	seedCampaign(t, campaigns)
	require.NoError(t, ing.HandleParticipate(context.Background(), participateEvent("W2", 11)))

	_, total, err := parts.List(context.Background(), storage.ParticipationFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestIngestor_StartSkipsReplayWhenEmpty(t *testing.T) {
	rep := &stubReplayer{}
	ing := NewIngestor(memory.NewParticipationStore(), memory.NewCampaignStore(), rep, nil, nil)

	require.NoError(t, ing.Start(context.Background()))
	assert.False(t, rep.called, "empty table means no checkpoint to replay from")
}

func TestIngestor_StartReplaysSinceCheckpoint(t *testing.T) {
	campaigns := memory.NewCampaignStore()
	parts := memory.NewParticipationStore()
	campaignID := seedCampaign(t, campaigns)

	require.NoError(t, parts.Insert(context.Background(), &domain.Participation{
		ParticipationID:   "p0",
		CampaignID:        campaignID,
		Wallet:            "W0",
		LastProcessedSlot: 42,
	}))

	rep := &stubReplayer{batches: [][]events.Event{
		{participateEvent("W0", 42)}, // replay overlap: duplicate swallowed
		{participateEvent("W1", 43), participateEvent("W2", 44)},
	}}

	ing := NewIngestor(parts, campaigns, rep, nil, nil)
	require.NoError(t, ing.Start(context.Background()))

	assert.Equal(t, int64(42), rep.sinceSlot)

	_, total, err := parts.List(context.Background(), storage.ParticipationFilter{CampaignID: campaignID}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total, "no duplicates, no omissions")
}

func TestIngestor_LiveEventsBlockedUntilRecovery(t *testing.T) {
	campaigns := memory.NewCampaignStore()
	parts := memory.NewParticipationStore()
	seedCampaign(t, campaigns)

	ing := NewIngestor(parts, campaigns, &stubReplayer{}, nil, nil)

	// Recovery has not run: a live event must block until it does.
	done := make(chan error, 1)
	go func() {
		done <- ing.HandleParticipate(context.Background(), participateEvent("W1", 10))
	}()

	select {
	case err := <-done:
		t.Fatalf("live event applied before recovery: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, ing.Start(context.Background()))
	require.NoError(t, <-done)

	_, total, err := parts.List(context.Background(), storage.ParticipationFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestIngestor_ArchivesAppliedEvents(t *testing.T) {
	campaigns := memory.NewCampaignStore()
	parts := memory.NewParticipationStore()
	seedCampaign(t, campaigns)

	archive := &recordingArchive{}
	rep := &stubReplayer{batches: [][]events.Event{
		{participateEvent("W1", 10)},
	}}

	require.NoError(t, parts.Insert(context.Background(), &domain.Participation{
		ParticipationID:   "p0",
		CampaignID:        "camp-1",
		Wallet:            "W0",
		LastProcessedSlot: 5,
	}))

	ing := NewIngestor(parts, campaigns, rep, archive, nil)
	require.NoError(t, ing.Start(context.Background()))

	require.NoError(t, ing.HandleParticipate(context.Background(), participateEvent("W2", 11)))

	assert.Equal(t, 2, archive.count(), "replayed and live events are both archived")
}
