package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/inc4/meme-land-backend/internal/events"
	"github.com/inc4/meme-land-backend/internal/participation"
)

// ParticipationArchive mirrors applied participation events into ClickHouse
// for analytics. The table is append-only; redelivered events produce
// duplicate rows that analytical queries dedupe by (signature, participant).
type ParticipationArchive struct {
	conn *Conn
	now  func() time.Time
}

// NewParticipationArchive creates a new ParticipationArchive.
func NewParticipationArchive(conn *Conn) *ParticipationArchive {
	return &ParticipationArchive{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ participation.ArchiveSink = (*ParticipationArchive)(nil)

// ArchiveParticipations appends a batch of participation events.
func (a *ParticipationArchive) ArchiveParticipations(ctx context.Context, evs []*events.ParticipateEvent) error {
	if len(evs) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO participation_events (
			slot, tx_signature,
			token_name, token_symbol,
			sol_amount, token_amount,
			mint_account, campaign, participant,
			archived_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	archivedAt := a.now().UTC()
	for _, ev := range evs {
		err = batch.Append(
			uint64(ev.Slot), ev.Signature,
			ev.TokenName, ev.TokenSymbol,
			ev.SolAmount, ev.TokenAmount,
			ev.MintAccount, ev.Campaign, ev.Participant,
			archivedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// CountByCampaign returns how many archived events reference a campaign
// address. Used by analytics queries and the integration tests.
func (a *ParticipationArchive) CountByCampaign(ctx context.Context, campaign string) (uint64, error) {
	var count uint64
	err := a.conn.QueryRow(ctx,
		`SELECT count(*) FROM participation_events WHERE campaign = ?`,
		campaign).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count archived events: %w", err)
	}
	return count, nil
}
