package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/storage"
)

// ParticipationStore implements storage.ParticipationStore using PostgreSQL.
type ParticipationStore struct {
	pool *Pool
}

// NewParticipationStore creates a new ParticipationStore.
func NewParticipationStore(pool *Pool) *ParticipationStore {
	return &ParticipationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ParticipationStore = (*ParticipationStore)(nil)

const participationColumns = `
	participation_id, campaign_id, wallet,
	sol_spent, token_allocation,
	last_processed_slot, distribution_position, created_at
`

// Insert adds a participation row. Returns ErrDuplicateKey if a row for
// (campaign_id, wallet) already exists.
func (s *ParticipationStore) Insert(ctx context.Context, p *domain.Participation) error {
	query := `
		INSERT INTO participations (` + participationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		p.ParticipationID, p.CampaignID, p.Wallet,
		p.SolSpent, p.TokenAllocation,
		p.LastProcessedSlot, int64(p.DistributionPosition), p.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert participation: %w", err)
	}
	return nil
}

// MaxProcessedSlot returns the highest last_processed_slot across all rows;
// ok is false when the table is empty.
func (s *ParticipationStore) MaxProcessedSlot(ctx context.Context) (int64, bool, error) {
	var slot *int64
	err := s.pool.QueryRow(ctx, `SELECT max(last_processed_slot) FROM participations`).Scan(&slot)
	if err != nil {
		return 0, false, fmt.Errorf("max processed slot: %w", err)
	}
	if slot == nil {
		return 0, false, nil
	}
	return *slot, true, nil
}

// ListByCampaign pages rows for one campaign ordered by wallet ASC.
func (s *ParticipationStore) ListByCampaign(ctx context.Context, campaignID string, offset, limit int) ([]*domain.Participation, error) {
	query := `
		SELECT ` + participationColumns + `
		FROM participations
		WHERE campaign_id = $1
		ORDER BY wallet ASC
		OFFSET $2 LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, campaignID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list participations by campaign: %w", err)
	}
	defer rows.Close()

	return scanParticipations(rows)
}

// List pages rows matching filter ordered by created_at DESC, returning the
// page and the total match count.
func (s *ParticipationStore) List(ctx context.Context, filter storage.ParticipationFilter, offset, limit int) ([]*domain.Participation, int64, error) {
	where := `WHERE ($1 = '' OR campaign_id = $1) AND ($2 = '' OR wallet = $2)`

	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM participations `+where,
		filter.CampaignID, filter.Wallet).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count participations: %w", err)
	}

	query := `
		SELECT ` + participationColumns + `
		FROM participations ` + where + `
		ORDER BY created_at DESC, participation_id ASC
		OFFSET $3 LIMIT $4
	`

	rows, err := s.pool.Query(ctx, query, filter.CampaignID, filter.Wallet, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list participations: %w", err)
	}
	defer rows.Close()

	page, err := scanParticipations(rows)
	if err != nil {
		return nil, 0, err
	}
	return page, total, nil
}

// UpdatePositions bulk-updates distribution positions keyed by wallet for
// one campaign. Runs in a single transaction.
func (s *ParticipationStore) UpdatePositions(ctx context.Context, campaignID string, positions map[string]uint64) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin positions tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for wallet, position := range positions {
		_, err := tx.Exec(ctx,
			`UPDATE participations SET distribution_position = $1 WHERE campaign_id = $2 AND wallet = $3`,
			int64(position), campaignID, wallet)
		if err != nil {
			return fmt.Errorf("update position for %s: %w", wallet, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit positions tx: %w", err)
	}
	return nil
}

// scanParticipations scans multiple rows into a slice of Participation.
func scanParticipations(rows pgx.Rows) ([]*domain.Participation, error) {
	var participations []*domain.Participation

	for rows.Next() {
		var (
			p        domain.Participation
			position int64
		)
		err := rows.Scan(
			&p.ParticipationID, &p.CampaignID, &p.Wallet,
			&p.SolSpent, &p.TokenAllocation,
			&p.LastProcessedSlot, &position, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan participation row: %w", err)
		}
		p.DistributionPosition = uint64(position)
		participations = append(participations, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participation rows: %w", err)
	}
	return participations, nil
}
