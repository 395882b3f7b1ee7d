package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/storage"
)

// CampaignStore implements storage.CampaignStore using PostgreSQL.
type CampaignStore struct {
	pool *Pool
}

// NewCampaignStore creates a new CampaignStore.
func NewCampaignStore(pool *Pool) *CampaignStore {
	return &CampaignStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CampaignStore = (*CampaignStore)(nil)

const campaignColumns = `
	campaign_id, token_name, token_symbol, token_image,
	project_name, short_description_1, short_description_2, big_description, cover_image,
	current_status, wallet_address,
	mint_address, campaign_address, stats_address, token_account,
	on_chain_token_descriptor, on_chain_campaign_descriptor,
	presale_price, listing_multiplier, listing_price, profit_chance,
	amount_of_wallet, min_investment_size, max_investment_size, token_supply,
	token_unlock_interval_sec,
	presale_start_utc, presale_end_utc, distribution_utc,
	presale_draw_start_utc, presale_draw_end_utc,
	solscan, dexscreener, raydium, jupiter,
	funds_to_lp, buyback_reserve, team, liquidity_at_listing, tokens_sent_to_lp, price_level_support,
	public_provision, liquidity, pie_chart_team, marketing,
	tokenomics, twitter, website, telegram, created_at
`

// Insert adds a new campaign. Returns ErrDuplicateKey if campaign_id or the
// (token_name, token_symbol) pair already exists.
func (s *CampaignStore) Insert(ctx context.Context, c *domain.Campaign) error {
	bigDesc, err := json.Marshal(c.BigDescription)
	if err != nil {
		return fmt.Errorf("marshal big description: %w", err)
	}
	tokenomics, err := json.Marshal(c.Tokenomics)
	if err != nil {
		return fmt.Errorf("marshal tokenomics: %w", err)
	}

	query := `
		INSERT INTO campaigns (` + campaignColumns + `)
		VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11,
			$12, $13, $14, $15,
			$16, $17,
			$18, $19, $20, $21,
			$22, $23, $24, $25,
			$26,
			$27, $28, $29,
			$30, $31,
			$32, $33, $34, $35,
			$36, $37, $38, $39, $40, $41,
			$42, $43, $44, $45,
			$46, $47, $48, $49, $50
		)
	`

	_, err = s.pool.Exec(ctx, query,
		c.CampaignID, c.TokenName, c.TokenSymbol, c.TokenImage,
		c.ProjectName, c.ShortDescription1, c.ShortDescription2, bigDesc, c.CoverImage,
		string(c.CurrentStatus), c.WalletAddress,
		c.MintAddress, c.CampaignAddress, c.StatsAddress, c.TokenAccount,
		c.OnChainTokenDescriptor, c.OnChainCampaignDescriptor,
		c.PresalePrice, c.ListingMultiplier, c.ListingPrice, c.ProfitChance,
		c.AmountOfWallet, c.MinInvestmentSize, c.MaxInvestmentSize, c.TokenSupply,
		c.TokenUnlockIntervalSec,
		c.PresaleStartUTC, c.PresaleEndUTC, c.DistributionUTC,
		c.PresaleDrawStartUTC, c.PresaleDrawEndUTC,
		c.Solscan, c.Dexscreener, c.Raydium, c.Jupiter,
		c.FundsToLP, c.BuybackReserve, c.Team, c.LiquidityAtListing, c.TokensSentToLP, c.PriceLevelSupport,
		c.PublicProvision, c.Liquidity, c.PieChartTeam, c.Marketing,
		tokenomics, c.Twitter, c.Website, c.Telegram, c.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// GetByID retrieves a campaign by its id. Returns ErrNotFound if not exists.
func (s *CampaignStore) GetByID(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE campaign_id = $1`

	c, err := scanCampaign(s.pool.QueryRow(ctx, query, campaignID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get campaign by id: %w", err)
	}
	return c, nil
}

// GetByToken retrieves the single campaign for (tokenName, tokenSymbol).
// Returns ErrNotFound if not exists.
func (s *CampaignStore) GetByToken(ctx context.Context, tokenName, tokenSymbol string) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE token_name = $1 AND token_symbol = $2`

	c, err := scanCampaign(s.pool.QueryRow(ctx, query, tokenName, tokenSymbol))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get campaign by token: %w", err)
	}
	return c, nil
}

// ListByStatusNot pages through campaigns whose status differs from status,
// ordered by created_at ASC.
func (s *CampaignStore) ListByStatusNot(ctx context.Context, status domain.CampaignStatus, offset, limit int) ([]*domain.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE current_status <> $1
		ORDER BY created_at ASC, campaign_id ASC
		OFFSET $2 LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, string(status), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list campaigns by status: %w", err)
	}
	defer rows.Close()

	return scanCampaigns(rows)
}

// UpdateStatus sets the lifecycle status of a campaign.
func (s *CampaignStore) UpdateStatus(ctx context.Context, campaignID string, status domain.CampaignStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE campaigns SET current_status = $1 WHERE campaign_id = $2`,
		string(status), campaignID)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// mutableColumns maps update keys to their columns. JSON-valued fields are
// marshalled before binding.
var mutableColumns = map[string]string{
	"tokenImage":         "token_image",
	"projectName":        "project_name",
	"shortDescription1":  "short_description_1",
	"shortDescription2":  "short_description_2",
	"bigDescription":     "big_description",
	"coverImage":         "cover_image",
	"presalePrice":       "presale_price",
	"listingMultiplier":  "listing_multiplier",
	"listingPrice":       "listing_price",
	"profitChance":       "profit_chance",
	"solscan":            "solscan",
	"dexscreener":        "dexscreener",
	"raydium":            "raydium",
	"jupiter":            "jupiter",
	"fundsToLP":          "funds_to_lp",
	"buybackReserve":     "buyback_reserve",
	"team":               "team",
	"liquidityAtListing": "liquidity_at_listing",
	"tokensSentToLP":     "tokens_sent_to_lp",
	"priceLevelSupport":  "price_level_support",
	"publicProvision":    "public_provision",
	"liquidity":          "liquidity",
	"pieChartTeam":       "pie_chart_team",
	"marketing":          "marketing",
	"tokenomics":         "tokenomics",
	"twitter":            "twitter",
	"website":            "website",
	"telegram":           "telegram",
}

// UpdateFields applies a partial update of mutable business fields. Unknown
// keys are ignored; the service layer validates mutability before calling.
func (s *CampaignStore) UpdateFields(ctx context.Context, campaignID string, fields map[string]any) error {
	var (
		sets []string
		args []any
	)
	for key, value := range fields {
		col, ok := mutableColumns[key]
		if !ok {
			continue
		}
		switch key {
		case "bigDescription", "tokenomics":
			data, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", key, err)
			}
			value = data
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, campaignID)
	query := fmt.Sprintf("UPDATE campaigns SET %s WHERE campaign_id = $%d",
		strings.Join(sets, ", "), len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update campaign fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a campaign. Only used to roll back a local record whose
// on-chain creation failed.
func (s *CampaignStore) Delete(ctx context.Context, campaignID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM campaigns WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanCampaign scans a single row into a Campaign.
func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var (
		c          domain.Campaign
		statusStr  string
		bigDesc    []byte
		tokenomics []byte
	)

	err := row.Scan(
		&c.CampaignID, &c.TokenName, &c.TokenSymbol, &c.TokenImage,
		&c.ProjectName, &c.ShortDescription1, &c.ShortDescription2, &bigDesc, &c.CoverImage,
		&statusStr, &c.WalletAddress,
		&c.MintAddress, &c.CampaignAddress, &c.StatsAddress, &c.TokenAccount,
		&c.OnChainTokenDescriptor, &c.OnChainCampaignDescriptor,
		&c.PresalePrice, &c.ListingMultiplier, &c.ListingPrice, &c.ProfitChance,
		&c.AmountOfWallet, &c.MinInvestmentSize, &c.MaxInvestmentSize, &c.TokenSupply,
		&c.TokenUnlockIntervalSec,
		&c.PresaleStartUTC, &c.PresaleEndUTC, &c.DistributionUTC,
		&c.PresaleDrawStartUTC, &c.PresaleDrawEndUTC,
		&c.Solscan, &c.Dexscreener, &c.Raydium, &c.Jupiter,
		&c.FundsToLP, &c.BuybackReserve, &c.Team, &c.LiquidityAtListing, &c.TokensSentToLP, &c.PriceLevelSupport,
		&c.PublicProvision, &c.Liquidity, &c.PieChartTeam, &c.Marketing,
		&tokenomics, &c.Twitter, &c.Website, &c.Telegram, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.CurrentStatus = domain.CampaignStatus(statusStr)
	if len(bigDesc) > 0 {
		if err := json.Unmarshal(bigDesc, &c.BigDescription); err != nil {
			return nil, fmt.Errorf("unmarshal big description: %w", err)
		}
	}
	if len(tokenomics) > 0 {
		if err := json.Unmarshal(tokenomics, &c.Tokenomics); err != nil {
			return nil, fmt.Errorf("unmarshal tokenomics: %w", err)
		}
	}
	return &c, nil
}

// scanCampaigns scans multiple rows into a slice of Campaign.
func scanCampaigns(rows pgx.Rows) ([]*domain.Campaign, error) {
	var campaigns []*domain.Campaign

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign row: %w", err)
		}
		campaigns = append(campaigns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign rows: %w", err)
	}
	return campaigns, nil
}
