package presale

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inc4/meme-land-backend/internal/codec"
	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/observability"
	"github.com/inc4/meme-land-backend/internal/solana"
)

// Default retry and polling tuning.
const (
	DefaultRetryBudget  = 5
	DefaultRetryDelay   = 1 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// Config tunes the client's retry budget and account polling.
type Config struct {
	RetryBudget  int
	RetryDelay   time.Duration
	PollInterval time.Duration
}

// CampaignStats is the on-chain stats account snapshot.
type CampaignStats struct {
	TotalParticipants uint64
}

// Client wraps the program gateway with a fixed retry budget per operation.
// Account-creation operations additionally poll until the new account
// becomes readable; "not yet readable" is an expected transient condition,
// not an RPC failure, and sits outside the retry budget.
type Client struct {
	gateway      Gateway
	rpc          solana.RPCClient
	programID    string
	vrfProgramID string

	retryBudget  int
	retryDelay   time.Duration
	pollInterval time.Duration

	log *zap.Logger
}

// NewClient builds a resilient presale client.
func NewClient(gateway Gateway, rpc solana.RPCClient, programID, vrfProgramID string, config *Config, log *zap.Logger) *Client {
	cfg := Config{
		RetryBudget:  DefaultRetryBudget,
		RetryDelay:   DefaultRetryDelay,
		PollInterval: DefaultPollInterval,
	}
	if config != nil {
		if config.RetryBudget > 0 {
			cfg.RetryBudget = config.RetryBudget
		}
		if config.RetryDelay > 0 {
			cfg.RetryDelay = config.RetryDelay
		}
		if config.PollInterval > 0 {
			cfg.PollInterval = config.PollInterval
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		gateway:      gateway,
		rpc:          rpc,
		programID:    programID,
		vrfProgramID: vrfProgramID,
		retryBudget:  cfg.RetryBudget,
		retryDelay:   cfg.RetryDelay,
		pollInterval: cfg.PollInterval,
		log:          log,
	}
}

// retry runs fn up to the retry budget with a fixed inter-attempt delay,
// logging each failed attempt at warn level.
func (c *Client) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.retryBudget; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		c.log.Warn("presale operation failed",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("budget", c.retryBudget),
			zap.Error(err))

		if attempt < c.retryBudget {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	observability.RecordRetryExhausted(op)
	return &ExhaustedError{Op: op, LastErr: lastErr}
}

// waitReadable polls the account until it becomes readable.
func (c *Client) waitReadable(ctx context.Context, pubkey string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			info, err := c.rpc.GetAccountInfo(ctx, pubkey)
			if err != nil {
				c.log.Debug("account poll failed", zap.String("account", pubkey), zap.Error(err))
				continue
			}
			if info != nil {
				return nil
			}
		}
	}
}

// CreateToken creates the mint, waits for it to become readable, and mints
// the initial supply. Returns the derived addresses for the token.
func (c *Client) CreateToken(ctx context.Context, p TokenParams) (*codec.Addresses, error) {
	addrs, err := codec.DeriveAddresses(p.Name, p.Symbol, c.programID, "")
	if err != nil {
		return nil, err
	}

	if err := c.retry(ctx, "createToken", func(ctx context.Context) error {
		return c.gateway.CreateToken(ctx, p)
	}); err != nil {
		return nil, err
	}

	if err := c.waitReadable(ctx, addrs.Mint); err != nil {
		return nil, fmt.Errorf("wait for mint %s: %w", addrs.Mint, err)
	}

	if err := c.retry(ctx, "mintTokens", func(ctx context.Context) error {
		return c.gateway.MintTokens(ctx, p)
	}); err != nil {
		return nil, err
	}

	return addrs, nil
}

// CreateCampaign creates the campaign accounts and waits for the campaign
// account to become readable.
func (c *Client) CreateCampaign(ctx context.Context, p CampaignParams) (*codec.Addresses, error) {
	addrs, err := codec.DeriveAddresses(p.TokenName, p.TokenSymbol, c.programID, "")
	if err != nil {
		return nil, err
	}

	if err := c.retry(ctx, "createCampaign", func(ctx context.Context) error {
		return c.gateway.CreateCampaign(ctx, p)
	}); err != nil {
		return nil, err
	}

	if err := c.waitReadable(ctx, addrs.Campaign); err != nil {
		return nil, fmt.Errorf("wait for campaign %s: %w", addrs.Campaign, err)
	}

	return addrs, nil
}

// SetStatus advances the campaign's on-chain status. distributeAt is passed
// only for the distributionOpened transition.
func (c *Client) SetStatus(ctx context.Context, tokenName, tokenSymbol string, status domain.CampaignStatus, distributeAt int64) error {
	return c.retry(ctx, "setStatus", func(ctx context.Context) error {
		return c.gateway.SetStatus(ctx, tokenName, tokenSymbol, status, distributeAt)
	})
}

// CalculateDistribution triggers on-chain VRF position assignment.
func (c *Client) CalculateDistribution(ctx context.Context, tokenName, tokenSymbol string) error {
	return c.retry(ctx, "calculateDistribution", func(ctx context.Context) error {
		return c.gateway.CalculateDistribution(ctx, tokenName, tokenSymbol)
	})
}

// AddVerifiedUser grants a wallet the verified-user role on chain.
func (c *Client) AddVerifiedUser(ctx context.Context, wallet string) error {
	return c.retry(ctx, "addVerifiedUser", func(ctx context.Context) error {
		return c.gateway.AssignVerifiedUser(ctx, wallet)
	})
}

// FetchCampaignStats reads the campaign stats account.
func (c *Client) FetchCampaignStats(ctx context.Context, tokenName, tokenSymbol string) (*CampaignStats, error) {
	addrs, err := codec.DeriveAddresses(tokenName, tokenSymbol, c.programID, "")
	if err != nil {
		return nil, err
	}

	var stats *CampaignStats
	err = c.retry(ctx, "fetchCampaignStats", func(ctx context.Context) error {
		info, err := c.rpc.GetAccountInfo(ctx, addrs.Stats)
		if err != nil {
			return err
		}
		if info == nil || len(info.Data) < 8+8 {
			return fmt.Errorf("stats account %s not readable", addrs.Stats)
		}
		// 8-byte account discriminator, then totalParticipants.
		stats = &CampaignStats{
			TotalParticipants: binary.LittleEndian.Uint64(info.Data[8:16]),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// vrfRandomnessLayout: 8-byte discriminator, 32-byte seed, 64-byte randomness.
const (
	vrfRandomnessOffset = 8 + 32
	vrfRandomnessLen    = 64
)

// FetchVrfRandomness polls the VRF randomness account for the campaign until
// the request is fulfilled (non-zero randomness bytes) and returns them.
func (c *Client) FetchVrfRandomness(ctx context.Context, campaignAddr string) ([]byte, error) {
	campaignRaw, err := decode32(campaignAddr)
	if err != nil {
		return nil, err
	}
	randomAddr, err := codec.FindProgramAddress(c.vrfProgramID, []byte(vrfRandomnessSeed), campaignRaw)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			info, err := c.rpc.GetAccountInfo(ctx, randomAddr)
			if err != nil {
				c.log.Debug("randomness poll failed", zap.String("account", randomAddr), zap.Error(err))
				continue
			}
			if info == nil || len(info.Data) < vrfRandomnessOffset+vrfRandomnessLen {
				continue
			}
			randomness := info.Data[vrfRandomnessOffset : vrfRandomnessOffset+vrfRandomnessLen]
			if !allZero(randomness) {
				out := make([]byte, vrfRandomnessLen)
				copy(out, randomness)
				return out, nil
			}
		}
	}
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
