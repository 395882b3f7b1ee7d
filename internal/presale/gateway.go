package presale

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/inc4/meme-land-backend/internal/codec"
	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/observability"
	"github.com/inc4/meme-land-backend/internal/solana"
)

// Well-known program addresses referenced by presale instructions.
const (
	SystemProgramID          = "11111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	TokenMetadataProgramID   = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	RentSysvarID             = "SysvarRent111111111111111111111111111111111"
)

// ORAO VRF account seeds.
const (
	vrfNetworkStateSeed = "orao-vrf-network-configuration"
	vrfRandomnessSeed   = "orao-vrf-randomness-request"
)

// TokenParams describes a token to create and mint.
type TokenParams struct {
	Name     string
	Symbol   string
	URI      string
	Amount   string // whole-token decimal string
	Receiver string
}

// CampaignParams describes an on-chain campaign to create. Monetary fields
// are decimal strings converted to fixed-point on encode.
type CampaignParams struct {
	TokenName       string
	TokenSymbol     string
	StepMS          uint64
	Price           string
	MinAmount       string
	MaxAmount       string
	TokenSupply     string
	ListingPrice    string
	NumberOfWallets uint64
	SolTreasury     string
}

// Gateway issues single presale program invocations against the chain.
// Callers own retry policy.
type Gateway interface {
	CreateToken(ctx context.Context, p TokenParams) error
	MintTokens(ctx context.Context, p TokenParams) error
	CreateCampaign(ctx context.Context, p CampaignParams) error
	SetStatus(ctx context.Context, tokenName, tokenSymbol string, status domain.CampaignStatus, distributeAt int64) error
	CalculateDistribution(ctx context.Context, tokenName, tokenSymbol string) error
	AssignVerifiedUser(ctx context.Context, wallet string) error
}

// ProgramGateway builds, signs, and submits presale program transactions.
type ProgramGateway struct {
	rpc          solana.RPCClient
	payer        *solana.Keypair
	programID    string
	vrfProgramID string
}

// NewProgramGateway builds a gateway signing with payer against programID.
func NewProgramGateway(rpc solana.RPCClient, payer *solana.Keypair, programID, vrfProgramID string) *ProgramGateway {
	return &ProgramGateway{
		rpc:          rpc,
		payer:        payer,
		programID:    programID,
		vrfProgramID: vrfProgramID,
	}
}

// methodDiscriminator derives the 8-byte instruction prefix for a method.
func methodDiscriminator(method string) []byte {
	sum := sha256.Sum256([]byte("global:" + method))
	return sum[:8]
}

// submit assembles a single-instruction transaction and sends it.
func (g *ProgramGateway) submit(ctx context.Context, op string, ins solana.Instruction) error {
	blockhash, err := g.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("fetch blockhash: %w", err)
	}

	tx, err := solana.BuildTransaction(g.payer, blockhash, []solana.Instruction{ins})
	if err != nil {
		return fmt.Errorf("build transaction: %w", err)
	}

	if _, err := g.rpc.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("send transaction: %w", err)
	}
	observability.RecordTxSubmitted(op)
	return nil
}

func (g *ProgramGateway) derive(tokenName, tokenSymbol string) (*codec.Addresses, error) {
	return codec.DeriveAddresses(tokenName, tokenSymbol, g.programID, g.payer.PublicKey())
}

// CreateToken creates the mint and its metadata account.
func (g *ProgramGateway) CreateToken(ctx context.Context, p TokenParams) error {
	addrs, err := g.derive(p.Name, p.Symbol)
	if err != nil {
		return err
	}

	metadata, err := deriveMetadataAddress(addrs.Mint)
	if err != nil {
		return err
	}

	data := methodDiscriminator("create_token")
	data = codec.AppendString(data, p.Name)
	data = codec.AppendString(data, p.Symbol)
	data = codec.AppendString(data, p.URI)

	return g.submit(ctx, "createToken", solana.Instruction{
		ProgramID: g.programID,
		Accounts: []solana.AccountMeta{
			{Pubkey: g.payer.PublicKey(), Signer: true, Writable: true},
			{Pubkey: addrs.Mint, Writable: true},
			{Pubkey: addrs.Role},
			{Pubkey: addrs.Authority},
			{Pubkey: metadata, Writable: true},
			{Pubkey: TokenProgramID},
			{Pubkey: TokenMetadataProgramID},
			{Pubkey: SystemProgramID},
			{Pubkey: RentSysvarID},
		},
		Data: data,
	})
}

// MintTokens mints the initial supply to the receiver's token account.
func (g *ProgramGateway) MintTokens(ctx context.Context, p TokenParams) error {
	addrs, err := g.derive(p.Name, p.Symbol)
	if err != nil {
		return err
	}

	mintAmount, err := codec.ParseAmount(p.Amount, codec.SolDecimals)
	if err != nil {
		return err
	}

	tokenAccount, err := DeriveAssociatedTokenAddress(addrs.Mint, p.Receiver)
	if err != nil {
		return err
	}

	data := methodDiscriminator("mint_token")
	data = codec.AppendString(data, p.Name)
	data = codec.AppendString(data, p.Symbol)
	data = codec.AppendU64(data, mintAmount)

	return g.submit(ctx, "mintTokens", solana.Instruction{
		ProgramID: g.programID,
		Accounts: []solana.AccountMeta{
			{Pubkey: g.payer.PublicKey(), Signer: true, Writable: true},
			{Pubkey: p.Receiver},
			{Pubkey: addrs.Mint, Writable: true},
			{Pubkey: addrs.Role},
			{Pubkey: addrs.Authority},
			{Pubkey: tokenAccount, Writable: true},
			{Pubkey: TokenProgramID},
			{Pubkey: AssociatedTokenProgramID},
			{Pubkey: SystemProgramID},
		},
		Data: data,
	})
}

// CreateCampaign creates the campaign and stats accounts.
func (g *ProgramGateway) CreateCampaign(ctx context.Context, p CampaignParams) error {
	addrs, err := g.derive(p.TokenName, p.TokenSymbol)
	if err != nil {
		return err
	}

	data := methodDiscriminator("create_campaign")
	data = codec.AppendString(data, p.TokenName)
	data = codec.AppendString(data, p.TokenSymbol)
	data = codec.AppendU64(data, p.StepMS)

	for _, amount := range []string{p.Price, p.MinAmount, p.MaxAmount} {
		raw, err := codec.ParseAmount(amount, codec.SolDecimals)
		if err != nil {
			return err
		}
		data = codec.AppendU64(data, raw)
	}

	supply, err := codec.ParseAmount(p.TokenSupply, codec.SolDecimals)
	if err != nil {
		return err
	}
	data = codec.AppendU64(data, supply)

	listing, err := codec.ParseAmount(p.ListingPrice, codec.SolDecimals)
	if err != nil {
		return err
	}
	data = codec.AppendU64(data, listing)

	data = codec.AppendU64(data, p.NumberOfWallets)
	if data, err = codec.AppendPubkey(data, p.SolTreasury); err != nil {
		return err
	}

	return g.submit(ctx, "createCampaign", solana.Instruction{
		ProgramID: g.programID,
		Accounts: []solana.AccountMeta{
			{Pubkey: g.payer.PublicKey(), Signer: true, Writable: true},
			{Pubkey: addrs.Role},
			{Pubkey: addrs.Mint, Writable: true},
			{Pubkey: addrs.Vault, Writable: true},
			{Pubkey: addrs.Campaign, Writable: true},
			{Pubkey: addrs.Stats, Writable: true},
			{Pubkey: TokenProgramID},
			{Pubkey: SystemProgramID},
		},
		Data: data,
	})
}

// statusTags maps a lifecycle status to its on-chain tagged-union tag.
var statusTags = map[domain.CampaignStatus]byte{
	domain.StatusUpcoming:             0,
	domain.StatusPresaleOpened:        1,
	domain.StatusPresaleFinished:      2,
	domain.StatusDistributionOpened:   3,
	domain.StatusDistributionFinished: 4,
}

// SetStatus advances a campaign's on-chain status. distributeAt is encoded
// only for the distributionOpened variant.
func (g *ProgramGateway) SetStatus(ctx context.Context, tokenName, tokenSymbol string, status domain.CampaignStatus, distributeAt int64) error {
	addrs, err := g.derive(tokenName, tokenSymbol)
	if err != nil {
		return err
	}

	tag, ok := statusTags[status]
	if !ok {
		return fmt.Errorf("unknown status %q", status)
	}

	data := methodDiscriminator("set_status")
	data = codec.AppendString(data, tokenName)
	data = codec.AppendString(data, tokenSymbol)
	data = append(data, tag)
	if status == domain.StatusDistributionOpened {
		data = codec.AppendU64(data, uint64(distributeAt))
	}

	return g.submit(ctx, "setStatus", solana.Instruction{
		ProgramID: g.programID,
		Accounts: []solana.AccountMeta{
			{Pubkey: g.payer.PublicKey(), Signer: true, Writable: true},
			{Pubkey: addrs.Campaign, Writable: true},
			{Pubkey: addrs.Mint},
		},
		Data: data,
	})
}

// CalculateDistribution requests VRF-backed position assignment.
func (g *ProgramGateway) CalculateDistribution(ctx context.Context, tokenName, tokenSymbol string) error {
	addrs, err := g.derive(tokenName, tokenSymbol)
	if err != nil {
		return err
	}

	campaignRaw, err := decode32(addrs.Campaign)
	if err != nil {
		return err
	}

	random, err := codec.FindProgramAddress(g.vrfProgramID, []byte(vrfRandomnessSeed), campaignRaw)
	if err != nil {
		return err
	}
	config, err := codec.FindProgramAddress(g.vrfProgramID, []byte(vrfNetworkStateSeed))
	if err != nil {
		return err
	}
	treasury, err := g.fetchVrfTreasury(ctx, config)
	if err != nil {
		return err
	}

	data := methodDiscriminator("calculate_distribution")
	data = codec.AppendString(data, tokenName)
	data = codec.AppendString(data, tokenSymbol)

	return g.submit(ctx, "calculateDistribution", solana.Instruction{
		ProgramID: g.programID,
		Accounts: []solana.AccountMeta{
			{Pubkey: g.payer.PublicKey(), Signer: true, Writable: true},
			{Pubkey: addrs.Role},
			{Pubkey: addrs.Campaign, Writable: true},
			{Pubkey: addrs.Mint},
			{Pubkey: random, Writable: true},
			{Pubkey: treasury, Writable: true},
			{Pubkey: config, Writable: true},
			{Pubkey: g.vrfProgramID},
			{Pubkey: SystemProgramID},
		},
		Data: data,
	})
}

// AssignVerifiedUser grants a wallet the verified-user role.
func (g *ProgramGateway) AssignVerifiedUser(ctx context.Context, wallet string) error {
	assignerRole, err := codec.DeriveRoleAddress(g.programID, g.payer.PublicKey())
	if err != nil {
		return err
	}
	userRole, err := codec.DeriveRoleAddress(g.programID, wallet)
	if err != nil {
		return err
	}

	data := methodDiscriminator("assign_verified_user")
	if data, err = codec.AppendPubkey(data, wallet); err != nil {
		return err
	}

	return g.submit(ctx, "addVerifiedUser", solana.Instruction{
		ProgramID: g.programID,
		Accounts: []solana.AccountMeta{
			{Pubkey: g.payer.PublicKey(), Signer: true, Writable: true},
			{Pubkey: assignerRole},
			{Pubkey: userRole, Writable: true},
			{Pubkey: SystemProgramID},
		},
		Data: data,
	})
}

// fetchVrfTreasury reads the treasury address from the VRF network state
// account: 8-byte account discriminator, authority pubkey, treasury pubkey.
func (g *ProgramGateway) fetchVrfTreasury(ctx context.Context, configAddr string) (string, error) {
	info, err := g.rpc.GetAccountInfo(ctx, configAddr)
	if err != nil {
		return "", fmt.Errorf("fetch vrf config: %w", err)
	}
	if info == nil || len(info.Data) < 8+32+32 {
		return "", fmt.Errorf("vrf config account %s not readable", configAddr)
	}
	return encode32(info.Data[8+32 : 8+64]), nil
}

// DeriveAssociatedTokenAddress derives the associated token account for
// (mint, owner). Off-curve owners (program accounts) are allowed.
func DeriveAssociatedTokenAddress(mint, owner string) (string, error) {
	ownerRaw, err := decode32(owner)
	if err != nil {
		return "", err
	}
	tokenProgramRaw, err := decode32(TokenProgramID)
	if err != nil {
		return "", err
	}
	mintRaw, err := decode32(mint)
	if err != nil {
		return "", err
	}
	return codec.FindProgramAddress(AssociatedTokenProgramID, ownerRaw, tokenProgramRaw, mintRaw)
}

// deriveMetadataAddress derives the token metadata account for a mint.
func deriveMetadataAddress(mint string) (string, error) {
	programRaw, err := decode32(TokenMetadataProgramID)
	if err != nil {
		return "", err
	}
	mintRaw, err := decode32(mint)
	if err != nil {
		return "", err
	}
	return codec.FindProgramAddress(TokenMetadataProgramID, []byte("metadata"), programRaw, mintRaw)
}
