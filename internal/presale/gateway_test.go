package presale

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inc4/meme-land-backend/internal/codec"
	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/solana"
)

// captureRPC records submitted transactions.
type captureRPC struct {
	solana.RPCClient

	sent     []string
	accounts map[string][]byte
}

func (c *captureRPC) GetLatestBlockhash(context.Context) (string, error) {
	return base58.Encode(make([]byte, 32)), nil
}

func (c *captureRPC) SendTransaction(_ context.Context, tx string) (string, error) {
	c.sent = append(c.sent, tx)
	return "sig", nil
}

func (c *captureRPC) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	data, ok := c.accounts[pubkey]
	if !ok {
		return nil, nil
	}
	return &solana.AccountInfo{Data: data}, nil
}

func testGatewayKeypair(t *testing.T) *solana.Keypair {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	kp, err := solana.KeypairFromBase58(base58.Encode(priv))
	require.NoError(t, err)
	return kp
}

func TestMethodDiscriminator_Deterministic(t *testing.T) {
	a := methodDiscriminator("set_status")
	b := methodDiscriminator("set_status")
	assert.Equal(t, a, b)
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, methodDiscriminator("create_token"))
}

func TestProgramGateway_SetStatusSubmits(t *testing.T) {
	rpc := &captureRPC{}
	gw := NewProgramGateway(rpc, testGatewayKeypair(t), testProgramID, testVrfProgramID)

	err := gw.SetStatus(context.Background(), "Doge", "DOGE", domain.StatusPresaleOpened, 0)
	require.NoError(t, err)
	require.Len(t, rpc.sent, 1)

	wire, err := base64.StdEncoding.DecodeString(rpc.sent[0])
	require.NoError(t, err)
	assert.Equal(t, byte(1), wire[0], "single signature")
}

func TestProgramGateway_SetStatusRejectsUnknownStatus(t *testing.T) {
	rpc := &captureRPC{}
	gw := NewProgramGateway(rpc, testGatewayKeypair(t), testProgramID, testVrfProgramID)

	err := gw.SetStatus(context.Background(), "Doge", "DOGE", domain.CampaignStatus("bogus"), 0)
	require.Error(t, err)
	assert.Empty(t, rpc.sent)
}

func TestProgramGateway_CreateCampaignRejectsBadAmounts(t *testing.T) {
	rpc := &captureRPC{}
	gw := NewProgramGateway(rpc, testGatewayKeypair(t), testProgramID, testVrfProgramID)

	err := gw.CreateCampaign(context.Background(), CampaignParams{
		TokenName:   "Doge",
		TokenSymbol: "DOGE",
		Price:       "1,5", // invalid amount
		SolTreasury: testProgramID,
	})
	require.Error(t, err)
	assert.Empty(t, rpc.sent)
}

func TestProgramGateway_CalculateDistributionReadsVrfTreasury(t *testing.T) {
	// Network state: 8-byte discriminator, authority, treasury.
	treasury := make([]byte, 32)
	treasury[0] = 7
	state := make([]byte, 8+32+32)
	copy(state[40:], treasury)

	config, err := codec.FindProgramAddress(testVrfProgramID, []byte(vrfNetworkStateSeed))
	require.NoError(t, err)

	rpc := &captureRPC{accounts: map[string][]byte{config: state}}
	gw := NewProgramGateway(rpc, testGatewayKeypair(t), testProgramID, testVrfProgramID)

	err = gw.CalculateDistribution(context.Background(), "Doge", "DOGE")
	require.NoError(t, err)
	require.Len(t, rpc.sent, 1)
}

func TestProgramGateway_AssignVerifiedUser(t *testing.T) {
	rpc := &captureRPC{}
	gw := NewProgramGateway(rpc, testGatewayKeypair(t), testProgramID, testVrfProgramID)

	wallet := base58.Encode(func() []byte {
		b := make([]byte, 32)
		b[0] = 3
		return b
	}())

	require.NoError(t, gw.AssignVerifiedUser(context.Background(), wallet))
	require.Len(t, rpc.sent, 1)
}

func TestDeriveAssociatedTokenAddress_Deterministic(t *testing.T) {
	mint := base58.Encode(make([]byte, 32))
	owner := testProgramID

	a, err := DeriveAssociatedTokenAddress(mint, owner)
	require.NoError(t, err)
	b, err := DeriveAssociatedTokenAddress(mint, owner)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
