package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeypair(t *testing.T) *Keypair {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	kp, err := KeypairFromBase58(base58.Encode(priv))
	require.NoError(t, err)
	return kp
}

func testPubkey(seed byte) string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = seed
	}
	return base58.Encode(key)
}

func TestAppendCompactU16(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, appendCompactU16(nil, tt.n))
	}
}

func TestCollectAccounts_Ordering(t *testing.T) {
	payer := testPubkey(1)
	ins := []Instruction{{
		ProgramID: testPubkey(9),
		Accounts: []AccountMeta{
			{Pubkey: testPubkey(2), Writable: false},
			{Pubkey: testPubkey(3), Writable: true},
			{Pubkey: payer, Signer: true, Writable: true},
		},
	}}

	keys, header, err := collectAccounts(payer, ins)
	require.NoError(t, err)

	assert.Equal(t, payer, keys[0], "fee payer comes first")
	assert.Equal(t, []string{payer, testPubkey(3), testPubkey(2), testPubkey(9)}, keys)
	assert.Equal(t, byte(1), header.numRequiredSignatures)
	assert.Equal(t, byte(0), header.numReadonlySigned)
	assert.Equal(t, byte(2), header.numReadonlyUnsigned)
}

func TestCollectAccounts_FlagsMerged(t *testing.T) {
	payer := testPubkey(1)
	// Same account readonly in one instruction, writable in another.
	ins := []Instruction{
		{ProgramID: testPubkey(9), Accounts: []AccountMeta{{Pubkey: testPubkey(2)}}},
		{ProgramID: testPubkey(9), Accounts: []AccountMeta{{Pubkey: testPubkey(2), Writable: true}}},
	}

	keys, header, err := collectAccounts(payer, ins)
	require.NoError(t, err)
	assert.Equal(t, []string{payer, testPubkey(2), testPubkey(9)}, keys)
	assert.Equal(t, byte(1), header.numReadonlyUnsigned)
}

func TestBuildTransaction_SignatureVerifies(t *testing.T) {
	kp := testKeypair(t)
	blockhash := testPubkey(7)

	ins := []Instruction{{
		ProgramID: testPubkey(9),
		Accounts: []AccountMeta{
			{Pubkey: kp.PublicKey(), Signer: true, Writable: true},
			{Pubkey: testPubkey(2), Writable: true},
		},
		Data: []byte{1, 2, 3},
	}}

	encoded, err := BuildTransaction(kp, blockhash, ins)
	require.NoError(t, err)

	wire, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	require.Equal(t, byte(1), wire[0], "one signature")
	sig := wire[1:65]
	message := wire[65:]

	assert.True(t, ed25519.Verify(kp.PublicKeyBytes(), message, sig))

	// Header and payer key lead the message.
	assert.Equal(t, byte(1), message[0])
	numKeys := int(message[3])
	require.GreaterOrEqual(t, numKeys, 2)
	assert.Equal(t, kp.PublicKeyBytes(), []byte(message[4:36]))
}

func TestBuildTransaction_InvalidBlockhash(t *testing.T) {
	kp := testKeypair(t)
	_, err := BuildTransaction(kp, "nope", nil)
	require.Error(t, err)
}

func TestKeypairFromBase58_WrongLength(t *testing.T) {
	_, err := KeypairFromBase58(base58.Encode([]byte{1, 2, 3}))
	require.Error(t, err)
}
