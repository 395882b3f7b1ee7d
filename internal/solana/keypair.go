package solana

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// Keypair is an ed25519 signing key identified by its base58 public key.
type Keypair struct {
	priv ed25519.PrivateKey
}

// KeypairFromBase58 parses a base58-encoded 64-byte secret key
// (seed ‖ public key, the standard wallet export format).
func KeypairFromBase58(s string) (*Keypair, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode keypair: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair is %d bytes, want %d", len(raw), ed25519.PrivateKeySize)
	}
	return &Keypair{priv: ed25519.PrivateKey(raw)}, nil
}

// PublicKey returns the base58 display encoding of the public key.
func (k *Keypair) PublicKey() string {
	return base58.Encode(k.priv.Public().(ed25519.PublicKey))
}

// PublicKeyBytes returns the raw 32-byte public key.
func (k *Keypair) PublicKeyBytes() []byte {
	return k.priv.Public().(ed25519.PublicKey)
}

// Sign signs a serialized transaction message.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}
