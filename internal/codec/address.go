package codec

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PDA seed tags used by the presale program.
const (
	seedMint      = "mint"
	seedCampaign  = "campaign"
	seedStats     = "stats"
	seedTreasure  = "treasure"
	seedAuthority = "authority"
	seedVault     = "vault"
	seedRole      = "role"
)

// Addresses holds the program-derived accounts for one token/campaign pair.
// All fields are base58 display strings.
type Addresses struct {
	Mint      string
	Campaign  string
	Stats     string
	Treasure  string
	Authority string
	Vault     string

	// Role is derived from the owner key and is empty when DeriveAddresses
	// is called without one.
	Role string
}

// DeriveAddresses computes the deterministic program accounts for
// (tokenName, tokenSymbol) under programID. ownerKey is optional; when given,
// the owner's role account is derived as well. Identical inputs always yield
// identical addresses.
func DeriveAddresses(tokenName, tokenSymbol, programID, ownerKey string) (*Addresses, error) {
	program, err := base58.Decode(programID)
	if err != nil {
		return nil, fmt.Errorf("decode program id: %w", err)
	}
	if len(program) != 32 {
		return nil, fmt.Errorf("program id is not 32 bytes: %s", programID)
	}

	mint, err := deriveAddress(program, []byte(seedMint), []byte(tokenName), []byte(tokenSymbol))
	if err != nil {
		return nil, fmt.Errorf("derive mint: %w", err)
	}

	addrs := &Addresses{Mint: base58.Encode(mint)}

	for _, d := range []struct {
		seed string
		dst  *string
	}{
		{seedCampaign, &addrs.Campaign},
		{seedStats, &addrs.Stats},
		{seedTreasure, &addrs.Treasure},
		{seedAuthority, &addrs.Authority},
		{seedVault, &addrs.Vault},
	} {
		a, err := deriveAddress(program, []byte(d.seed), mint)
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", d.seed, err)
		}
		*d.dst = base58.Encode(a)
	}

	if ownerKey != "" {
		owner, err := base58.Decode(ownerKey)
		if err != nil {
			return nil, fmt.Errorf("decode owner key: %w", err)
		}
		role, err := deriveAddress(program, []byte(seedRole), owner)
		if err != nil {
			return nil, fmt.Errorf("derive role: %w", err)
		}
		addrs.Role = base58.Encode(role)
	}

	return addrs, nil
}

// DeriveRoleAddress derives the role account for a single user key.
func DeriveRoleAddress(programID, userKey string) (string, error) {
	program, err := base58.Decode(programID)
	if err != nil {
		return "", fmt.Errorf("decode program id: %w", err)
	}
	user, err := base58.Decode(userKey)
	if err != nil {
		return "", fmt.Errorf("decode user key: %w", err)
	}
	role, err := deriveAddress(program, []byte(seedRole), user)
	if err != nil {
		return "", err
	}
	return base58.Encode(role), nil
}

// FindProgramAddress derives an address under an arbitrary program from raw
// seeds. Used for accounts owned by foreign programs (token metadata,
// associated token accounts, VRF randomness requests).
func FindProgramAddress(programID string, seeds ...[]byte) (string, error) {
	program, err := base58.Decode(programID)
	if err != nil {
		return "", fmt.Errorf("decode program id: %w", err)
	}
	if len(program) != 32 {
		return "", fmt.Errorf("program id is not 32 bytes: %s", programID)
	}
	addr, err := deriveAddress(program, seeds...)
	if err != nil {
		return "", err
	}
	return base58.Encode(addr), nil
}

// deriveAddress finds the first bump seed (from 255 downward) whose
// sha256(seeds || bump || programID || "ProgramDerivedAddress") digest is not
// a valid ed25519 curve point, which is the canonical derived address.
func deriveAddress(programID []byte, seeds ...[]byte) ([]byte, error) {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return hash[:], nil
		}
	}
	return nil, fmt.Errorf("no valid bump seed found")
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
