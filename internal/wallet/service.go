// Package wallet manages registered user wallets and their invite codes.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/storage"
)

// ErrInvalidWallet is returned when a wallet address is not a valid
// base58-encoded 32-byte public key.
var ErrInvalidWallet = errors.New("invalid wallet address")

// Verifier registers a wallet as a verified participant on chain.
type Verifier interface {
	AddVerifiedUser(ctx context.Context, wallet string) error
}

// Service registers wallets, keeping the local record and the on-chain
// verified-user entry in step.
type Service struct {
	store storage.WalletStore
	chain Verifier
	log   *zap.Logger
}

// NewService builds a wallet service.
func NewService(store storage.WalletStore, chain Verifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, chain: chain, log: log}
}

// AddSingle registers one wallet: mints a fresh invite code, persists the
// row, then registers the wallet as a verified user on chain. A failed
// chain registration rolls the local record back so the address can be
// retried.
func (s *Service) AddSingle(ctx context.Context, addr, referrer string, isAdmin bool) (*domain.Wallet, error) {
	if err := validateAddress(addr); err != nil {
		return nil, err
	}

	w := &domain.Wallet{
		Wallet:     addr,
		InviteCode: uuid.NewString(),
		Referrer:   referrer,
		IsAdmin:    isAdmin,
	}
	if err := s.store.Insert(ctx, w); err != nil {
		return nil, fmt.Errorf("insert wallet: %w", err)
	}

	if err := s.chain.AddVerifiedUser(ctx, addr); err != nil {
		if delErr := s.store.Delete(ctx, addr); delErr != nil {
			s.log.Error("wallet rollback failed",
				zap.String("wallet", addr), zap.Error(delErr))
		}
		return nil, fmt.Errorf("register verified user: %w", err)
	}

	s.log.Info("wallet registered",
		zap.String("wallet", addr), zap.Bool("isAdmin", isAdmin))
	return w, nil
}

// GetSingle returns the wallet record for an address.
func (s *Service) GetSingle(ctx context.Context, addr string) (*domain.Wallet, error) {
	return s.store.GetByWallet(ctx, addr)
}

// GetByInviteCode returns the wallet that owns an invite code.
func (s *Service) GetByInviteCode(ctx context.Context, code string) (*domain.Wallet, error) {
	return s.store.GetByInviteCode(ctx, code)
}

// UpdateInviteCode replaces a wallet's invite code with a fresh one and
// returns it.
func (s *Service) UpdateInviteCode(ctx context.Context, addr string) (string, error) {
	code := uuid.NewString()
	if err := s.store.UpdateInviteCode(ctx, addr, code); err != nil {
		return "", err
	}
	return code, nil
}

func validateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return ErrInvalidWallet
	}
	return nil
}
