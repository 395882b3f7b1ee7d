package memory

import (
	"context"
	"sync"

	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/storage"
)

// WalletStore is an in-memory storage.WalletStore.
type WalletStore struct {
	mu      sync.RWMutex
	wallets map[string]*domain.Wallet
}

// NewWalletStore creates an empty in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{wallets: make(map[string]*domain.Wallet)}
}

func (s *WalletStore) Insert(_ context.Context, w *domain.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[w.Wallet]; ok {
		return storage.ErrDuplicateKey
	}
	for _, existing := range s.wallets {
		if existing.InviteCode == w.InviteCode {
			return storage.ErrDuplicateKey
		}
	}
	clone := *w
	s.wallets[w.Wallet] = &clone
	return nil
}

func (s *WalletStore) GetByWallet(_ context.Context, wallet string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[wallet]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *w
	return &clone, nil
}

func (s *WalletStore) GetByInviteCode(_ context.Context, inviteCode string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.wallets {
		if w.InviteCode == inviteCode {
			clone := *w
			return &clone, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *WalletStore) UpdateInviteCode(_ context.Context, wallet, inviteCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[wallet]
	if !ok {
		return storage.ErrNotFound
	}
	for _, existing := range s.wallets {
		if existing.Wallet != wallet && existing.InviteCode == inviteCode {
			return storage.ErrDuplicateKey
		}
	}
	w.InviteCode = inviteCode
	return nil
}

func (s *WalletStore) Delete(_ context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[wallet]; !ok {
		return storage.ErrNotFound
	}
	delete(s.wallets, wallet)
	return nil
}

var _ storage.WalletStore = (*WalletStore)(nil)
