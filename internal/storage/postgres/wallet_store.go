package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

const walletColumns = `wallet, invite_code, referrer, is_admin, created_at`

// Insert adds a wallet. Returns ErrDuplicateKey if the address or the invite
// code already exists.
func (s *WalletStore) Insert(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `) VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		w.Wallet, w.InviteCode, w.Referrer, w.IsAdmin, w.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByWallet retrieves a wallet by address. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByWallet(ctx context.Context, wallet string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE wallet = $1`

	w, err := scanWallet(s.pool.QueryRow(ctx, query, wallet))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// GetByInviteCode retrieves a wallet by invite code. Returns ErrNotFound if
// not exists.
func (s *WalletStore) GetByInviteCode(ctx context.Context, inviteCode string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE invite_code = $1`

	w, err := scanWallet(s.pool.QueryRow(ctx, query, inviteCode))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet by invite code: %w", err)
	}
	return w, nil
}

// UpdateInviteCode replaces the invite code for a wallet.
func (s *WalletStore) UpdateInviteCode(ctx context.Context, wallet, inviteCode string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE wallets SET invite_code = $1 WHERE wallet = $2`,
		inviteCode, wallet)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("update invite code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a wallet. Only used to roll back a local record whose
// on-chain registration failed.
func (s *WalletStore) Delete(ctx context.Context, wallet string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM wallets WHERE wallet = $1`, wallet)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(&w.Wallet, &w.InviteCode, &w.Referrer, &w.IsAdmin, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
