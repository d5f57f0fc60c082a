package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const walletColumns = `id, merchant_id, balance, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (merchant_id, balance)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, w.MerchantID, w.Balance).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", mapPgError(err))
	}
	return nil
}

// GetByID fetches a wallet by id (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id int64) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, id), "get wallet by id")
}

// GetByIDForUpdate fetches a wallet by id with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, id), "get wallet for update")
}

// Debit subtracts amount only while the balance still covers it.
func (r *WalletRepo) Debit(ctx context.Context, tx pgx.Tx, id int64, amount decimal.Decimal) error {
	query := `UPDATE wallets SET balance = balance - $1, updated_at = NOW() WHERE id = $2 AND balance >= $1`

	tag, err := tx.Exec(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("debit wallet: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("debit wallet %d: %w", id, ports.ErrConflict)
	}
	return nil
}

// Credit adds amount to the balance.
func (r *WalletRepo) Credit(ctx context.Context, tx pgx.Tx, id int64, amount decimal.Decimal) error {
	query := `UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

// SetBalance overwrites the balance within a transaction.
func (r *WalletRepo) SetBalance(ctx context.Context, tx pgx.Tx, id int64, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance, id)
	if err != nil {
		return fmt.Errorf("set wallet balance: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

// Delete removes a wallet. Foreign keys reject the delete while transactions reference it.
func (r *WalletRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM wallets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

func scanWallet(row pgx.Row, op string) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.MerchantID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, mapPgError(err))
	}
	return w, nil
}
