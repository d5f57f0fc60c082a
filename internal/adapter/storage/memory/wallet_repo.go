package memory

import (
	"context"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	store *Store
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(store *Store) *WalletRepo {
	return &WalletRepo{store: store}
}

// Create inserts a wallet for an existing merchant.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	s := r.store
	return s.write(ctx, func() error {
		if _, ok := s.merchants[w.MerchantID]; !ok {
			return fmt.Errorf("insert wallet: merchant %d: %w", w.MerchantID, ports.ErrForeignKey)
		}
		s.nextWallet++
		now := s.now()
		w.ID, w.CreatedAt, w.UpdatedAt = s.nextWallet, now, now
		cp := *w
		s.wallets[w.ID] = &cp
		return nil
	})
}

// GetByID returns the wallet or nil if absent.
func (r *WalletRepo) GetByID(ctx context.Context, id int64) (*domain.Wallet, error) {
	var out *domain.Wallet
	err := r.store.read(ctx, func() error {
		out = r.get(id)
		return nil
	})
	return out, err
}

// GetByIDForUpdate returns the wallet within tx. The transaction already holds the write slot.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Wallet, error) {
	var out *domain.Wallet
	err := r.store.inTx(ctx, tx, func() error {
		out = r.get(id)
		return nil
	})
	return out, err
}

func (r *WalletRepo) get(id int64) *domain.Wallet {
	w, ok := r.store.wallets[id]
	if !ok {
		return nil
	}
	cp := *w
	return &cp
}

// Debit subtracts amount only while the balance still covers it.
func (r *WalletRepo) Debit(ctx context.Context, tx pgx.Tx, id int64, amount decimal.Decimal) error {
	s := r.store
	return s.inTx(ctx, tx, func() error {
		w, ok := s.wallets[id]
		if !ok || w.Balance.LessThan(amount) {
			return fmt.Errorf("debit wallet %d: %w", id, ports.ErrConflict)
		}
		w.Balance = w.Balance.Sub(amount)
		w.UpdatedAt = s.now()
		return nil
	})
}

// Credit adds amount to the balance.
func (r *WalletRepo) Credit(ctx context.Context, tx pgx.Tx, id int64, amount decimal.Decimal) error {
	s := r.store
	return s.inTx(ctx, tx, func() error {
		w, ok := s.wallets[id]
		if !ok {
			return fmt.Errorf("wallet %d: %w", id, ports.ErrNotFound)
		}
		w.Balance = w.Balance.Add(amount)
		w.UpdatedAt = s.now()
		return nil
	})
}

// SetBalance overwrites the balance within a transaction.
func (r *WalletRepo) SetBalance(ctx context.Context, tx pgx.Tx, id int64, balance decimal.Decimal) error {
	s := r.store
	return s.inTx(ctx, tx, func() error {
		w, ok := s.wallets[id]
		if !ok {
			return fmt.Errorf("wallet %d: %w", id, ports.ErrNotFound)
		}
		w.Balance = balance
		w.UpdatedAt = s.now()
		return nil
	})
}

// Delete removes a wallet that no transaction references.
func (r *WalletRepo) Delete(ctx context.Context, id int64) error {
	s := r.store
	return s.write(ctx, func() error {
		if _, ok := s.wallets[id]; !ok {
			return fmt.Errorf("wallet %d: %w", id, ports.ErrNotFound)
		}
		for _, t := range s.transactions {
			if t.WalletID == id {
				return fmt.Errorf("delete wallet %d: transaction %d: %w", id, t.ID, ports.ErrForeignKey)
			}
		}
		delete(s.wallets, id)
		return nil
	})
}
