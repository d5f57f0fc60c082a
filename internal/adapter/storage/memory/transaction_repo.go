package memory

import (
	"context"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository. Records are append-only.
type TransactionRepo struct {
	store *Store
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(store *Store) *TransactionRepo {
	return &TransactionRepo{store: store}
}

// Create appends a purchase record within tx.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	s := r.store
	return s.inTx(ctx, tx, func() error {
		if _, ok := s.wallets[t.WalletID]; !ok {
			return fmt.Errorf("insert transaction: wallet %d: %w", t.WalletID, ports.ErrForeignKey)
		}
		if _, ok := s.items[t.ItemID]; !ok {
			return fmt.Errorf("insert transaction: item %d: %w", t.ItemID, ports.ErrForeignKey)
		}
		if _, ok := s.users[t.UserID]; !ok {
			return fmt.Errorf("insert transaction: user %d: %w", t.UserID, ports.ErrForeignKey)
		}
		s.nextTransaction++
		t.ID, t.CreatedAt = s.nextTransaction, s.now()
		cp := *t
		s.transactions[t.ID] = &cp
		return nil
	})
}

// GetByID returns the record or nil if absent.
func (r *TransactionRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.store.read(ctx, func() error {
		if t, ok := r.store.transactions[id]; ok {
			cp := *t
			out = &cp
		}
		return nil
	})
	return out, err
}

// ListByWallet returns one page of a wallet's records ordered by ascending id.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID int64, page ports.Page) ([]domain.Transaction, int64, error) {
	var (
		out   []domain.Transaction
		total int64
	)
	err := r.store.read(ctx, func() error {
		var all []domain.Transaction
		for _, t := range r.store.transactions {
			if t.WalletID == walletID {
				all = append(all, *t)
			}
		}
		sortByID(all, func(t domain.Transaction) int64 { return t.ID })
		total = int64(len(all))
		out = paginate(all, page)
		return nil
	})
	return out, total, err
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	store *Store
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(store *Store) *AuditRepo {
	return &AuditRepo{store: store}
}

// Create appends an audit entry.
func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	s := r.store
	return s.write(ctx, func() error {
		s.nextAudit++
		log.ID, log.CreatedAt = s.nextAudit, s.now()
		s.audit = append(s.audit, *log)
		return nil
	})
}

// Entries returns a copy of every audit entry in insertion order.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return append([]domain.AuditLog(nil), r.store.audit...)
}
