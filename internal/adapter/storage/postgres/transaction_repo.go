package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, wallet_id, item_id, user_id, quantity, unit_price, total_price, created_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a purchase record within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (wallet_id, item_id, user_id, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := tx.QueryRow(ctx, query,
		t.WalletID, t.ItemID, t.UserID, t.Quantity, t.UnitPrice, t.TotalPrice,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", mapPgError(err))
	}
	return nil
}

// GetByID fetches a purchase record by id.
func (r *TransactionRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t := &domain.Transaction{}
	if err := scanTransaction(r.pool.QueryRow(ctx, query, id), t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// ListByWallet returns one page of a wallet's purchases in ascending id order.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID int64, page ports.Page) ([]domain.Transaction, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE wallet_id = $1`, walletID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE wallet_id = $1 ORDER BY id ASC LIMIT $2 OFFSET $3`,
		walletID, page.Size, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		if err := scanTransaction(rows, &t); err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

func scanTransaction(row pgx.Row, t *domain.Transaction) error {
	return row.Scan(
		&t.ID, &t.WalletID, &t.ItemID, &t.UserID,
		&t.Quantity, &t.UnitPrice, &t.TotalPrice, &t.CreatedAt,
	)
}
