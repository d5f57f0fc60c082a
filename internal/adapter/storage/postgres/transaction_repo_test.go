package postgres

import (
	"context"
	"testing"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(id int64) *domain.Transaction {
	return &domain.Transaction{
		ID:         id,
		WalletID:   5,
		ItemID:     8,
		UserID:     7,
		Quantity:   3,
		UnitPrice:  decimal.RequireFromString("10.00"),
		TotalPrice: decimal.RequireFromString("30.00"),
		CreatedAt:  testTime(),
	}
}

func transactionRows(txns ...*domain.Transaction) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "wallet_id", "item_id", "user_id", "quantity", "unit_price", "total_price", "created_at"})
	for _, t := range txns {
		rows.AddRow(t.ID, t.WalletID, t.ItemID, t.UserID, t.Quantity, t.UnitPrice, t.TotalPrice, t.CreatedAt)
	}
	return rows
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(0)
	now := testTime()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs(txn.WalletID, txn.ItemID, txn.UserID, txn.Quantity, txn.UnitPrice, txn.TotalPrice).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), now))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, repo.Create(context.Background(), tx, txn))
	assert.Equal(t, int64(42), txn.ID)
	assert.Equal(t, now, txn.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(42)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(int64(42)).
		WillReturnRows(transactionRows(txn))
	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(int64(43)).
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, txn.TotalPrice.Equal(result.TotalPrice))

	missing, err := repo.GetByID(context.Background(), 43)
	assert.NoError(t, err)
	assert.Nil(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM transactions WHERE wallet_id").
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery("SELECT .+ FROM transactions WHERE wallet_id = \\$1 ORDER BY id ASC LIMIT \\$2 OFFSET \\$3").
		WithArgs(int64(5), 2, 2).
		WillReturnRows(transactionRows(newTestTransaction(3)))

	txns, total, err := repo.ListByWallet(context.Background(), 5, ports.Page{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, txns, 1)
	assert.Equal(t, int64(3), txns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := int64(7)
	entry := &domain.AuditLog{
		UserID:       &userID,
		Action:       domain.AuditActionPurchase,
		ResourceType: "transaction",
		ResourceID:   "42",
		Details:      `{"status":201}`,
		IPAddress:    "10.0.0.1",
		CreatedAt:    testTime(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.UserID, "PURCHASE", "transaction", "42", entry.Details, "10.0.0.1", entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, NewAuditRepo(mock).Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}
