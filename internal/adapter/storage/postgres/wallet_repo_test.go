package postgres

import (
	"context"
	"testing"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet() *domain.Wallet {
	return &domain.Wallet{
		ID:         5,
		MerchantID: 3,
		Balance:    decimal.RequireFromString("100.00"),
		CreatedAt:  testTime(),
		UpdatedAt:  testTime(),
	}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "merchant_id", "balance", "created_at", "updated_at"}).
		AddRow(w.ID, w.MerchantID, w.Balance, w.CreatedAt, w.UpdatedAt)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet()
	now := testTime()

	mock.ExpectQuery("INSERT INTO wallets").
		WithArgs(w.MerchantID, w.Balance).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(9), now, now))

	require.NoError(t, repo.Create(context.Background(), w))
	assert.Equal(t, int64(9), w.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_Create_MissingMerchant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO wallets").
		WillReturnError(&pgconn.PgError{Code: codeForeignKeyViolation})

	err = NewWalletRepo(mock).Create(context.Background(), newTestWallet())
	assert.ErrorIs(t, err, ports.ErrForeignKey)
}

func TestWalletRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet()

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, w.Balance.Equal(result.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id .+ FOR UPDATE").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByIDForUpdate_LockTimeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id .+ FOR UPDATE").
		WithArgs(int64(5)).
		WillReturnError(&pgconn.PgError{Code: codeLockNotAvailable})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, err = repo.GetByIDForUpdate(context.Background(), tx, 5)
	assert.ErrorIs(t, err, ports.ErrConflict)
}

func TestWalletRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id").
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	result, err := NewWalletRepo(mock).GetByID(context.Background(), 404)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestWalletRepo_Debit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	amount := decimal.RequireFromString("30.00")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance = balance -").
		WithArgs(amount, int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE wallets SET balance = balance -").
		WithArgs(amount, int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Debit(context.Background(), tx, 5, amount))
	assert.ErrorIs(t, repo.Debit(context.Background(), tx, 5, amount), ports.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_CreditAndSetBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	amount := decimal.RequireFromString("12.50")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance = balance \\+").
		WithArgs(amount, int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE wallets SET balance = \\$1").
		WithArgs(amount, int64(6)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Credit(context.Background(), tx, 5, amount))
	assert.ErrorIs(t, repo.SetBalance(context.Background(), tx, 6, amount), ports.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectExec("DELETE FROM wallets").
		WithArgs(int64(5)).
		WillReturnError(&pgconn.PgError{Code: codeForeignKeyViolation})

	assert.ErrorIs(t, repo.Delete(context.Background(), 5), ports.ErrForeignKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}
