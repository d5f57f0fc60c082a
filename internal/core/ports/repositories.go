package ports

//go:generate mockgen -source=repositories.go -destination=mocks/repositories.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"marketplace-backend/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Storage errors shared by every repository implementation.
var (
	// ErrConflict marks lock contention or a lost guarded update. The caller may retry.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrDuplicate marks a unique constraint violation.
	ErrDuplicate = errors.New("duplicate key")
	// ErrForeignKey marks a missing or still-referenced related row.
	ErrForeignKey = errors.New("foreign key violation")
	// ErrNotFound marks a mutation that matched no row.
	ErrNotFound = errors.New("row not found")
)

// Page is a normalized 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, hashedPassword string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// MerchantRepository defines persistence operations for merchants.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id int64) (*domain.Merchant, error)
	List(ctx context.Context, page Page) ([]domain.Merchant, int64, error)
	Update(ctx context.Context, merchant *domain.Merchant) error
	Delete(ctx context.Context, id int64) error
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id int64) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Wallet, error)
	// Debit subtracts amount, failing with ErrConflict if the balance no longer covers it.
	Debit(ctx context.Context, tx pgx.Tx, id int64, amount decimal.Decimal) error
	Credit(ctx context.Context, tx pgx.Tx, id int64, amount decimal.Decimal) error
	SetBalance(ctx context.Context, tx pgx.Tx, id int64, balance decimal.Decimal) error
	Delete(ctx context.Context, id int64) error
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	MerchantID *int64
}

// ItemRepository defines persistence operations for items.
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Item, error)
	List(ctx context.Context, filter ItemFilter, page Page) ([]domain.Item, int64, error)
	Update(ctx context.Context, tx pgx.Tx, item *domain.Item) error
	// DecrementStock removes quantity units, failing with ErrConflict if stock no longer covers it.
	DecrementStock(ctx context.Context, tx pgx.Tx, id int64, quantity int64) error
	Delete(ctx context.Context, id int64) error
}

// TransactionRepository defines persistence operations for purchase records.
type TransactionRepository interface {
	// Create inserts the record and fills in its ID and CreatedAt.
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	// ListByWallet returns one page ordered by ascending id, plus the total count.
	ListByWallet(ctx context.Context, walletID int64, page Page) ([]domain.Transaction, int64, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
