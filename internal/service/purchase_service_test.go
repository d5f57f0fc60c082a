package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"marketplace-backend/config"
	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/internal/core/ports/mocks"
	"marketplace-backend/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type purchaseTestDeps struct {
	svc          *PurchaseServiceImpl
	walletRepo   *mocks.MockWalletRepository
	itemRepo     *mocks.MockItemRepository
	merchantRepo *mocks.MockMerchantRepository
	txRepo       *mocks.MockTransactionRepository
	transactor   *mocks.MockDBTransactor
	publisher    *mocks.MockEventPublisher
	audit        *mocks.MockAuditService
}

func setupPurchaseService(t *testing.T) *purchaseTestDeps {
	ctrl := gomock.NewController(t)
	d := &purchaseTestDeps{
		walletRepo:   mocks.NewMockWalletRepository(ctrl),
		itemRepo:     mocks.NewMockItemRepository(ctrl),
		merchantRepo: mocks.NewMockMerchantRepository(ctrl),
		txRepo:       mocks.NewMockTransactionRepository(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		publisher:    mocks.NewMockEventPublisher(ctrl),
		audit:        mocks.NewMockAuditService(ctrl),
	}
	d.svc = NewPurchaseService(
		d.walletRepo, d.itemRepo, d.merchantRepo, d.txRepo, d.transactor,
		d.publisher, d.audit,
		config.PurchaseConfig{MaxAttempts: 3, RetryBackoff: time.Millisecond},
		zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (m *mockTx) Rollback(_ context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

func (m *mockTx) Commit(_ context.Context) error {
	m.committed = true
	return nil
}

var (
	buyer      = &domain.User{ID: 1, Username: "buyer", Roles: []domain.Role{domain.RoleUser}}
	shop       = &domain.Merchant{ID: 10, OwnerID: 1, Name: "Shop"}
	dec        = decimal.RequireFromString
	testWallet = func() *domain.Wallet { return &domain.Wallet{ID: 100, MerchantID: 10, Balance: dec("100.00")} }
	testItem   = func() *domain.Item {
		return &domain.Item{ID: 200, MerchantID: 10, Price: dec("10.00"), StockQuantity: 5}
	}
)

type decimalMatcher struct{ want decimal.Decimal }

func (m decimalMatcher) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalMatcher) String() string { return "is decimal " + m.want.String() }

func decEq(s string) gomock.Matcher { return decimalMatcher{want: dec(s)} }

func purchaseReq(qty int64) ports.PurchaseRequest {
	return ports.PurchaseRequest{WalletID: 100, ItemID: 200, Quantity: qty, Actor: buyer}
}

func (d *purchaseTestDeps) expectLocks(ctx context.Context, tx pgx.Tx, w *domain.Wallet, i *domain.Item) {
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, int64(100)).Return(w, nil)
	d.itemRepo.EXPECT().GetByIDForUpdate(ctx, tx, int64(200)).Return(i, nil)
	d.merchantRepo.EXPECT().GetByID(ctx, int64(10)).Return(shop, nil)
}

func TestPurchaseService_Purchase_Success(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()
	tx := &mockTx{}

	d.expectLocks(ctx, tx, testWallet(), testItem())
	gomock.InOrder(
		d.walletRepo.EXPECT().Debit(ctx, tx, int64(100), decEq("30.00")).Return(nil),
		d.itemRepo.EXPECT().DecrementStock(ctx, tx, int64(200), int64(3)).Return(nil),
		d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) error {
			txn.ID = 1
			return nil
		}),
	)
	d.publisher.EXPECT().PublishPurchase(ctx, gomock.Any()).Return(nil)
	d.audit.EXPECT().Log(ctx, gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		assert.Equal(t, domain.AuditActionPurchase, entry.Action)
		assert.Equal(t, "1", entry.ResourceID)
	})

	txn, err := d.svc.Purchase(ctx, purchaseReq(3))
	require.NoError(t, err)
	assert.Equal(t, int64(1), txn.ID)
	assert.True(t, txn.TotalPrice.Equal(dec("30.00")))
	assert.True(t, txn.UnitPrice.Equal(dec("10.00")))
	assert.Equal(t, int64(1), txn.UserID)
	assert.True(t, tx.committed)
}

func TestPurchaseService_Purchase_InvalidQuantity(t *testing.T) {
	d := setupPurchaseService(t)

	for _, qty := range []int64{0, -1} {
		_, err := d.svc.Purchase(context.Background(), purchaseReq(qty))
		assert.True(t, apperror.HasCode(err, "TXN_003"), "quantity %d", qty)
	}
}

func TestPurchaseService_Purchase_WalletNotFound(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, int64(100)).Return(nil, nil)

	_, err := d.svc.Purchase(ctx, purchaseReq(1))
	assert.True(t, apperror.HasCode(err, "RES_001"))
	assert.True(t, tx.rolledBack)
}

func TestPurchaseService_Purchase_ItemNotFound(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, int64(100)).Return(testWallet(), nil)
	d.itemRepo.EXPECT().GetByIDForUpdate(ctx, tx, int64(200)).Return(nil, nil)

	_, err := d.svc.Purchase(ctx, purchaseReq(1))
	assert.True(t, apperror.HasCode(err, "RES_001"))
}

func TestPurchaseService_Purchase_NotOwner(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()
	tx := &mockTx{}
	stranger := &domain.User{ID: 99, Roles: []domain.Role{domain.RoleUser}}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, int64(100)).Return(testWallet(), nil)
	d.itemRepo.EXPECT().GetByIDForUpdate(ctx, tx, int64(200)).Return(testItem(), nil)
	d.merchantRepo.EXPECT().GetByID(ctx, int64(10)).Return(shop, nil)

	_, err := d.svc.Purchase(ctx, ports.PurchaseRequest{WalletID: 100, ItemID: 200, Quantity: 1, Actor: stranger})
	assert.True(t, apperror.HasCode(err, "AUTH_006"))
}

func TestPurchaseService_Purchase_AdminMayUseAnyWallet(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()
	tx := &mockTx{}
	admin := &domain.User{ID: 50, Roles: []domain.Role{domain.RoleAdmin}}

	d.expectLocks(ctx, tx, testWallet(), testItem())
	d.walletRepo.EXPECT().Debit(ctx, tx, int64(100), decEq("10.00")).Return(nil)
	d.itemRepo.EXPECT().DecrementStock(ctx, tx, int64(200), int64(1)).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().PublishPurchase(ctx, gomock.Any()).Return(nil)
	d.audit.EXPECT().Log(ctx, gomock.Any())

	txn, err := d.svc.Purchase(ctx, ports.PurchaseRequest{WalletID: 100, ItemID: 200, Quantity: 1, Actor: admin})
	require.NoError(t, err)
	assert.Equal(t, int64(50), txn.UserID)
}

func TestPurchaseService_Purchase_InsufficientStock(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()
	tx := &mockTx{}

	d.expectLocks(ctx, tx, testWallet(), testItem())

	_, err := d.svc.Purchase(ctx, purchaseReq(6))
	assert.True(t, apperror.HasCode(err, "TXN_002"))
	assert.False(t, tx.committed)
}

func TestPurchaseService_Purchase_InsufficientFunds(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()
	tx := &mockTx{}
	poor := testWallet()
	poor.Balance = dec("5.00")

	d.expectLocks(ctx, tx, poor, testItem())

	_, err := d.svc.Purchase(ctx, purchaseReq(1))
	assert.True(t, apperror.HasCode(err, "TXN_001"))
	assert.False(t, tx.committed)
}

func TestPurchaseService_Purchase_RetriesConflict(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()
	first, second := &mockTx{}, &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(first, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, first, int64(100)).
		Return(nil, fmt.Errorf("lock timeout: %w", ports.ErrConflict))

	d.expectLocks(ctx, second, testWallet(), testItem())
	d.walletRepo.EXPECT().Debit(ctx, second, int64(100), decEq("10.00")).Return(nil)
	d.itemRepo.EXPECT().DecrementStock(ctx, second, int64(200), int64(1)).Return(nil)
	d.txRepo.EXPECT().Create(ctx, second, gomock.Any()).Return(nil)
	d.publisher.EXPECT().PublishPurchase(ctx, gomock.Any()).Return(nil)
	d.audit.EXPECT().Log(ctx, gomock.Any())

	_, err := d.svc.Purchase(ctx, purchaseReq(1))
	require.NoError(t, err)
	assert.True(t, first.rolledBack)
	assert.True(t, second.committed)
}

func TestPurchaseService_Purchase_ConflictExhausted(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(3)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, int64(100)).Return(testWallet(), nil).Times(3)
	d.itemRepo.EXPECT().GetByIDForUpdate(ctx, tx, int64(200)).Return(testItem(), nil).Times(3)
	d.merchantRepo.EXPECT().GetByID(ctx, int64(10)).Return(shop, nil).Times(3)
	d.walletRepo.EXPECT().Debit(ctx, tx, int64(100), gomock.Any()).
		Return(fmt.Errorf("debit wallet 100: %w", ports.ErrConflict)).Times(3)

	_, err := d.svc.Purchase(ctx, purchaseReq(1))
	assert.True(t, apperror.HasCode(err, "TXN_004"))
	assert.ErrorIs(t, err, ports.ErrConflict)
}

func TestPurchaseService_Purchase_DatabaseErrorNotRetried(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	d.transactor.EXPECT().Begin(ctx).Return(nil, errors.New("connection refused"))

	_, err := d.svc.Purchase(ctx, purchaseReq(1))
	assert.True(t, apperror.HasCode(err, "SYS_001"))
}

func TestPurchaseService_Purchase_CancelledDuringBackoff(t *testing.T) {
	d := setupPurchaseService(t)
	d.svc.backoff = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, int64(100)).DoAndReturn(
		func(context.Context, pgx.Tx, int64) (*domain.Wallet, error) {
			cancel()
			return nil, ports.ErrConflict
		})

	_, err := d.svc.Purchase(ctx, purchaseReq(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPurchaseService_Purchase_PublishFailureIgnored(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()
	tx := &mockTx{}

	d.expectLocks(ctx, tx, testWallet(), testItem())
	d.walletRepo.EXPECT().Debit(ctx, tx, int64(100), gomock.Any()).Return(nil)
	d.itemRepo.EXPECT().DecrementStock(ctx, tx, int64(200), int64(1)).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().PublishPurchase(ctx, gomock.Any()).Return(errors.New("broker down"))
	d.audit.EXPECT().Log(ctx, gomock.Any())

	_, err := d.svc.Purchase(ctx, purchaseReq(1))
	assert.NoError(t, err)
}
