package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"marketplace-backend/config"
	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"

	"github.com/rs/zerolog"
)

const defaultPurchaseAttempts = 3

// PurchaseServiceImpl implements ports.PurchaseService.
type PurchaseServiceImpl struct {
	walletRepo   ports.WalletRepository
	itemRepo     ports.ItemRepository
	merchantRepo ports.MerchantRepository
	txRepo       ports.TransactionRepository
	transactor   ports.DBTransactor
	publisher    ports.EventPublisher
	audit        ports.AuditService
	maxAttempts  int
	backoff      time.Duration
	log          zerolog.Logger
}

// NewPurchaseService creates the transaction engine. publisher and audit may be nil.
func NewPurchaseService(
	walletRepo ports.WalletRepository,
	itemRepo ports.ItemRepository,
	merchantRepo ports.MerchantRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	publisher ports.EventPublisher,
	audit ports.AuditService,
	cfg config.PurchaseConfig,
	log zerolog.Logger,
) *PurchaseServiceImpl {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = defaultPurchaseAttempts
	}
	return &PurchaseServiceImpl{
		walletRepo:   walletRepo,
		itemRepo:     itemRepo,
		merchantRepo: merchantRepo,
		txRepo:       txRepo,
		transactor:   transactor,
		publisher:    publisher,
		audit:        audit,
		maxAttempts:  attempts,
		backoff:      cfg.RetryBackoff,
		log:          log,
	}
}

// Purchase buys req.Quantity units of an item with a wallet.
// The wallet debit, the stock decrement and the transaction record commit together or not at all.
// Lock contention is retried up to maxAttempts times before failing with TXN_004.
func (s *PurchaseServiceImpl) Purchase(ctx context.Context, req ports.PurchaseRequest) (*domain.Transaction, error) {
	if req.Quantity <= 0 {
		return nil, apperror.ErrInvalidQuantity()
	}
	if req.Actor == nil {
		return nil, apperror.ErrInvalidToken()
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		txn, err := s.attempt(ctx, req)
		if err == nil {
			s.afterCommit(ctx, req, txn)
			return txn, nil
		}
		if !errors.Is(err, ports.ErrConflict) {
			return nil, err
		}
		lastErr = err

		s.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int64("wallet_id", req.WalletID).
			Int64("item_id", req.ItemID).
			Msg("purchase conflict")

		if attempt == s.maxAttempts {
			break
		}
		select {
		case <-time.After(s.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return nil, apperror.InternalError(fmt.Errorf("purchase aborted: %w", ctx.Err()))
		}
	}

	return nil, apperror.ErrConflict(lastErr)
}

// attempt runs one purchase transaction. A ports.ErrConflict result is retryable, anything else is final.
func (s *PurchaseServiceImpl) attempt(ctx context.Context, req ports.PurchaseRequest) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, retryable("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock order is wallet then item on every path.
	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, retryable("lock wallet", err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	item, err := s.itemRepo.GetByIDForUpdate(ctx, dbTx, req.ItemID)
	if err != nil {
		return nil, retryable("lock item", err)
	}
	if item == nil {
		return nil, apperror.ErrNotFound("item")
	}

	if _, err := loadOwnedMerchant(ctx, s.merchantRepo, req.Actor, wallet.MerchantID); err != nil {
		return nil, err
	}

	total := item.PriceFor(req.Quantity)
	if !item.InStock(req.Quantity) {
		return nil, apperror.ErrInsufficientStock()
	}
	if !wallet.CanAfford(total) {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := s.walletRepo.Debit(ctx, dbTx, wallet.ID, total); err != nil {
		return nil, retryable("debit wallet", err)
	}
	if err := s.itemRepo.DecrementStock(ctx, dbTx, item.ID, req.Quantity); err != nil {
		return nil, retryable("decrement stock", err)
	}

	txn := domain.NewPurchase(wallet, item, req.Actor, req.Quantity)
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, retryable("create transaction", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, retryable("commit tx", err)
	}

	s.log.Info().
		Int64("transaction_id", txn.ID).
		Int64("wallet_id", txn.WalletID).
		Int64("item_id", txn.ItemID).
		Int64("quantity", txn.Quantity).
		Str("total_price", txn.TotalPrice.StringFixed(domain.MoneyScale)).
		Msg("purchase committed")

	return txn, nil
}

// afterCommit publishes the purchase event and audit entry. Failures are logged only.
func (s *PurchaseServiceImpl) afterCommit(ctx context.Context, req ports.PurchaseRequest, txn *domain.Transaction) {
	if s.publisher != nil {
		if err := s.publisher.PublishPurchase(ctx, txn); err != nil {
			s.log.Warn().Err(err).Int64("transaction_id", txn.ID).Msg("failed to publish purchase event")
		}
	}

	if s.audit != nil {
		details, _ := json.Marshal(map[string]string{
			"wallet_id":   strconv.FormatInt(txn.WalletID, 10),
			"item_id":     strconv.FormatInt(txn.ItemID, 10),
			"quantity":    strconv.FormatInt(txn.Quantity, 10),
			"total_price": txn.TotalPrice.StringFixed(domain.MoneyScale),
		})
		userID := req.Actor.ID
		s.audit.Log(ctx, &domain.AuditLog{
			UserID:       &userID,
			Action:       domain.AuditActionPurchase,
			ResourceType: "transaction",
			ResourceID:   strconv.FormatInt(txn.ID, 10),
			Details:      string(details),
			IPAddress:    ClientIPFromContext(ctx),
		})
	}
}

// retryable passes conflicts through for the retry loop and wraps everything else as a database error.
func retryable(op string, err error) error {
	if errors.Is(err, ports.ErrConflict) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return apperror.ErrDatabaseError(fmt.Errorf("%s: %w", op, err))
}
